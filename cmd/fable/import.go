package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fablecraft/gofable/internal/migrate"
	"github.com/fablecraft/gofable/pkg/export"
	"github.com/fablecraft/gofable/pkg/session"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a story from a Markdown or JSON export",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var raw map[string]any
	if strings.HasSuffix(args[0], ".json") {
		raw, err = export.ParseJSON(data)
	} else {
		raw, err = export.ParseMarkdown(string(data))
	}
	if err != nil {
		return err
	}

	story := migrate.Story(raw)
	sess := session.New(e.store, e.log)
	if err := sess.Open(story); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %q (%s): %d chapters, %d words\n",
		story.Title, story.ID, len(story.Chapters), story.WordCount())
	return nil
}
