package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablecraft/gofable/pkg/export"
	"github.com/fablecraft/gofable/pkg/session"
)

var exportFormat string

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <story-id> <file>",
		Short: "Export a story to Markdown or JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  runExport,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "markdown", "Export format: markdown or json")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	sess := session.New(e.store, e.log)
	story, err := sess.Load(args[0])
	if err != nil {
		return err
	}

	var doc string
	switch exportFormat {
	case "markdown", "md":
		doc, err = export.Markdown(story)
	case "json":
		doc, err = export.JSON(story)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[1], []byte(doc), 0o644); err != nil {
		return err
	}
	if err := sess.RecordExport(); err != nil {
		e.log.Error().Err(err).Msg("failed to record export")
	}
	e.log.Info().Str("story_id", story.ID).Str("file", args[1]).
		Int("bytes", len(doc)).Msg("exported")
	return nil
}
