package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stories, most recently edited first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	stories, err := e.store.ListStories()
	if err != nil {
		return err
	}
	if len(stories) == 0 {
		fmt.Fprintln(os.Stdout, "No stories yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCHAPTERS\tWORDS\tUPDATED")
	for _, s := range stories {
		updated := "-"
		if s.UpdatedAt > 0 {
			updated = time.UnixMilli(s.UpdatedAt).Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.Title, len(s.Chapters), s.WordCount(), updated)
	}
	return w.Flush()
}
