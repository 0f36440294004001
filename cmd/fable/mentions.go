package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fablecraft/gofable/pkg/mentions"
	"github.com/fablecraft/gofable/pkg/session"
)

func mentionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mentions <story-id>",
		Short: "Count encyclopedia entity mentions per chapter",
		Args:  cobra.ExactArgs(1),
		RunE:  runMentions,
	}
}

func runMentions(cmd *cobra.Command, args []string) error {
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

	sc, err := mentions.NewScanner(story)
	if err != nil {
		return err
	}
	scans := sc.ScanStory(story)
	if len(scans) == 0 {
		fmt.Fprintln(os.Stdout, "No mentions found.")
		return nil
	}

	names := map[string]string{}
	for _, c := range story.Characters {
		names[c.ID] = c.Name
	}
	for _, cat := range story.Lore.Categories() {
		for _, en := range cat.Entries {
			names[en.ID] = en.Name
		}
	}
	titles := map[string]string{}
	for _, ch := range story.Chapters {
		titles[ch.ID] = ch.Title
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAPTER\tENTITY\tCOUNT")
	for _, cm := range scans {
		ids := make([]string, 0, len(cm.Counts))
		for id := range cm.Counts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%s\t%d\n", titles[cm.ChapterID], names[id], cm.Counts[id])
		}
	}
	return w.Flush()
}
