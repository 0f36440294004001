package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablecraft/gofable/pkg/session"
)

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <story-id>",
		Short: "Delete a story and its chat, backup and snapshot records",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
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
	if err := sess.Delete(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted %q (%s)\n", story.Title, story.ID)
	return nil
}
