package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	gosync "github.com/fablecraft/gofable/pkg/sync"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local store against the cloud copy",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.FirebaseProject == "" || e.cfg.SyncUserID == "" {
		return fmt.Errorf("FABLE_FIREBASE_PROJECT and FABLE_SYNC_USER_ID must be set")
	}

	ctx := context.Background()
	remote, err := gosync.NewFirestoreRemote(ctx, e.cfg.FirebaseProject)
	if err != nil {
		return err
	}
	defer remote.Close()

	res := gosync.NewEngine(e.store, remote, e.log).Run(ctx, e.cfg.SyncUserID)
	if !res.Success {
		return fmt.Errorf("sync failed: %s", res.Error)
	}
	fmt.Fprintf(os.Stdout, "Sync complete: stories %d up / %d down, universes %d up / %d down\n",
		res.StoriesUploaded, res.StoriesDownloaded, res.UniversesUploaded, res.UniversesDownloaded)
	return nil
}
