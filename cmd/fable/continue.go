package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablecraft/gofable/pkg/generate"
	"github.com/fablecraft/gofable/pkg/session"
)

func continueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continue <story-id> <chapter-id>",
		Short: "Draft a continuation of a chapter with the configured model",
		Args:  cobra.ExactArgs(2),
		RunE:  runContinue,
	}
}

func runContinue(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.OpenRouterKey == "" {
		return fmt.Errorf("FABLE_OPENROUTER_KEY must be set")
	}

	sess := session.New(e.store, e.log)
	story, err := sess.Load(args[0])
	if err != nil {
		return err
	}

	client := generate.NewClient(generate.Config{
		APIKey:     e.cfg.OpenRouterKey,
		Model:      e.cfg.Model,
		EmbedModel: e.cfg.EmbedModel,
	}, e.log)

	text, err := client.ContinueChapter(context.Background(), story, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, text)
	return nil
}
