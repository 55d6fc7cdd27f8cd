package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	wfmodel "agent-smith-api/internal/workflow/model"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	messages := []wfmodel.Message{{Role: "user", Content: strings.Join(args, " ")}}
	reply, err := cli.Assistant.Ask(ctx, messages)
	if err != nil {
		return err
	}
	printReply(cmd.OutOrStdout(), reply)
	return nil
}
