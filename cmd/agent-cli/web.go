package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var webResults int

var webCmd = &cobra.Command{
	Use:   "web <query>",
	Short: "Run a public web search",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWeb,
}

func init() {
	webCmd.Flags().IntVarP(&webResults, "num", "n", 5, "number of results")
}

func runWeb(cmd *cobra.Command, args []string) error {
	if cli.Web == nil {
		return errors.New("web search is not configured")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	results, err := cli.Web.Search(ctx, strings.Join(args, " "), webResults)
	if err != nil {
		return err
	}
	printWebResults(cmd.OutOrStdout(), results)
	return nil
}
