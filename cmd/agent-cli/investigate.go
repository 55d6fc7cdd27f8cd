package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agent-smith-api/internal/application/investigation"
)

var (
	investigateSize         int
	investigateContextLines int
	investigateJSON         bool
	investigateTimeout      time.Duration
)

var investigateCmd = &cobra.Command{
	Use:   "investigate <query>",
	Short: "Run a full investigation and print the report",
	Long: `Searches internal sources for the query, isolates matching records,
analyzes them and prints the final report followed by the discard log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInvestigate,
}

func init() {
	investigateCmd.Flags().IntVar(&investigateSize, "size", 0, "maximum number of chunks to retrieve (0 uses the default)")
	investigateCmd.Flags().IntVar(&investigateContextLines, "context-lines", 1, "lines of context around each text match")
	investigateCmd.Flags().BoolVar(&investigateJSON, "json", false, "print the whole investigation as JSON")
	investigateCmd.Flags().DurationVar(&investigateTimeout, "timeout", 15*time.Minute, "overall timeout")
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), investigateTimeout)
	defer cancel()

	query := strings.Join(args, " ")
	opts := investigation.SubmitOptions{Size: investigateSize}
	if cmd.Flags().Changed("context-lines") {
		opts.ContextLines = &investigateContextLines
	}

	inv, err := cli.Investigations.RunSync(ctx, query, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if investigateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(inv)
	}
	printInvestigation(out, inv)
	return nil
}
