package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored webhook records older than a cutoff",
	Long: `Delete webhook records created before now minus --older-than.

Example:
  hookbox prune --older-than 720h`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", getEnvOrDefaultDuration("HOOKBOX_RETENTION", 30*24*time.Hour), "Retention period")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cliLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	cutoff := time.Now().UTC().Add(-pruneOlderThan)
	n, err := store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune records: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records created before %s\n", n, cutoff.Format(time.RFC3339))
	return nil
}
