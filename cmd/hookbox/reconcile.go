package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hookbox/internal/pipeline"
	"hookbox/internal/queue"
	"hookbox/internal/webhook"
)

// DefaultReconcileLimit caps the records settled by one sweep.
const DefaultReconcileLimit = 500

var (
	reconcileOlderThan time.Duration
	reconcileStatus    string
	reconcileLimit     int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-settle records that were stored but never queued",
	Long: `Find records left in the received state (for example after a crash between
storing and queueing) and run them through the profile and queue again.

Use --status queued to re-queue tasks a queue lost. Reconcile needs a shared
queue (redis or sqs); with the memory queue, serve runs the same sweep at
startup instead.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileOlderThan, "older-than", 10*time.Minute, "Only records created before now minus this duration")
	reconcileCmd.Flags().StringVar(&reconcileStatus, "status", webhook.StatusReceived, "Record status to sweep (received or queued)")
	reconcileCmd.Flags().IntVar(&reconcileLimit, "limit", DefaultReconcileLimit, "Maximum records per run")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if queueBackend == queue.BackendMemory || queueBackend == "" {
		return fmt.Errorf("reconcile needs a shared queue; use --queue redis or --queue sqs")
	}
	if reconcileStatus != webhook.StatusReceived && reconcileStatus != webhook.StatusQueued {
		return fmt.Errorf("--status must be %s or %s", webhook.StatusReceived, webhook.StatusQueued)
	}

	logger := cliLogger()
	ctx := cmd.Context()

	configs, _, err := loadConfigs(logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := openQueue(ctx, logger)
	if err != nil {
		return err
	}
	defer q.Close()

	p := pipeline.New(store, q, pipeline.WithLogger(logger))
	result, err := p.Reconcile(ctx, configs, reconcileStatus, time.Now().UTC().Add(-reconcileOlderThan), reconcileLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d %s records\n", result.Scanned, reconcileStatus)
	for _, state := range []webhook.State{webhook.StateEnqueued, webhook.StateRejectedProfile, webhook.StateDeferralFailed, webhook.StateSuperseded} {
		if n := result.Settled[state]; n > 0 {
			fmt.Fprintf(out, "  %-18s %d\n", state, n)
		}
	}
	if result.Orphaned > 0 {
		fmt.Fprintf(out, "  %-18s %d (config no longer exists)\n", "skipped", result.Orphaned)
	}
	return nil
}
