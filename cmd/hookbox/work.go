package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hookbox/internal/queue"
	"hookbox/internal/worker"
)

var (
	workLogFile     string
	workConcurrency int
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run queue workers without the HTTP server",
	Long: `Consume queued tasks and run each webhook's job, retrying failures.

Only shared queues (redis, sqs) make sense here; the memory queue lives inside
the serve process.`,
	RunE: runWork,
}

func init() {
	workCmd.Flags().StringVar(&workLogFile, "log", getEnvOrDefault("HOOKBOX_LOG_FILE", ""), "Path to log file (stdout only when empty)")
	workCmd.Flags().IntVar(&workConcurrency, "concurrency", getEnvOrDefaultInt("HOOKBOX_WORKERS", worker.DefaultConcurrency), "Number of concurrent workers")
	registerWorkerFlags(workCmd)
}

func runWork(cmd *cobra.Command, args []string) error {
	if queueBackend == queue.BackendMemory || queueBackend == "" {
		return fmt.Errorf("work needs a shared queue; use --queue redis or --queue sqs")
	}

	logger, logFileHandle, err := setupLogging(workLogFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logFileHandle != nil {
		defer logFileHandle.Close()
	}

	configs, path, err := loadConfigs(logger)
	if err != nil {
		logger.Error("Failed to load configuration", "config", path, "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	logger.Info("Starting workers", "concurrency", workConcurrency, "queue", queueBackend, "webhooks", configs.Count())
	worker.New(q, store, configs, logger, workerOptions(workConcurrency)).Run(ctx)
	return nil
}
