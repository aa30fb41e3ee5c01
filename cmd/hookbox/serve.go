package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hookbox/internal/metrics"
	"hookbox/internal/pipeline"
	"hookbox/internal/queue"
	"hookbox/internal/record"
	"hookbox/internal/server"
	"hookbox/internal/webhook"
	"hookbox/internal/worker"
)

// ShutdownTimeout bounds the wait for in-flight requests and settles.
const ShutdownTimeout = 30 * time.Second

var (
	logFile      string
	host         string
	port         int
	testMode     bool
	workerCount  int
	maxAttempts  int
	retryInitial time.Duration
	retryMax     time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Start the HTTP server to receive webhook calls.

Every configured webhook is served at POST /webhooks/NAME. Calls are verified,
stored and answered immediately; accepted calls are queued for processing.
With the memory queue, workers run inside the server process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("HOOKBOX_LOG_FILE", "./hookbox.log"), "Path to log file")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("HOOKBOX_HOST", "127.0.0.1"), "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("HOOKBOX_PORT", 5000), "Port to listen on")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("HOOKBOX_TEST_MODE") == "1", "Enable test mode (in-memory records, no rate limits)")
	serveCmd.Flags().IntVar(&workerCount, "workers", getEnvOrDefaultInt("HOOKBOX_WORKERS", -1), "In-process workers (default 2 with the memory queue, 0 otherwise)")
	registerWorkerFlags(serveCmd)
}

func registerWorkerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", getEnvOrDefaultInt("HOOKBOX_MAX_ATTEMPTS", worker.DefaultMaxAttempts), "Attempts per job before the record is marked failed")
	cmd.Flags().DurationVar(&retryInitial, "retry-initial", getEnvOrDefaultDuration("HOOKBOX_RETRY_INITIAL", worker.DefaultInitialInterval), "Initial delay between job attempts")
	cmd.Flags().DurationVar(&retryMax, "retry-max", getEnvOrDefaultDuration("HOOKBOX_RETRY_MAX", worker.DefaultMaxInterval), "Maximum delay between job attempts")
}

func workerOptions(concurrency int) worker.Options {
	return worker.Options{
		Concurrency:     concurrency,
		MaxAttempts:     maxAttempts,
		InitialInterval: retryInitial,
		MaxInterval:     retryMax,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	startedAt := time.Now().UTC()

	logger, logFileHandle, err := setupLogging(logFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logFileHandle != nil {
		defer logFileHandle.Close()
	}

	logger.Info("Starting hookbox", "version", version)

	configs, path, err := loadConfigs(logger)
	if err != nil {
		logger.Error("Failed to load configuration", "config", path, "error", err)
		return err
	}
	logger.Info("Configuration validated successfully", "config", path, "count", configs.Count())

	if configs.Count() == 0 {
		logger.Warn("No webhooks configured in config file", "config", path)
		logger.Warn("The server will start but will answer 404 until webhooks are added")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if testMode {
		storeBackend = record.BackendMemory
	}
	store, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		return err
	}
	defer store.Close()

	q, err := openQueue(ctx, logger)
	if err != nil {
		logger.Error("Failed to open task queue", "error", err)
		return err
	}
	defer q.Close()

	metrics.Register()

	p := pipeline.New(store, q, pipeline.WithLogger(logger))
	srv := server.NewServer(configs, p, store, logger, testMode)

	workers := workerCount
	if workers < 0 {
		workers = 0
		if queueBackend == queue.BackendMemory || queueBackend == "" {
			workers = worker.DefaultConcurrency
		}
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if queueBackend == queue.BackendMemory || queueBackend == "" {
		recoverUnqueued(ctx, p, configs, logger, startedAt)
	}

	var workerWg sync.WaitGroup
	if workers > 0 {
		w := worker.New(q, store, configs, logger, workerOptions(workers))
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			w.Run(workerCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "host", host, "port", port, "workers", workers)
		errCh <- srv.Start(host, port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}

	// settles are done, so workers only finish the task they hold
	stopWorkers()
	workerWg.Wait()

	logger.Info("Stopped")
	return nil
}

// recoverUnqueued re-settles records a previous serve process stored but whose
// tasks died with its memory queue. Only records created before startedAt are
// swept, so requests admitted by this process are never touched.
func recoverUnqueued(ctx context.Context, p *pipeline.Pipeline, configs pipeline.ConfigLookup, logger *slog.Logger, startedAt time.Time) {
	for _, status := range []string{webhook.StatusReceived, webhook.StatusQueued} {
		result, err := p.Reconcile(ctx, configs, status, startedAt, DefaultReconcileLimit)
		if err != nil {
			logger.Error("Startup reconcile failed", "status", status, "error", err)
			continue
		}
		if result.Scanned > 0 {
			logger.Info("Recovered records from a previous run",
				"status", status,
				"scanned", result.Scanned,
				"enqueued", result.Settled[webhook.StateEnqueued],
				"orphaned", result.Orphaned,
			)
		}
	}
}
