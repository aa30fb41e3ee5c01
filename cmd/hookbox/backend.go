package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hookbox/internal/config"
	"hookbox/internal/queue"
	"hookbox/internal/record"
	"hookbox/internal/security"
	"hookbox/internal/webhook"
	"hookbox/pkg/fileutil"
)

// Flags shared by every command that touches configs, records or the queue.
var (
	configFile   string
	storeBackend string
	dbPath       string
	databaseURL  string
	queueBackend string
	redisURL     string
	redisList    string
	sqsQueueURL  string
	awsRegion    string
)

func registerBackendFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", getEnvOrDefault("HOOKBOX_CONFIG_FILE", ""), "Path to webhooks.yaml configuration file")
	flags.StringVar(&storeBackend, "store", getEnvOrDefault("HOOKBOX_STORE", ""), "Record store: sqlite, postgres or memory (default postgres when a database URL is set, else sqlite)")
	flags.StringVar(&dbPath, "db", getEnvOrDefault("HOOKBOX_DB_PATH", "./hookbox.db"), "Path to SQLite database")
	flags.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	flags.StringVar(&queueBackend, "queue", getEnvOrDefault("HOOKBOX_QUEUE", queue.BackendMemory), "Task queue: memory, redis or sqs")
	flags.StringVar(&redisURL, "redis-url", getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"), "Redis URL for the redis queue")
	flags.StringVar(&redisList, "redis-list", getEnvOrDefault("HOOKBOX_REDIS_LIST", queue.DefaultRedisList), "Redis list holding pending tasks")
	flags.StringVar(&sqsQueueURL, "sqs-url", os.Getenv("SQS_QUEUE_URL"), "SQS queue URL for the sqs queue")
	flags.StringVar(&awsRegion, "aws-region", os.Getenv("AWS_REGION"), "AWS region for the sqs queue")
}

// loadConfigs finds and resolves the webhook definitions. Permission
// problems are logged, not fatal.
func loadConfigs(logger *slog.Logger) (*config.Set, string, error) {
	path, err := fileutil.ResolveConfigPath(configFile)
	if err != nil {
		if configFile == "" {
			fmt.Fprintf(os.Stderr, "Error: No configuration file found in default locations:\n")
			for _, p := range fileutil.DefaultConfigPaths(fileutil.ConfigFileName) {
				fmt.Fprintf(os.Stderr, "  - %s\n", p)
			}
			fmt.Fprintf(os.Stderr, "Use --config flag to specify a custom location\n")
		}
		return nil, "", err
	}

	if err := security.CheckConfigPermissions(path); err != nil {
		logger.Warn("Insecure configuration file permissions", "config", path, "error", err)
	}

	set, err := config.Load(path, config.DefaultRegistry(logger))
	if err != nil {
		var invalid *webhook.InvalidConfigError
		if errors.As(err, &invalid) {
			svcErr := invalid.ToServiceError()
			logger.Error("Invalid webhook configuration", "config", path, "text_code", svcErr.TextCode, "metadata", svcErr.Metadata)
		}
		return nil, path, fmt.Errorf("failed to load configuration: %w", err)
	}
	return set, path, nil
}

// openStore opens the record store selected by the flags.
func openStore(ctx context.Context, logger *slog.Logger) (record.Store, error) {
	backend := storeBackend
	if backend == "" {
		backend = record.BackendSQLite
		if databaseURL != "" {
			backend = record.BackendPostgres
		}
	}

	dsn := dbPath
	if backend == record.BackendPostgres {
		dsn = databaseURL
	}

	logger.Info("Opening record store", "backend", backend)
	store, err := record.Open(ctx, backend, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s record store: %w", backend, err)
	}
	return store, nil
}

// openQueue opens the task queue selected by the flags. Tasks left in the
// redis processing list by a previous run are moved back to pending.
func openQueue(ctx context.Context, logger *slog.Logger) (queue.Queue, error) {
	opts := queue.Options{
		Backend: queueBackend,
		Name:    redisList,
		Region:  awsRegion,
	}
	switch queueBackend {
	case queue.BackendRedis:
		opts.URL = redisURL
	case queue.BackendSQS:
		opts.URL = sqsQueueURL
	}

	logger.Info("Opening task queue", "backend", queueBackend)
	q, err := queue.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s queue: %w", queueBackend, err)
	}

	if rq, ok := q.(*queue.Redis); ok {
		n, err := rq.Recover(ctx)
		if err != nil {
			logger.Warn("Failed to recover in-flight tasks", "error", err)
		} else if n > 0 {
			logger.Info("Recovered in-flight tasks", "count", n)
		}
	}
	return q, nil
}

// setupLogging configures slog for JSON logging to stdout and, when logPath
// is set, to a log file. The returned file may be nil.
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	var out io.Writer = os.Stdout
	var file *os.File

	if logPath != "" {
		logDir := filepath.Dir(logPath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(os.Stdout, file)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(handler), file, nil
}

// cliLogger is used by one-shot commands whose stdout is meant for people.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
