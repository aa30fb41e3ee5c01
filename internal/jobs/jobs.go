// Package jobs holds the built-in processing jobs a webhook configuration can
// name in process_webhook_job.
package jobs

import (
	"context"
	"log/slog"

	"hookbox/internal/webhook"
)

// Registry names of the built-in jobs.
const (
	NoopName    = "noop"
	LogName     = "log"
	CommandName = "command"
)

// Noop accepts every record without doing anything.
type Noop struct{}

func (Noop) NewTask(rec *webhook.Record) webhook.Task { return webhook.TaskFor(NoopName, rec) }

func (Noop) Handle(context.Context, *webhook.Record) error { return nil }

// Log writes one structured log line per processed record.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) NewTask(rec *webhook.Record) webhook.Task { return webhook.TaskFor(LogName, rec) }

func (l *Log) Handle(ctx context.Context, rec *webhook.Record) error {
	l.logger.InfoContext(ctx, "Webhook received",
		"config", rec.ConfigName,
		"record", rec.ID,
		"payload_bytes", len(rec.Payload),
		"attempt", rec.Attempts,
	)
	return nil
}
