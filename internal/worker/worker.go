// Package worker consumes queued tasks and runs each record's job with
// retries, recording the outcome on the record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"hookbox/internal/metrics"
	"hookbox/internal/queue"
	"hookbox/internal/record"
	"hookbox/internal/webhook"
)

// Defaults applied by New when an option is zero.
const (
	DefaultConcurrency     = 2
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 1 * time.Second
	DefaultMaxInterval     = 30 * time.Second
)

// Outcome of handling one message.
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// ConfigLookup finds the resolved config a record was admitted under.
type ConfigLookup interface {
	Get(name string) (*webhook.Config, error)
}

// Options tunes a Worker.
type Options struct {
	Concurrency     int
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Worker runs jobs for tasks taken from a queue.
type Worker struct {
	queue   queue.Queue
	store   record.Store
	configs ConfigLookup
	logger  *slog.Logger
	opts    Options
	locks   *LockManager
}

func New(q queue.Queue, store record.Store, configs ConfigLookup, logger *slog.Logger, opts Options) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultInitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:   q,
		store:   store,
		configs: configs,
		logger:  logger,
		opts:    opts,
		locks:   NewLockManager(),
	}
}

// Run starts Concurrency consumers and blocks until ctx is cancelled or the
// queue is closed.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	w.logger.Info("Worker started", "worker", id)
	defer w.logger.Info("Worker stopped", "worker", id)

	for ctx.Err() == nil {
		if _, err := w.ProcessOne(ctx); err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to dequeue task", "worker", id, "error", err)

			// avoid spinning on a broken backend
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne dequeues at most one task and handles it. It returns false
// when nothing arrived before the poll timeout.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	msg, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	w.Handle(ctx, msg.Task)

	if err := w.queue.Ack(ctx, msg); err != nil {
		w.logger.Error("Failed to ack task", "task", msg.Task.ID, "record", msg.Task.RecordID, "error", err)
	}
	return true, nil
}

// Handle runs the job for one task and returns the outcome. Records that are
// missing, already processed or being handled by another consumer are
// skipped.
func (w *Worker) Handle(ctx context.Context, task webhook.Task) string {
	rec, err := w.store.Get(ctx, task.RecordID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			w.logger.Warn("Dropping task for missing record", "task", task.ID, "record", task.RecordID)
		} else {
			w.logger.Error("Failed to load record", "task", task.ID, "record", task.RecordID, "error", err)
		}
		metrics.Processed.WithLabelValues(task.ConfigName, OutcomeSkipped).Inc()
		return OutcomeSkipped
	}

	if rec.Status == webhook.StatusProcessed {
		w.logger.Info("Record already processed", "config", rec.ConfigName, "record", rec.ID)
		metrics.Processed.WithLabelValues(rec.ConfigName, OutcomeSkipped).Inc()
		return OutcomeSkipped
	}

	if !w.locks.TryLock(rec.ID) {
		w.logger.Info("Record is being processed by another worker", "config", rec.ConfigName, "record", rec.ID)
		metrics.Processed.WithLabelValues(rec.ConfigName, OutcomeSkipped).Inc()
		return OutcomeSkipped
	}
	defer w.locks.Unlock(rec.ID)

	cfg, err := w.configs.Get(rec.ConfigName)
	if err != nil {
		w.finish(ctx, rec, fmt.Errorf("config %q: %w", rec.ConfigName, err))
		metrics.Processed.WithLabelValues(rec.ConfigName, OutcomeFailed).Inc()
		return OutcomeFailed
	}

	// claim the record only if no other process moved it since the read
	from := rec.Status
	rec.Status = webhook.StatusProcessing
	if err := w.store.Transition(context.WithoutCancel(ctx), rec, from); err != nil {
		if errors.Is(err, record.ErrStatusChanged) {
			w.logger.Info("Record changed before processing started", "config", rec.ConfigName, "record", rec.ID, "expected", from)
			metrics.Processed.WithLabelValues(rec.ConfigName, OutcomeSkipped).Inc()
			return OutcomeSkipped
		}
		w.logger.Error("Failed to update webhook record", "config", rec.ConfigName, "record", rec.ID, "status", rec.Status, "error", err)
	}

	start := time.Now()
	err = w.runWithRetry(ctx, cfg.Job, rec)
	outcome := w.finish(ctx, rec, err)

	metrics.Processed.WithLabelValues(rec.ConfigName, outcome).Inc()
	metrics.ProcessingDuration.WithLabelValues(rec.ConfigName, outcome).Observe(time.Since(start).Seconds())
	return outcome
}

func (w *Worker) runWithRetry(ctx context.Context, job webhook.Job, rec *webhook.Record) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.InitialInterval
	b.MaxInterval = w.opts.MaxInterval
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0 // bounded by MaxAttempts

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(w.opts.MaxAttempts-1)), ctx)

	operation := func() error {
		rec.Attempts++
		w.update(ctx, rec)

		err := runJob(ctx, job, rec)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		w.logger.Warn("Job failed, retrying",
			"config", rec.ConfigName,
			"record", rec.ID,
			"attempt", rec.Attempts,
			"retry_in", wait,
			"error", err,
		)
	}

	return backoff.RetryNotify(operation, policy, notify)
}

func runJob(ctx context.Context, job webhook.Job, rec *webhook.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Handle(ctx, rec)
}

// finish writes the final status for rec and returns the outcome label.
func (w *Worker) finish(ctx context.Context, rec *webhook.Record, jobErr error) string {
	if jobErr != nil {
		rec.Status = webhook.StatusFailed
		rec.SetException(jobErr)
		w.update(ctx, rec)
		w.logger.Error("Webhook processing failed", "config", rec.ConfigName, "record", rec.ID, "attempts", rec.Attempts, "error", jobErr)
		return OutcomeFailed
	}

	now := time.Now().UTC()
	rec.Status = webhook.StatusProcessed
	rec.ProcessedAt = &now
	rec.SetException(nil)
	w.update(ctx, rec)
	w.logger.Info("Webhook processed", "config", rec.ConfigName, "record", rec.ID, "attempts", rec.Attempts)
	return OutcomeProcessed
}

func (w *Worker) update(ctx context.Context, rec *webhook.Record) {
	// the final write must land even when the run was cancelled
	if err := w.store.Update(context.WithoutCancel(ctx), rec); err != nil {
		w.logger.Error("Failed to update webhook record", "config", rec.ConfigName, "record", rec.ID, "status", rec.Status, "error", err)
	}
}
