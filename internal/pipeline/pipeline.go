// Package pipeline runs the admission state machine for inbound webhooks:
// verify the signature, persist the record, respond, then filter and enqueue
// in the background.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hookbox/internal/metrics"
	"hookbox/internal/queue"
	"hookbox/internal/record"
	"hookbox/internal/webhook"
)

// DefaultSettleTimeout bounds the profile and enqueue step of one record.
const DefaultSettleTimeout = 30 * time.Second

// Pipeline admits requests against resolved configs. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	store         record.Store
	queue         queue.Queue
	logger        *slog.Logger
	settleTimeout time.Duration
	settleWg      sync.WaitGroup // in-flight background settles
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithSettleTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.settleTimeout = d }
}

func New(store record.Store, q queue.Queue, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		queue:         q,
		logger:        slog.Default(),
		settleTimeout: DefaultSettleTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Admit verifies and stores req, then hands the configured response to
// respond. Only after respond returns is the record filtered and enqueued, in
// a goroutine that outlives the request context.
//
// A rejected signature returns a SignatureRejected error and stores nothing.
// A storage failure returns a PersistenceFailure error; respond is not called
// in either case.
func (p *Pipeline) Admit(ctx context.Context, cfg *webhook.Config, req *webhook.Request, respond func(webhook.Response) error) (*webhook.Admission, error) {
	adm := &webhook.Admission{State: webhook.StateReceived}

	if !cfg.SignatureValidator.Verify(req.Header, req.Body, cfg.SigningSecret, cfg.SignatureHeaderName) {
		adm.State = webhook.StateRejectedSignature
		metrics.Admissions.WithLabelValues(cfg.Name, string(adm.State)).Inc()
		p.logger.Warn("Webhook signature rejected", "config", cfg.Name, "url", req.URL)
		return adm, webhook.SignatureRejected(cfg.Name)
	}
	adm.State = webhook.StateSignatureChecked

	rec, err := cfg.RecordFactory.NewRecord(cfg.Name, req, cfg.StoreHeaders)
	if err == nil {
		rec.SignatureValid = true
		rec.Status = webhook.StatusReceived
		err = p.store.Create(ctx, rec)
	}
	if err != nil {
		metrics.Admissions.WithLabelValues(cfg.Name, "persist_failed").Inc()
		p.logger.Error("Failed to store webhook record", "config", cfg.Name, "error", err)
		return adm, webhook.PersistenceFailure(cfg.Name, err)
	}
	adm.Record = rec
	adm.State = webhook.StatePersisted

	adm.Response = cfg.Response.Respond(req)
	if respond != nil {
		if err := respond(adm.Response); err != nil {
			// the record is stored, so processing still goes ahead
			p.logger.Warn("Failed to write webhook response", "config", cfg.Name, "record", rec.ID, "error", err)
		}
	}
	adm.State = webhook.StateResponded
	metrics.Admissions.WithLabelValues(cfg.Name, string(adm.State)).Inc()

	p.logger.Info("Webhook admitted", "config", cfg.Name, "record", rec.ID, "status", adm.Response.StatusCode)

	settled := *rec
	p.settleWg.Add(1)
	go func() {
		defer p.settleWg.Done()

		settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.settleTimeout)
		defer cancel()

		p.Settle(settleCtx, cfg, &settled)
	}()

	return adm, nil
}

// Settle runs the profile against a stored record and enqueues a task when it
// accepts. Profile and enqueue errors (and profile panics) are recorded on the
// record with status failed; they never propagate.
//
// Every status write is conditional on the status rec carried in. When the
// stored record has moved on, Settle leaves it alone and returns
// StateSuperseded without enqueueing.
func (p *Pipeline) Settle(ctx context.Context, cfg *webhook.Config, rec *webhook.Record) webhook.State {
	state := p.settle(ctx, cfg, rec)
	metrics.Settlements.WithLabelValues(cfg.Name, string(state)).Inc()
	return state
}

func (p *Pipeline) settle(ctx context.Context, cfg *webhook.Config, rec *webhook.Record) webhook.State {
	from := rec.Status

	ok, err := shouldProcess(ctx, cfg.Profile, rec)
	if err != nil {
		return p.fail(ctx, rec, from, "profile", err)
	}

	if !ok {
		rec.Status = webhook.StatusRejected
		if !p.transition(ctx, rec, from) {
			return webhook.StateSuperseded
		}
		p.logger.Info("Webhook filtered out by profile", "config", cfg.Name, "record", rec.ID, "profile", cfg.ProfileName)
		return webhook.StateRejectedProfile
	}

	task := cfg.Job.NewTask(rec)
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	// queued is written first so a fast worker's update is never overwritten
	rec.Status = webhook.StatusQueued
	rec.SetException(nil)
	if !p.transition(ctx, rec, from) {
		return webhook.StateSuperseded
	}

	if err := p.queue.Enqueue(ctx, task); err != nil {
		return p.fail(ctx, rec, webhook.StatusQueued, "enqueue", err)
	}

	p.logger.Info("Webhook enqueued", "config", cfg.Name, "record", rec.ID, "task", task.ID, "job", task.Job)
	return webhook.StateEnqueued
}

// fail records a deferral failure on the record.
func (p *Pipeline) fail(ctx context.Context, rec *webhook.Record, from, stage string, cause error) webhook.State {
	failure := webhook.DeferralFailure(rec.ID, stage, cause)

	rec.Status = webhook.StatusFailed
	rec.SetException(errors.New(webhook.ExceptionText(failure)))
	if !p.transition(ctx, rec, from) {
		return webhook.StateSuperseded
	}

	p.logger.Error("Failed to hand off webhook record",
		"config", rec.ConfigName,
		"record", rec.ID,
		"stage", stage,
		"error", failure,
	)
	return webhook.StateDeferralFailed
}

// transition writes rec if its stored status is still from. It reports false
// only when another writer got there first; other store errors are logged and
// settling carries on.
func (p *Pipeline) transition(ctx context.Context, rec *webhook.Record, from string) bool {
	err := p.store.Transition(ctx, rec, from)
	switch {
	case err == nil:
		return true
	case errors.Is(err, record.ErrStatusChanged):
		p.logger.Info("Record changed while settling, leaving it", "config", rec.ConfigName, "record", rec.ID, "expected", from)
		return false
	default:
		p.logger.Error("Failed to update webhook record", "config", rec.ConfigName, "record", rec.ID, "status", rec.Status, "error", err)
		return true
	}
}

func shouldProcess(ctx context.Context, profile webhook.Profile, rec *webhook.Record) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("profile panicked: %v", r)
		}
	}()
	return profile.ShouldProcess(ctx, rec)
}

// Wait blocks until every background settle has finished.
func (p *Pipeline) Wait() {
	p.settleWg.Wait()
}
