package pipeline

import (
	"context"
	"fmt"
	"time"

	"hookbox/internal/webhook"
)

// ConfigLookup finds the resolved config a record was admitted under.
type ConfigLookup interface {
	Get(name string) (*webhook.Config, error)
}

// ReconcileResult summarises a reconcile sweep.
type ReconcileResult struct {
	Scanned  int
	Settled  map[webhook.State]int
	Orphaned int // records whose config no longer exists
}

// Reconcile re-settles records left in status by a crash between persisting
// and enqueueing. Only records created before olderThan are considered.
func (p *Pipeline) Reconcile(ctx context.Context, configs ConfigLookup, status string, olderThan time.Time, limit int) (*ReconcileResult, error) {
	stale, err := p.store.Stale(ctx, status, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale records: %w", err)
	}

	result := &ReconcileResult{Settled: make(map[webhook.State]int)}
	for _, rec := range stale {
		result.Scanned++

		cfg, err := configs.Get(rec.ConfigName)
		if err != nil {
			result.Orphaned++
			p.logger.Warn("Skipping record of unknown config", "config", rec.ConfigName, "record", rec.ID)
			continue
		}

		state := p.Settle(ctx, cfg, rec)
		result.Settled[state]++
	}

	if result.Scanned > 0 {
		p.logger.Info("Reconcile finished", "status", status, "scanned", result.Scanned, "orphaned", result.Orphaned)
	}
	return result, nil
}
