package pipeline

import (
	"context"
	"testing"
	"time"

	"hookbox/internal/config"
	"hookbox/internal/queue"
	"hookbox/internal/record"
	"hookbox/internal/webhook"
)

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemory()
	q := queue.NewMemory(8, time.Second)
	p := newPipeline(store, q)

	set, err := config.NewSet(stripeConfig(t))
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	old := time.Now().UTC().Add(-time.Hour)
	for _, rec := range []*webhook.Record{
		{ID: "stuck", ConfigName: "stripe", Status: webhook.StatusReceived, CreatedAt: old},
		{ID: "orphan", ConfigName: "removed", Status: webhook.StatusReceived, CreatedAt: old},
		{ID: "fresh", ConfigName: "stripe", Status: webhook.StatusReceived, CreatedAt: time.Now().UTC()},
		{ID: "done", ConfigName: "stripe", Status: webhook.StatusProcessed, CreatedAt: old},
	} {
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	result, err := p.Reconcile(ctx, set, webhook.StatusReceived, time.Now().UTC().Add(-10*time.Minute), 100)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if result.Scanned != 2 || result.Orphaned != 1 || result.Settled[webhook.StateEnqueued] != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 task, got %d", q.Len())
	}

	stuck, _ := store.Get(ctx, "stuck")
	if stuck.Status != webhook.StatusQueued {
		t.Errorf("Expected stuck record to be queued, got %s", stuck.Status)
	}
	fresh, _ := store.Get(ctx, "fresh")
	if fresh.Status != webhook.StatusReceived {
		t.Errorf("Fresh record must be left alone, got %s", fresh.Status)
	}
}

func TestReconcile_SkipsRecordFinishedMeanwhile(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemory()
	q := queue.NewMemory(8, time.Second)
	p := newPipeline(store, q)
	cfg := stripeConfig(t)

	old := time.Now().UTC().Add(-time.Hour)
	if err := store.Create(ctx, &webhook.Record{ID: "slow", ConfigName: "stripe", Status: webhook.StatusQueued, CreatedAt: old}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stale, err := store.Stale(ctx, webhook.StatusQueued, time.Now().UTC(), 10)
	if err != nil || len(stale) != 1 {
		t.Fatalf("Expected one stale record, got %d (%v)", len(stale), err)
	}

	// a worker finishes the record after the sweep read it
	done := *stale[0]
	processed := time.Now().UTC()
	done.Status = webhook.StatusProcessed
	done.Attempts = 1
	done.ProcessedAt = &processed
	if err := store.Update(ctx, &done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if state := p.Settle(ctx, cfg, stale[0]); state != webhook.StateSuperseded {
		t.Errorf("Expected superseded, got %s", state)
	}
	if q.Len() != 0 {
		t.Errorf("Expected no task for a processed record, got %d", q.Len())
	}

	got, _ := store.Get(ctx, "slow")
	if got.Status != webhook.StatusProcessed || got.Attempts != 1 {
		t.Errorf("Expected processed record to be left alone, got %s after %d attempts", got.Status, got.Attempts)
	}
}
