package record

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hookbox/internal/webhook"
)

// Memory is an in-process Store. Records are copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*webhook.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*webhook.Record)}
}

func (m *Memory) Create(_ context.Context, rec *webhook.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return fmt.Errorf("webhook record %s already exists", rec.ID)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *Memory) Update(_ context.Context, rec *webhook.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.records[rec.ID]
	if !exists {
		return ErrNotFound
	}
	m.write(stored, rec)
	return nil
}

func (m *Memory) Transition(_ context.Context, rec *webhook.Record, from string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.records[rec.ID]
	if !exists {
		return ErrNotFound
	}
	if stored.Status != from {
		return ErrStatusChanged
	}
	m.write(stored, rec)
	return nil
}

// write applies the mutable fields of rec over stored. Callers hold mu.
func (m *Memory) write(stored, rec *webhook.Record) {
	rec.UpdatedAt = time.Now().UTC()
	incoming := clone(rec)
	updated := clone(stored)
	updated.Status = incoming.Status
	updated.Exception = incoming.Exception
	updated.Attempts = incoming.Attempts
	updated.UpdatedAt = incoming.UpdatedAt
	updated.ProcessedAt = incoming.ProcessedAt
	m.records[rec.ID] = updated
}

func (m *Memory) Get(_ context.Context, id string) (*webhook.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[id]
	if !exists {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *Memory) Recent(_ context.Context, configName string, limit int) ([]*webhook.Record, error) {
	return m.filter(func(r *webhook.Record) bool {
		return configName == "" || r.ConfigName == configName
	}, true, limit), nil
}

func (m *Memory) Stale(_ context.Context, status string, olderThan time.Time, limit int) ([]*webhook.Record, error) {
	return m.filter(func(r *webhook.Record) bool {
		return r.Status == status && r.CreatedAt.Before(olderThan)
	}, false, limit), nil
}

func (m *Memory) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, rec := range m.records {
		if rec.CreatedAt.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) filter(keep func(*webhook.Record) bool, newestFirst bool, limit int) []*webhook.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*webhook.Record
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, clone(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
