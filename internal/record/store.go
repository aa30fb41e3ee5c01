// Package record persists webhook records. The SQL store backs both SQLite
// (the default, single file) and PostgreSQL; the memory store serves tests and
// single-process trials.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hookbox/internal/webhook"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("webhook record not found")

// ErrStatusChanged is returned by Transition when the stored status no longer
// matches the one the caller read.
var ErrStatusChanged = errors.New("webhook record status changed")

// Store is the persistence boundary used by the pipeline and the workers.
// Create, Update and Transition are each atomic; nothing spans two calls.
type Store interface {
	Create(ctx context.Context, rec *webhook.Record) error
	Update(ctx context.Context, rec *webhook.Record) error
	// Transition writes rec like Update, but only while the stored status is
	// still from.
	Transition(ctx context.Context, rec *webhook.Record, from string) error
	Get(ctx context.Context, id string) (*webhook.Record, error)
	Recent(ctx context.Context, configName string, limit int) ([]*webhook.Record, error)
	Stale(ctx context.Context, status string, olderThan time.Time, limit int) ([]*webhook.Record, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Backends accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Open creates the store for backend. dsn is a file path for sqlite and a
// connection URL for postgres; memory ignores it.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (expected sqlite, postgres or memory)", backend)
	}
}

// clone copies rec so callers never share a record with the store.
func clone(rec *webhook.Record) *webhook.Record {
	cp := *rec
	cp.Headers = append([]webhook.Header(nil), rec.Headers...)
	cp.Payload = append([]byte(nil), rec.Payload...)
	if rec.Exception != nil {
		e := *rec.Exception
		cp.Exception = &e
	}
	if rec.ProcessedAt != nil {
		p := *rec.ProcessedAt
		cp.ProcessedAt = &p
	}
	cp.ParsedPayload = copyObject(rec.ParsedPayload)
	return &cp
}

// copyObject deep-copies a parsed payload through its JSON form, so the memory
// store hands back the same shapes the SQL store decodes.
func copyObject(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
