package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"hookbox/internal/webhook"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type dialect struct {
	name        string
	payloadType string
	dollarArgs  bool
}

var (
	sqliteDialect   = dialect{name: BackendSQLite, payloadType: "BLOB"}
	postgresDialect = dialect{name: BackendPostgres, payloadType: "BYTEA", dollarArgs: true}
)

// SQLStore keeps records in a single webhook_records table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLStore{db: db, dialect: sqliteDialect}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, url string) (*SQLStore, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres store requires a database URL")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := NewPostgres(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing connection pool without migrating it.
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: postgresDialect}
}

// Migrate creates the table and indexes when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS webhook_records (
			id TEXT PRIMARY KEY,
			config_name TEXT NOT NULL,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			headers TEXT NOT NULL,
			payload ` + s.dialect.payloadType + `,
			parsed_payload TEXT,
			signature_valid BOOLEAN NOT NULL,
			status TEXT NOT NULL,
			exception TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			processed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_config_created
			ON webhook_records(config_name, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status_created
			ON webhook_records(status, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Create(ctx context.Context, rec *webhook.Record) error {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	var parsed *string
	if rec.ParsedPayload != nil {
		data, err := json.Marshal(rec.ParsedPayload)
		if err != nil {
			return fmt.Errorf("failed to encode parsed payload: %w", err)
		}
		text := string(data)
		parsed = &text
	}

	_, err = s.db.ExecContext(ctx, s.bind(`
		INSERT INTO webhook_records
		(id, config_name, method, url, headers, payload, parsed_payload, signature_valid,
		 status, exception, attempts, created_at, updated_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		rec.ID,
		rec.ConfigName,
		rec.Method,
		rec.URL,
		string(headers),
		rec.Payload,
		parsed,
		rec.SignatureValid,
		rec.Status,
		rec.Exception,
		rec.Attempts,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		formatTimePtr(rec.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook record: %w", err)
	}
	return nil
}

// Update writes the mutable fields: status, exception, attempts and
// processed_at.
func (s *SQLStore) Update(ctx context.Context, rec *webhook.Record) error {
	rec.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, s.bind(`
		UPDATE webhook_records
		SET status = ?, exception = ?, attempts = ?, updated_at = ?, processed_at = ?
		WHERE id = ?
	`),
		rec.Status,
		rec.Exception,
		rec.Attempts,
		formatTime(rec.UpdatedAt),
		formatTimePtr(rec.ProcessedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition is Update guarded by the stored status.
func (s *SQLStore) Transition(ctx context.Context, rec *webhook.Record, from string) error {
	rec.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, s.bind(`
		UPDATE webhook_records
		SET status = ?, exception = ?, attempts = ?, updated_at = ?, processed_at = ?
		WHERE id = ? AND status = ?
	`),
		rec.Status,
		rec.Exception,
		rec.Attempts,
		formatTime(rec.UpdatedAt),
		formatTimePtr(rec.ProcessedAt),
		rec.ID,
		from,
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, s.bind(`SELECT COUNT(*) FROM webhook_records WHERE id = ?`), rec.ID).Scan(&count); err != nil {
		return fmt.Errorf("failed to query webhook record: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}

const selectColumns = `
	SELECT id, config_name, method, url, headers, payload, parsed_payload, signature_valid,
	       status, exception, attempts, created_at, updated_at, processed_at
	FROM webhook_records`

func (s *SQLStore) Get(ctx context.Context, id string) (*webhook.Record, error) {
	row := s.db.QueryRowContext(ctx, s.bind(selectColumns+` WHERE id = ?`), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook record: %w", err)
	}
	return rec, nil
}

// Recent returns the newest records, for one config or for all when
// configName is empty.
func (s *SQLStore) Recent(ctx context.Context, configName string, limit int) ([]*webhook.Record, error) {
	if configName == "" {
		return s.query(ctx, selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	}
	return s.query(ctx, selectColumns+` WHERE config_name = ? ORDER BY created_at DESC LIMIT ?`, configName, limit)
}

// Stale returns the oldest records still in status created before olderThan.
func (s *SQLStore) Stale(ctx context.Context, status string, olderThan time.Time, limit int) ([]*webhook.Record, error) {
	return s.query(ctx,
		selectColumns+` WHERE status = ? AND created_at < ? ORDER BY created_at LIMIT ?`,
		status, formatTime(olderThan), limit)
}

// DeleteBefore removes records created before the cutoff.
func (s *SQLStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM webhook_records WHERE created_at < ?`), formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to delete webhook records: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]*webhook.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook records: %w", err)
	}
	defer rows.Close()

	var records []*webhook.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// bind rewrites ? placeholders as $n for postgres.
func (s *SQLStore) bind(query string) string {
	if !s.dialect.dollarArgs {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanner is implemented by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*webhook.Record, error) {
	var rec webhook.Record
	var headers, createdAt, updatedAt string
	var parsed, exception, processedAt sql.NullString

	err := s.Scan(
		&rec.ID,
		&rec.ConfigName,
		&rec.Method,
		&rec.URL,
		&headers,
		&rec.Payload,
		&parsed,
		&rec.SignatureValid,
		&rec.Status,
		&exception,
		&rec.Attempts,
		&createdAt,
		&updatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(headers), &rec.Headers); err != nil {
		return nil, fmt.Errorf("failed to decode headers: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	if processedAt.Valid {
		t, err := time.Parse(timeFormat, processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse processed_at timestamp: %w", err)
		}
		rec.ProcessedAt = &t
	}
	if exception.Valid {
		rec.Exception = &exception.String
	}
	if parsed.Valid {
		if err := json.Unmarshal([]byte(parsed.String), &rec.ParsedPayload); err != nil {
			return nil, fmt.Errorf("failed to decode parsed payload: %w", err)
		}
	}

	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
