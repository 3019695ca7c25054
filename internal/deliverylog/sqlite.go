// Package deliverylog records per-subscriber delivery outcomes for runs that
// have no PostgreSQL store, and fans records out to several recorders.
package deliverylog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/job-digest/internal/types"

	_ "modernc.org/sqlite"
)

// schemaVersion is the PRAGMA user_version written by migrate.
const schemaVersion = 1

// SQLiteLog is a delivery log stored in a local SQLite file.
type SQLiteLog struct {
	db *sql.DB
}

// Open opens (creating if needed) the log at path and applies migrations.
func Open(path string) (*SQLiteLog, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open delivery log %s: %w", path, err)
	}
	// Workers record concurrently; a single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open delivery log %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteLog{db: db}, nil
}

func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS email_send_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  user_email TEXT NOT NULL,
  email_subject TEXT NOT NULL DEFAULT '',
  email_type TEXT NOT NULL,
  status TEXT NOT NULL,
  error_message TEXT NOT NULL DEFAULT '',
  recommended_jobs_count INTEGER NOT NULL DEFAULT 0,
  sent_at TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("failed to create email_send_logs: %w", err)
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS email_send_logs_run_idx ON email_send_logs(run_id);`); err != nil {
		return fmt.Errorf("failed to create run index: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return tx.Commit()
}

// Record appends one delivery outcome.
func (l *SQLiteLog) Record(ctx context.Context, rec *types.DeliveryRecord) error {
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO email_send_logs (run_id, user_id, user_email, email_subject, email_type,
                             status, error_message, recommended_jobs_count, sent_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.RunID, rec.UserID, rec.Email, rec.Subject, rec.Type,
		rec.Status, rec.ErrorMessage, rec.RecommendedCount, sentAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery for %s: %w", rec.Email, err)
	}
	return nil
}

// List returns the records of one run in insertion order.
func (l *SQLiteLog) List(ctx context.Context, runID string) ([]types.DeliveryRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, user_id, user_email, email_subject, email_type,
       status, error_message, recommended_jobs_count, sent_at
FROM email_send_logs
WHERE run_id = ?
ORDER BY id;`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var records []types.DeliveryRecord
	for rows.Next() {
		var r types.DeliveryRecord
		var sentAt string
		if err := rows.Scan(&r.RunID, &r.UserID, &r.Email, &r.Subject, &r.Type,
			&r.Status, &r.ErrorMessage, &r.RecommendedCount, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		if r.SentAt, err = time.Parse(time.RFC3339Nano, sentAt); err != nil {
			return nil, fmt.Errorf("invalid sent_at %q: %w", sentAt, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Recorder is anything that stores delivery records.
type Recorder interface {
	Record(ctx context.Context, rec *types.DeliveryRecord) error
}

type multi []Recorder

// Multi records to every recorder in order. All recorders are attempted; the
// joined errors are returned.
func Multi(recorders ...Recorder) Recorder {
	var out multi
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) Record(ctx context.Context, rec *types.DeliveryRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
