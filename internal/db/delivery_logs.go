package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/job-digest/internal/types"
)

// -----------------------------------------------------------------------------
// Delivery Log Methods
// -----------------------------------------------------------------------------

// InsertDeliveryLog appends one delivery outcome to email_send_logs.
func (db *DB) InsertDeliveryLog(ctx context.Context, rec *types.DeliveryRecord) error {
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO email_send_logs (run_id, user_id, user_email, email_subject, email_type,
		                              status, error_message, recommended_jobs_count, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.RunID, nullable(rec.UserID), rec.Email, rec.Subject, rec.Type,
		rec.Status, nullable(rec.ErrorMessage), rec.RecommendedCount, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log for %s: %w", rec.Email, err)
	}
	return nil
}

// ListDeliveryLogs returns the records of one run in insertion order.
func (db *DB) ListDeliveryLogs(ctx context.Context, runID string) ([]types.DeliveryRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, COALESCE(user_id, ''), user_email, email_subject, email_type,
		        status, COALESCE(error_message, ''), recommended_jobs_count, sent_at
		 FROM email_send_logs
		 WHERE run_id = $1
		 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer rows.Close()

	var records []types.DeliveryRecord
	for rows.Next() {
		var r types.DeliveryRecord
		if err := rows.Scan(&r.RunID, &r.UserID, &r.Email, &r.Subject, &r.Type,
			&r.Status, &r.ErrorMessage, &r.RecommendedCount, &r.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery logs: %w", err)
	}
	return records, nil
}
