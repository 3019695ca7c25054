package db

import (
	"context"
	"fmt"
)

// schemaStatements create the tables the mailer reads and writes. Every
// statement is idempotent.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email              TEXT NOT NULL UNIQUE,
		name               TEXT NOT NULL DEFAULT '',
		consent            CHAR(1) NOT NULL DEFAULT 'N',
		target_edu         TEXT,
		target_career      TEXT,
		target_emp_type    TEXT,
		target_job_role1   TEXT,
		target_job_role2   TEXT,
		target_job_role3   TEXT,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_target_companies (
		user_id                UUID PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
		target_companies_json  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS job_postings (
		id                         TEXT PRIMARY KEY,
		company_name               TEXT NOT NULL,
		job_title                  TEXT NOT NULL DEFAULT '',
		position_name              TEXT NOT NULL DEFAULT '',
		experience_level           TEXT,
		education                  TEXT,
		employment_type            TEXT,
		job_role                   TEXT,
		application_deadline_date  DATE,
		application_link           TEXT NOT NULL DEFAULT '',
		created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS job_postings_deadline_idx ON job_postings (application_deadline_date)`,
	`CREATE TABLE IF NOT EXISTS email_send_logs (
		id                      BIGSERIAL PRIMARY KEY,
		run_id                  TEXT NOT NULL,
		user_id                 TEXT,
		user_email              TEXT NOT NULL,
		email_subject           TEXT NOT NULL DEFAULT '',
		email_type              TEXT NOT NULL,
		status                  TEXT NOT NULL,
		error_message           TEXT,
		recommended_jobs_count  INTEGER NOT NULL DEFAULT 0,
		sent_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS email_send_logs_run_idx ON email_send_logs (run_id)`,
}

// EnsureSchema creates any missing tables and indexes.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
