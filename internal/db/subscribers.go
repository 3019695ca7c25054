package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/job-digest/internal/types"
)

// -----------------------------------------------------------------------------
// Subscriber Methods
// -----------------------------------------------------------------------------

// ListActiveSubscribers returns every user who consented to receive digests,
// ordered by email.
func (db *DB) ListActiveSubscribers(ctx context.Context) ([]types.Subscriber, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id::text, email, name
		 FROM users
		 WHERE consent = $1
		 ORDER BY email`,
		ConsentYes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []types.Subscriber
	for rows.Next() {
		var s types.Subscriber
		if err := rows.Scan(&s.UserID, &s.Email, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}
	return subscribers, nil
}

// GetPreferenceProfile loads the preference profile of the user with the
// given email. Returns nil, nil when no such user exists.
func (db *DB) GetPreferenceProfile(ctx context.Context, email string) (*types.PreferenceProfile, error) {
	var r profileRow
	err := db.pool.QueryRow(ctx,
		`SELECT u.user_id::text, u.email, u.name,
		        u.target_edu, u.target_career, u.target_emp_type,
		        u.target_job_role1, u.target_job_role2, u.target_job_role3,
		        c.target_companies_json
		 FROM users u
		 LEFT JOIN user_target_companies c ON c.user_id = u.user_id
		 WHERE u.email = $1`,
		strings.TrimSpace(email),
	).Scan(&r.UserID, &r.Email, &r.Name,
		&r.Education, &r.Career, &r.EmploymentTypes,
		&r.JobRole1, &r.JobRole2, &r.JobRole3,
		&r.PreferredCompanies)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preference profile: %w", err)
	}
	return r.toProfile(), nil
}

// UpsertSubscriber inserts or updates a user by email together with the
// preferred-company list, and returns the user ID.
func (db *DB) UpsertSubscriber(ctx context.Context, s Subscriber) (string, error) {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return "", fmt.Errorf("subscriber email is required")
	}
	if len(s.JobRoles) > types.MaxJobRoles {
		return "", fmt.Errorf("subscriber %s has %d job roles, at most %d allowed", email, len(s.JobRoles), types.MaxJobRoles)
	}
	roles := make([]*string, types.MaxJobRoles)
	for i, role := range s.JobRoles {
		roles[i] = nullable(strings.TrimSpace(role))
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID string
	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, name, consent, target_edu, target_career, target_emp_type,
		                    target_job_role1, target_job_role2, target_job_role3)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (email) DO UPDATE SET
		     name = $2, consent = $3, target_edu = $4, target_career = $5, target_emp_type = $6,
		     target_job_role1 = $7, target_job_role2 = $8, target_job_role3 = $9
		 RETURNING user_id::text`,
		email, s.Name, consentFlag(s.Consent),
		nullable(strings.Join(s.Education, ",")), nullable(s.Career), nullable(strings.Join(s.EmploymentTypes, ",")),
		roles[0], roles[1], roles[2],
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert subscriber: %w", err)
	}

	var companiesJSON *string
	if len(s.PreferredCompanies) > 0 {
		data, err := json.Marshal(s.PreferredCompanies)
		if err != nil {
			return "", fmt.Errorf("failed to marshal preferred companies: %w", err)
		}
		encoded := string(data)
		companiesJSON = &encoded
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO user_target_companies (user_id, target_companies_json)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET target_companies_json = $2`,
		userID, companiesJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save preferred companies: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit subscriber: %w", err)
	}
	return userID, nil
}

// SetConsent updates the consent flag of a user. Returns an error when the
// user does not exist.
func (db *DB) SetConsent(ctx context.Context, userID string, consent bool) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET consent = $1 WHERE user_id = $2`,
		consentFlag(consent), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}
