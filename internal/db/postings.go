package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/job-digest/internal/types"
)

// -----------------------------------------------------------------------------
// Job Posting Methods
// -----------------------------------------------------------------------------

const postingColumns = `id, company_name, job_title, position_name,
		experience_level, education, employment_type, job_role,
		application_deadline_date, application_link, created_at`

// ListActivePostings returns postings whose deadline is on or after asOf
// (or absent), newest first. Unknown-value markers are read as absent.
func (db *DB) ListActivePostings(ctx context.Context, asOf time.Time) ([]types.JobPosting, error) {
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := db.pool.Query(ctx,
		`SELECT `+postingColumns+`
		 FROM job_postings
		 WHERE application_deadline_date IS NULL OR application_deadline_date >= $1
		 ORDER BY created_at DESC, id`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active postings: %w", err)
	}
	defer rows.Close()

	var postings []types.JobPosting
	for rows.Next() {
		var p types.JobPosting
		if err := rows.Scan(&p.ID, &p.CompanyName, &p.JobTitle, &p.PositionName,
			&p.ExperienceLevel, &p.EducationRequirement, &p.EmploymentType, &p.JobRole,
			&p.ApplicationDeadline, &p.ApplicationLink, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		normalizePosting(&p)
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate postings: %w", err)
	}
	return postings, nil
}

// UpsertPosting inserts or replaces a posting by ID. A posting without an ID
// is assigned a new one, which is written back to p.
func (db *DB) UpsertPosting(ctx context.Context, p *types.JobPosting) error {
	if strings.TrimSpace(p.CompanyName) == "" {
		return fmt.Errorf("posting company name is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_postings (`+postingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		     company_name = $2, job_title = $3, position_name = $4,
		     experience_level = $5, education = $6, employment_type = $7, job_role = $8,
		     application_deadline_date = $9, application_link = $10`,
		p.ID, p.CompanyName, p.JobTitle, p.PositionName,
		types.NormalizeOptional(p.ExperienceLevel), types.NormalizeOptional(p.EducationRequirement),
		types.NormalizeOptional(p.EmploymentType), types.NormalizeOptional(p.JobRole),
		p.ApplicationDeadline, p.ApplicationLink, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert posting %s: %w", p.ID, err)
	}
	return nil
}

func normalizePosting(p *types.JobPosting) {
	p.ExperienceLevel = types.NormalizeOptional(p.ExperienceLevel)
	p.EducationRequirement = types.NormalizeOptional(p.EducationRequirement)
	p.EmploymentType = types.NormalizeOptional(p.EmploymentType)
	p.JobRole = types.NormalizeOptional(p.JobRole)
}
