// Package filesource reads job postings and subscriber profiles from local
// JSON files, as written by the upstream crawler and by hand for test runs.
package filesource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/schemas"
	"github.com/jonathan/job-digest/internal/types"
)

// postingRecord is the on-disk posting shape. Crawler output uses the
// min_* and *_date field names; both spellings are accepted.
type postingRecord struct {
	ID                      flexibleID `json:"id"`
	CompanyName             string     `json:"company_name"`
	JobTitle                string     `json:"job_title"`
	PositionName            string     `json:"position_name"`
	ExperienceLevel         string     `json:"experience_level"`
	MinExperienceLevel      string     `json:"min_experience_level"`
	Education               string     `json:"education"`
	MinEducationLevel       string     `json:"min_education_level"`
	EmploymentType          string     `json:"employment_type"`
	JobRole                 string     `json:"job_role"`
	ApplicationDeadline     string     `json:"application_deadline"`
	ApplicationDeadlineDate string     `json:"application_deadline_date"`
	ApplicationLink         string     `json:"application_link"`
	CreatedAt               string     `json:"created_at"`
}

// flexibleID accepts both string and numeric IDs.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// PostingDir serves the open postings found in a directory.
type PostingDir struct {
	Dir string
}

// ActivePostings loads the directory and keeps postings open on asOf.
func (p PostingDir) ActivePostings(_ context.Context, asOf time.Time) ([]types.JobPosting, error) {
	return LoadPostings(p.Dir, asOf)
}

// LoadPostings reads every *.json file in dir. A file holds one posting or an
// array of them. Files that cannot be read, parsed or validated are logged
// and skipped. Postings whose deadline passed before today are dropped. The
// result is ordered newest first.
func LoadPostings(dir string, today time.Time) ([]types.JobPosting, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read postings directory %s: %w", dir, err)
	}

	validator := loadValidator(schemas.JobPostingSchema)

	var postings []types.JobPosting
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		loaded, err := readPostingFile(path, validator)
		if err != nil {
			log.Printf("[filesource] skipping %s: %v", path, err)
			continue
		}
		for _, posting := range loaded {
			if posting.IsOpen(today) {
				postings = append(postings, posting)
			}
		}
	}

	sort.SliceStable(postings, func(i, j int) bool {
		return postings[i].CreatedAt.After(postings[j].CreatedAt)
	})
	return postings, nil
}

// ValidatePostingsDir checks every *.json file in dir against the posting
// schema and returns the per-file errors. A nil map means every file passed.
func ValidatePostingsDir(dir, schemaPath string) (map[string]error, int, error) {
	v, err := schemas.Load(schemaPath)
	if err != nil {
		return nil, 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read postings directory %s: %w", dir, err)
	}

	var failures map[string]error
	checked := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		checked++
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err == nil {
			err = v.ValidateBytes(entry.Name(), data)
		}
		if err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[entry.Name()] = err
		}
	}
	return failures, checked, nil
}

func readPostingFile(path string, validator *schemas.Validator) ([]types.JobPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if validator != nil {
		if err := validator.ValidateBytes(filepath.Base(path), data); err != nil {
			return nil, err
		}
	}

	var records []postingRecord
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to parse postings: %w", err)
		}
	} else {
		var rec postingRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse posting: %w", err)
		}
		records = []postingRecord{rec}
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	postings := make([]types.JobPosting, 0, len(records))
	for i, rec := range records {
		posting, err := rec.toPosting()
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		if posting.ID == "" {
			posting.ID = base
			if len(records) > 1 {
				posting.ID = base + "#" + strconv.Itoa(i)
			}
		}
		postings = append(postings, posting)
	}
	return postings, nil
}

func (r postingRecord) toPosting() (types.JobPosting, error) {
	if strings.TrimSpace(r.CompanyName) == "" {
		return types.JobPosting{}, fmt.Errorf("company_name is required")
	}
	p := types.JobPosting{
		ID:                   strings.TrimSpace(string(r.ID)),
		CompanyName:          strings.TrimSpace(r.CompanyName),
		JobTitle:             strings.TrimSpace(r.JobTitle),
		PositionName:         strings.TrimSpace(r.PositionName),
		ExperienceLevel:      optional(firstNonEmpty(r.ExperienceLevel, r.MinExperienceLevel)),
		EducationRequirement: optional(firstNonEmpty(r.Education, r.MinEducationLevel)),
		EmploymentType:       optional(r.EmploymentType),
		JobRole:              optional(r.JobRole),
		ApplicationLink:      strings.TrimSpace(r.ApplicationLink),
	}

	// Unparsable dates degrade to absent; the posting itself is kept.
	if raw := firstNonEmpty(r.ApplicationDeadline, r.ApplicationDeadlineDate); raw != "" {
		if deadline, err := parseDate(raw); err != nil {
			log.Printf("[filesource] %s: ignoring application deadline %q: %v", p.CompanyName, raw, err)
		} else {
			p.ApplicationDeadline = &deadline
		}
	}
	if raw := strings.TrimSpace(r.CreatedAt); raw != "" {
		if createdAt, err := parseTimestamp(raw); err != nil {
			log.Printf("[filesource] %s: ignoring created_at %q: %v", p.CompanyName, raw, err)
		} else {
			p.CreatedAt = createdAt
		}
	}
	return p, nil
}

// optional reads "", the unknown marker and prefixed forms such as
// "학력_확인불가" as absent.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "_"+types.UnknownMarker) {
		return nil
	}
	return types.OptionalString(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseDate(raw string) (time.Time, error) {
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD")
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// loadValidator compiles the named schema when it can be found relative to
// the working directory. Validation is skipped otherwise.
func loadValidator(relativePath string) *schemas.Validator {
	path := schemas.ResolveSchemaPath(relativePath)
	if path == "" {
		return nil
	}
	v, err := schemas.Load(path)
	if err != nil {
		log.Printf("[filesource] schema %s unusable, skipping validation: %v", path, err)
		return nil
	}
	return v
}
