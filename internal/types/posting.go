package types

import (
	"strings"
	"time"
)

// UnknownMarker is the placeholder some upstream producers write for a field
// they could not determine. It is read as an absent value.
const UnknownMarker = "확인불가"

// RollingDeadline is the sentinel deadline used for postings that recruit
// continuously.
var RollingDeadline = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// JobPosting represents one normalized open job posting.
// Nil requirement fields mean the requirement is unspecified.
type JobPosting struct {
	ID           string `json:"id"`
	CompanyName  string `json:"company_name"`
	JobTitle     string `json:"job_title"`
	PositionName string `json:"position_name,omitempty"`

	ExperienceLevel      *string `json:"experience_level,omitempty"`
	EducationRequirement *string `json:"education,omitempty"`
	EmploymentType       *string `json:"employment_type,omitempty"`
	JobRole              *string `json:"job_role,omitempty"`

	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`
	ApplicationLink     string     `json:"application_link,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// IsRolling reports whether the posting recruits continuously.
func (j *JobPosting) IsRolling() bool {
	return j.ApplicationDeadline != nil && IsRollingDeadline(*j.ApplicationDeadline)
}

// IsOpen reports whether the posting is still accepting applications on the
// given day. Postings without a deadline are treated as open.
func (j *JobPosting) IsOpen(today time.Time) bool {
	if j.ApplicationDeadline == nil || j.IsRolling() {
		return true
	}
	deadline := truncateDay(*j.ApplicationDeadline)
	return !deadline.Before(truncateDay(today))
}

// IsRollingDeadline reports whether t is the rolling-recruitment sentinel date.
func IsRollingDeadline(t time.Time) bool {
	return t.Year() == RollingDeadline.Year() && t.Month() == RollingDeadline.Month() && t.Day() == RollingDeadline.Day()
}

// OptionalString trims s and returns nil for blank values and the unknown
// marker, so "unspecified" is never represented as a sentinel string.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == UnknownMarker {
		return nil
	}
	return &s
}

// NormalizeOptional re-applies OptionalString to an already optional value.
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return OptionalString(*s)
}

// Value returns the dereferenced string or "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
