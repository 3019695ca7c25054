// Package types provides type definitions for structured data used throughout the job-digest system.
package types

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxJobRoles is the number of ranked job-role targets a profile can carry.
const MaxJobRoles = 3

// PreferenceProfile represents a subscriber's structured hiring preferences.
// A profile is read fresh for every recommendation request and is never mutated.
type PreferenceProfile struct {
	UserID string `json:"user_id"`
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name,omitempty"`

	TargetEducationLevels []string `json:"target_education_levels,omitempty"`
	TargetExperience      *string  `json:"target_experience,omitempty"`
	TargetEmploymentTypes []string `json:"target_employment_types,omitempty"`
	// TargetJobRoles is positional: index 0 is the first-ranked role. Blank
	// entries keep their slot so later ranks are not promoted.
	TargetJobRoles     []string `json:"target_job_roles,omitempty" validate:"max=3"`
	PreferredCompanies []string `json:"preferred_companies,omitempty"`
}

// ProfileFields holds the raw preference columns as they are stored upstream
// (comma-separated lists, three role columns and a JSON-encoded company list).
type ProfileFields struct {
	UserID             string
	Email              string
	Name               string
	Education          *string
	Career             *string
	EmploymentTypes    *string
	JobRole1           *string
	JobRole2           *string
	JobRole3           *string
	PreferredCompanies *string
}

// NewPreferenceProfile builds a profile from raw stored columns.
func NewPreferenceProfile(f ProfileFields) *PreferenceProfile {
	p := &PreferenceProfile{
		UserID:                f.UserID,
		Email:                 strings.TrimSpace(f.Email),
		Name:                  strings.TrimSpace(f.Name),
		TargetEducationLevels: ParseList(deref(f.Education)),
		TargetExperience:      OptionalString(deref(f.Career)),
		TargetEmploymentTypes: ParseList(deref(f.EmploymentTypes)),
		PreferredCompanies:    ParsePreferredCompanies(deref(f.PreferredCompanies)),
	}

	roles := []string{
		strings.TrimSpace(deref(f.JobRole1)),
		strings.TrimSpace(deref(f.JobRole2)),
		strings.TrimSpace(deref(f.JobRole3)),
	}
	// Drop trailing blanks only; inner blanks hold a rank position.
	for len(roles) > 0 && roles[len(roles)-1] == "" {
		roles = roles[:len(roles)-1]
	}
	if len(roles) > 0 {
		p.TargetJobRoles = roles
	}

	return p
}

// Validate validates the PreferenceProfile using the validator.
func (p *PreferenceProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// ActiveRoles returns the non-blank job roles in rank order.
func (p *PreferenceProfile) ActiveRoles() []string {
	var roles []string
	for i, role := range p.TargetJobRoles {
		if i >= MaxJobRoles {
			break
		}
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// RoleRank returns the 1-based rank of role among the profile's targets, or 0
// when the role is not targeted.
func (p *PreferenceProfile) RoleRank(role string) int {
	for i, target := range p.TargetJobRoles {
		if i >= MaxJobRoles {
			break
		}
		target = strings.TrimSpace(target)
		if target != "" && target == role {
			return i + 1
		}
	}
	return 0
}

// ParseList splits a comma-separated field into a de-duplicated list,
// preserving first-seen order and dropping blanks.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// ParsePreferredCompanies decodes a JSON array of company names. Anything that
// is not a JSON array of strings yields nil.
func ParsePreferredCompanies(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
