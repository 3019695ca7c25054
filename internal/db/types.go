package db

import (
	"github.com/jonathan/job-digest/internal/types"
)

// Consent flag values stored in users.consent.
const (
	ConsentYes = "Y"
	ConsentNo  = "N"
)

// Subscriber is a user row as written by UpsertSubscriber.
type Subscriber struct {
	Email              string
	Name               string
	Consent            bool
	Education          []string
	Career             string
	EmploymentTypes    []string
	JobRoles           []string
	PreferredCompanies []string
}

// profileRow mirrors the nullable preference columns joined from users and
// user_target_companies.
type profileRow struct {
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

func (r *profileRow) toProfile() *types.PreferenceProfile {
	return types.NewPreferenceProfile(types.ProfileFields{
		UserID:             r.UserID,
		Email:              r.Email,
		Name:               r.Name,
		Education:          r.Education,
		Career:             r.Career,
		EmploymentTypes:    r.EmploymentTypes,
		JobRole1:           r.JobRole1,
		JobRole2:           r.JobRole2,
		JobRole3:           r.JobRole3,
		PreferredCompanies: r.PreferredCompanies,
	})
}

func consentFlag(consent bool) string {
	if consent {
		return ConsentYes
	}
	return ConsentNo
}

// nullable converts "" to a SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
