package db

import (
	"context"
	"strings"
	"testing"

	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestProfileRow_ToProfile(t *testing.T) {
	row := profileRow{
		UserID:             "8d6f0a4e-1111-4f4f-9a9a-000000000001",
		Email:              " a@example.com ",
		Name:               "김지원",
		Education:          str("D04, D05"),
		Career:             str("신입"),
		EmploymentTypes:    str("T01"),
		JobRole1:           str("Data Analyst"),
		JobRole2:           nil,
		JobRole3:           str("Backend"),
		PreferredCompanies: str(`["카카오", "네이버"]`),
	}

	p := row.toProfile()
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, []string{"D04", "D05"}, p.TargetEducationLevels)
	assert.Equal(t, "신입", *p.TargetExperience)
	assert.Equal(t, []string{"Data Analyst", "", "Backend"}, p.TargetJobRoles)
	assert.Equal(t, []string{"카카오", "네이버"}, p.PreferredCompanies)
}

func TestProfileRow_MalformedCompanies(t *testing.T) {
	row := profileRow{Email: "a@example.com", PreferredCompanies: str(`{"broken"`)}
	assert.Empty(t, row.toProfile().PreferredCompanies)
}

func TestConsentFlag(t *testing.T) {
	assert.Equal(t, "Y", consentFlag(true))
	assert.Equal(t, "N", consentFlag(false))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("x"))
	assert.Equal(t, "x", *nullable("x"))
}

func TestSchemaStatements(t *testing.T) {
	joined := strings.Join(schemaStatements, "\n")
	for _, table := range []string{"users", "user_target_companies", "job_postings", "email_send_logs"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestSetConsent_InvalidUserID(t *testing.T) {
	db := &DB{}
	err := db.SetConsent(context.Background(), "not-a-uuid", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")
}

func TestUpsertSubscriber_Validation(t *testing.T) {
	db := &DB{}
	ctx := context.Background()

	_, err := db.UpsertSubscriber(ctx, Subscriber{Email: "  "})
	assert.Error(t, err)

	_, err = db.UpsertSubscriber(ctx, Subscriber{Email: "a@example.com", JobRoles: []string{"a", "b", "c", "d"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 3")
}

func TestUpsertPosting_RequiresCompany(t *testing.T) {
	db := &DB{}
	err := db.UpsertPosting(context.Background(), &types.JobPosting{JobTitle: "Engineer"})
	assert.Error(t, err)
}
