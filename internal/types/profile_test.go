//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "blank", raw: "   ", want: nil},
		{name: "single", raw: "D04", want: []string{"D04"}},
		{name: "trims and drops blanks", raw: " T01, ,T02 ,", want: []string{"T01", "T02"}},
		{name: "dedupes keeping order", raw: "D05,D04,D05", want: []string{"D05", "D04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseList(tt.raw))
		})
	}
}

func TestParsePreferredCompanies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "valid list", raw: `["Acme", "Globex"]`, want: []string{"Acme", "Globex"}},
		{name: "empty string", raw: "", want: nil},
		{name: "empty list", raw: `[]`, want: nil},
		{name: "malformed json", raw: `["Acme"`, want: nil},
		{name: "not a list", raw: `{"company":"Acme"}`, want: nil},
		{name: "wrong element type", raw: `[1, 2]`, want: nil},
		{name: "plain text", raw: `Acme, Globex`, want: nil},
		{name: "dedupes and trims", raw: `[" Acme", "Acme", ""]`, want: []string{"Acme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, ParsePreferredCompanies(tt.raw))
			})
		})
	}
}

func TestNewPreferenceProfile_ParsesRawColumns(t *testing.T) {
	profile := NewPreferenceProfile(ProfileFields{
		UserID:             "u-1",
		Email:              " jane@example.com ",
		Name:               "Jane",
		Education:          strPtr("D04, D05"),
		Career:             strPtr("신입"),
		EmploymentTypes:    strPtr("T01"),
		JobRole1:           strPtr("Data Analyst"),
		JobRole2:           nil,
		JobRole3:           strPtr("Data Engineer"),
		PreferredCompanies: strPtr(`["Acme"]`),
	})

	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, []string{"D04", "D05"}, profile.TargetEducationLevels)
	require.NotNil(t, profile.TargetExperience)
	assert.Equal(t, "신입", *profile.TargetExperience)
	assert.Equal(t, []string{"T01"}, profile.TargetEmploymentTypes)
	assert.Equal(t, []string{"Data Analyst", "", "Data Engineer"}, profile.TargetJobRoles)
	assert.Equal(t, []string{"Acme"}, profile.PreferredCompanies)
}

func TestNewPreferenceProfile_EmptyColumns(t *testing.T) {
	profile := NewPreferenceProfile(ProfileFields{
		Email:              "a@example.com",
		Career:             strPtr(UnknownMarker),
		PreferredCompanies: strPtr("not json"),
	})

	assert.Nil(t, profile.TargetEducationLevels)
	assert.Nil(t, profile.TargetExperience)
	assert.Nil(t, profile.TargetEmploymentTypes)
	assert.Nil(t, profile.TargetJobRoles)
	assert.Nil(t, profile.PreferredCompanies)
}

func TestPreferenceProfile_RoleRank(t *testing.T) {
	profile := &PreferenceProfile{TargetJobRoles: []string{"", "Backend", "Data Analyst"}}

	assert.Equal(t, 0, profile.RoleRank(""))
	assert.Equal(t, 2, profile.RoleRank("Backend"))
	assert.Equal(t, 3, profile.RoleRank("Data Analyst"))
	assert.Equal(t, 0, profile.RoleRank("Frontend"))
	assert.Equal(t, []string{"Backend", "Data Analyst"}, profile.ActiveRoles())
}

func TestPreferenceProfile_Validate(t *testing.T) {
	valid := &PreferenceProfile{Email: "jane@example.com", TargetJobRoles: []string{"a", "b", "c"}}
	assert.NoError(t, valid.Validate())

	badEmail := &PreferenceProfile{Email: "not-an-email"}
	err := badEmail.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")

	tooManyRoles := &PreferenceProfile{Email: "jane@example.com", TargetJobRoles: []string{"a", "b", "c", "d"}}
	assert.Error(t, tooManyRoles.Validate())
}
