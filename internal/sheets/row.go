package sheets

import (
	"fmt"
	"strings"

	"github.com/jonathan/job-digest/internal/types"
)

// row is one worksheet row read through the header index.
type row struct {
	columns map[string]int
	values  []interface{}
}

func (r row) get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.values) || r.values[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(r.values[i]))
}

func (r row) optional(column string) *string {
	v := r.get(column)
	if v == "" {
		return nil
	}
	return &v
}

// consents is true unless the consent cell holds a negative answer.
func (r row) consents() bool {
	switch strings.ToLower(r.get(ColumnConsent)) {
	case "n", "no", "false", "0", "x", "미동의":
		return false
	}
	return true
}

func (r row) profile(fallbackID string) *types.PreferenceProfile {
	profile := types.NewPreferenceProfile(types.ProfileFields{
		UserID:             fallbackID,
		Email:              r.get(ColumnEmail),
		Name:               r.get(ColumnName),
		Education:          r.optional(ColumnEducation),
		Career:             r.optional(ColumnCareer),
		EmploymentTypes:    r.optional(ColumnEmploymentType),
		JobRole1:           r.optional(ColumnJobRole1),
		JobRole2:           r.optional(ColumnJobRole2),
		JobRole3:           r.optional(ColumnJobRole3),
		PreferredCompanies: r.optional(ColumnPreferredCompanies),
	})
	// Spreadsheet users type plain comma lists rather than JSON.
	if raw := r.get(ColumnPreferredCompanies); raw != "" && !strings.HasPrefix(raw, "[") {
		profile.PreferredCompanies = types.ParseList(raw)
	}
	return profile
}
