package ranking

import (
	"github.com/jonathan/job-digest/internal/types"
)

// Job-role priorities. Lower sorts first.
const (
	rolePriorityAbsent   = 4
	rolePriorityMismatch = 5
)

// Education and employment priorities. Lower sorts first.
const (
	priorityMatch    = 1
	priorityAbsent   = 2
	priorityMismatch = 3
	// priorityNoPreference deliberately equals priorityMismatch.
	priorityNoPreference = 3
)

// LexicographicPolicy orders candidates by, in turn: fewest unknown
// requirements, job-role rank, education fit, employment fit, company name.
// Each criterion only breaks ties left by the previous one.
type LexicographicPolicy struct{}

// Name returns the policy name.
func (LexicographicPolicy) Name() string { return PolicyLexicographic }

// Key computes the ascending sort tuple for a posting.
func (LexicographicPolicy) Key(profile *types.PreferenceProfile, posting *types.JobPosting, _ bool) types.RankKey {
	return types.RankKey{
		NullCount:          NullCount(posting),
		JobRolePriority:    JobRolePriority(profile, posting.JobRole),
		EducationPriority:  EducationPriority(profile.TargetEducationLevels, posting.EducationRequirement),
		EmploymentPriority: EmploymentPriority(profile.TargetEmploymentTypes, posting.EmploymentType),
		CompanyName:        posting.CompanyName,
	}
}

// Less compares two keys field by field.
func (LexicographicPolicy) Less(a, b types.RankKey) bool {
	if a.NullCount != b.NullCount {
		return a.NullCount < b.NullCount
	}
	if a.JobRolePriority != b.JobRolePriority {
		return a.JobRolePriority < b.JobRolePriority
	}
	if a.EducationPriority != b.EducationPriority {
		return a.EducationPriority < b.EducationPriority
	}
	if a.EmploymentPriority != b.EmploymentPriority {
		return a.EmploymentPriority < b.EmploymentPriority
	}
	return a.CompanyName < b.CompanyName
}

// NullCount counts absent fields among education, experience level and
// employment type. Job role is ranked separately and not counted.
func NullCount(posting *types.JobPosting) int {
	count := 0
	for _, field := range []*string{posting.EducationRequirement, posting.ExperienceLevel, posting.EmploymentType} {
		if field == nil {
			count++
		}
	}
	return count
}

// JobRolePriority is 1-3 for a match on the profile's ranked roles, 4 when the
// posting has no role and 5 otherwise.
func JobRolePriority(profile *types.PreferenceProfile, role *string) int {
	if role == nil {
		return rolePriorityAbsent
	}
	if rank := profile.RoleRank(*role); rank > 0 {
		return rank
	}
	return rolePriorityMismatch
}

// EducationPriority is 1 for a targeted level, 2 when the posting states
// none and 3 otherwise.
func EducationPriority(targets []string, requirement *string) int {
	return setPriority(targets, requirement)
}

// EmploymentPriority is 1 for a targeted type, 2 when the posting states none
// and 3 otherwise, including when the profile has no stated preference.
func EmploymentPriority(targets []string, employmentType *string) int {
	return setPriority(targets, employmentType)
}

func setPriority(targets []string, value *string) int {
	if value == nil {
		return priorityAbsent
	}
	if len(targets) == 0 {
		return priorityNoPreference
	}
	for _, t := range targets {
		if t == *value {
			return priorityMatch
		}
	}
	return priorityMismatch
}
