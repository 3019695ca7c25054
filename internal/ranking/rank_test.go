package ranking

import (
	"testing"

	"github.com/jonathan/job-digest/internal/companies"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companyNames(results []types.RecommendationResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Posting.CompanyName)
	}
	return out
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("", nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyLexicographic, p.Name())

	p, err = PolicyByName("Weighted", nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyWeighted, p.Name())

	_, err = PolicyByName("learned", nil)
	assert.Error(t, err)
}

func TestRanker_PreferredCompaniesFirst(t *testing.T) {
	profile := &types.PreferenceProfile{TargetJobRoles: []string{"Data Analyst"}}
	candidates := []types.JobPosting{
		// Best possible key, but not preferred.
		{CompanyName: "Alpha", JobRole: str("Data Analyst"), EducationRequirement: str("D04"), ExperienceLevel: str("신입"), EmploymentType: str("T01")},
		// Worst key, preferred.
		{CompanyName: "Zeta", JobRole: str("Backend")},
		{CompanyName: "Beta", JobRole: str("Data Analyst")},
	}
	preferred := companies.NewTable(nil).Resolve([]string{"Zeta"})

	for _, policy := range []Policy{LexicographicPolicy{}, NewWeightedPolicy(DefaultWeights())} {
		t.Run(policy.Name(), func(t *testing.T) {
			results := NewRanker(policy).Rank(profile, candidates, preferred, 10)
			require.Len(t, results, 3)
			assert.Equal(t, "Zeta", results[0].Posting.CompanyName)
			assert.True(t, results[0].IsPreferredCompany)
			assert.False(t, results[1].IsPreferredCompany)
			assert.False(t, results[2].IsPreferredCompany)
		})
	}
}

func TestRanker_LexicographicOrdering(t *testing.T) {
	profile := &types.PreferenceProfile{
		TargetJobRoles:        []string{"Data Analyst", "Backend"},
		TargetEducationLevels: []string{"D04"},
		TargetEmploymentTypes: []string{"T01"},
	}
	full := func(company, role, edu, emp string) types.JobPosting {
		return types.JobPosting{CompanyName: company, JobRole: str(role), EducationRequirement: str(edu), ExperienceLevel: str("신입"), EmploymentType: str(emp)}
	}
	candidates := []types.JobPosting{
		{CompanyName: "Nulls"},                        // null count 3
		full("Role2", "Backend", "D04", "T01"),        // role 2
		full("EduMiss", "Data Analyst", "D06", "T01"), // role 1, edu 3
		full("EmpMiss", "Data Analyst", "D04", "T02"), // role 1, edu 1, emp 3
		full("Best", "Data Analyst", "D04", "T01"),    // role 1, edu 1, emp 1
		full("Aardvark", "Data Analyst", "D04", "T01"),
	}

	results := NewRanker(nil).Rank(profile, candidates, nil, 10)
	assert.Equal(t, []string{"Aardvark", "Best", "EmpMiss", "EduMiss", "Role2", "Nulls"}, companyNames(results))
}

func TestRanker_Truncation(t *testing.T) {
	profile := &types.PreferenceProfile{}
	candidates := []types.JobPosting{{CompanyName: "C"}, {CompanyName: "A"}, {CompanyName: "B"}}
	r := NewRanker(nil)

	for _, n := range []int{-1, 0, 1, 2, 3, 4, 100} {
		results := r.Rank(profile, candidates, nil, n)
		require.NotNil(t, results)
		assert.Len(t, results, max(0, min(n, len(candidates))), "topN=%d", n)
	}
	assert.Equal(t, []string{"A", "B"}, companyNames(r.Rank(profile, candidates, nil, 2)))
}

func TestRanker_Deterministic(t *testing.T) {
	profile := &types.PreferenceProfile{TargetEducationLevels: []string{"D04"}}
	candidates := []types.JobPosting{
		{ID: "1", CompanyName: "Same", EducationRequirement: str("D04")},
		{ID: "2", CompanyName: "Same", EducationRequirement: str("D04")},
		{ID: "3", CompanyName: "Other"},
		{ID: "4", CompanyName: "Another", EducationRequirement: str("D05")},
	}
	r := NewRanker(nil)

	first := r.Rank(profile, candidates, nil, 10)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Rank(profile, candidates, nil, 10))
	}
	// Genuine duplicates keep their input order.
	assert.Equal(t, "1", first[0].Posting.ID)
	assert.Equal(t, "2", first[1].Posting.ID)
}

func TestRanker_EmptyInputs(t *testing.T) {
	r := NewRanker(nil)

	assert.Empty(t, r.Rank(nil, []types.JobPosting{{CompanyName: "A"}}, nil, 10))
	assert.NotNil(t, r.Rank(&types.PreferenceProfile{}, nil, nil, 10))
	assert.Empty(t, r.Rank(&types.PreferenceProfile{}, nil, nil, 10))
}

func TestRanker_RankKeyExposed(t *testing.T) {
	profile := &types.PreferenceProfile{TargetJobRoles: []string{"Data Analyst"}}
	results := NewRanker(nil).Rank(profile, []types.JobPosting{{CompanyName: "A", JobRole: str("Data Analyst")}}, nil, 1)

	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].RankKey.NullCount)
	assert.Equal(t, 1, results[0].RankKey.JobRolePriority)
	assert.Equal(t, "A", results[0].RankKey.CompanyName)
}

func TestRanker_WeightedOrdering(t *testing.T) {
	profile := &types.PreferenceProfile{
		TargetJobRoles:        []string{"Data Analyst"},
		TargetEducationLevels: []string{"D04"},
	}
	candidates := []types.JobPosting{
		{CompanyName: "Low", JobRole: str("Backend"), EducationRequirement: str("D06")},
		{CompanyName: "High", JobRole: str("Data Analyst"), EducationRequirement: str("D04")},
		{CompanyName: "Mid"},
	}

	results := NewRanker(NewWeightedPolicy(DefaultWeights())).Rank(profile, candidates, nil, 10)
	assert.Equal(t, []string{"High", "Mid", "Low"}, companyNames(results))
	assert.Equal(t, 25+10+10+30, results[0].RankKey.Score.Total)
}
