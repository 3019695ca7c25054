package types

// RankKey is the sort key a ranking policy assigned to a candidate.
// The lexicographic fields are ascending (lower is better); Score is only set
// by additive policies.
type RankKey struct {
	NullCount          int         `json:"null_count"`
	JobRolePriority    int         `json:"job_role_priority"`
	EducationPriority  int         `json:"education_priority"`
	EmploymentPriority int         `json:"employment_priority"`
	CompanyName        string      `json:"company_name"`
	Score              *MatchScore `json:"score,omitempty"`
}

// MatchScore is the per-dimension breakdown of an additive match score.
type MatchScore struct {
	Education    int `json:"education"`
	Career       int `json:"career"`
	Employment   int `json:"employment"`
	JobRole      int `json:"job_role"`
	CompanyBonus int `json:"company_bonus"`
	Total        int `json:"total"`
}

// RecommendationResult is one entry of an ordered recommendation list.
type RecommendationResult struct {
	Posting            JobPosting `json:"posting"`
	IsPreferredCompany bool       `json:"is_preferred_company"`
	RankKey            RankKey    `json:"rank_key"`
}

// Recommendations is the JSON envelope written by the recommend command.
type Recommendations struct {
	Email   string                 `json:"email"`
	Policy  string                 `json:"policy"`
	TopN    int                    `json:"top_n"`
	Results []RecommendationResult `json:"results"`
}
