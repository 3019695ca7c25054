package ranking

import (
	"fmt"
	"os"

	"github.com/jonathan/job-digest/internal/types"
	"gopkg.in/yaml.v3"
)

// anyEducationCode is the education code for "no requirement"; a profile that
// lists it accepts every level.
const anyEducationCode = "D01"

// EducationWeights scores the education dimension.
type EducationWeights struct {
	Absent int `yaml:"absent"`
	Match  int `yaml:"match"`
	Higher int `yaml:"higher"`
	Other  int `yaml:"other"`
}

// CareerWeights scores the experience dimension.
type CareerWeights struct {
	Absent int `yaml:"absent"`
	Match  int `yaml:"match"`
	Other  int `yaml:"other"`
}

// EmploymentWeights scores the employment-type dimension.
type EmploymentWeights struct {
	Absent       int `yaml:"absent"`
	NoPreference int `yaml:"no_preference"`
	Match        int `yaml:"match"`
	Other        int `yaml:"other"`
}

// RoleWeights scores the job-role dimension.
type RoleWeights struct {
	Absent int `yaml:"absent"`
	Rank1  int `yaml:"rank1"`
	Rank2  int `yaml:"rank2"`
	Rank3  int `yaml:"rank3"`
	Other  int `yaml:"other"`
}

// WeightedConfig holds the point table of the weighted policy.
type WeightedConfig struct {
	Education      EducationWeights  `yaml:"education"`
	Career         CareerWeights     `yaml:"career"`
	Employment     EmploymentWeights `yaml:"employment"`
	JobRole        RoleWeights       `yaml:"job_role"`
	CompanyBonus   int               `yaml:"company_bonus"`
	EducationCodes map[string]int    `yaml:"education_codes"`
}

// DefaultWeights returns the standard point table: education 0-25, career
// 0-20, employment 0-15, job role 0-30 and a 10 point preferred-company bonus.
func DefaultWeights() WeightedConfig {
	return WeightedConfig{
		Education:    EducationWeights{Absent: 15, Match: 25, Higher: 20, Other: 5},
		Career:       CareerWeights{Absent: 10, Match: 20, Other: 5},
		Employment:   EmploymentWeights{Absent: 10, NoPreference: 5, Match: 15, Other: 5},
		JobRole:      RoleWeights{Absent: 10, Rank1: 30, Rank2: 20, Rank3: 10, Other: 5},
		CompanyBonus: 10,
		EducationCodes: map[string]int{
			"D01": 1, // no requirement
			"D02": 2, // high school
			"D03": 3, // 2-3 year college
			"D04": 4, // 4 year university
			"D05": 5, // master's
			"D06": 6, // doctorate
		},
	}
}

// LoadWeights reads a YAML point table. Keys missing from the file keep their
// default values.
func LoadWeights(path string) (*WeightedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file %s: %w", path, err)
	}

	cfg := DefaultWeights()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse weights YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects negative point values.
func (c *WeightedConfig) Validate() error {
	values := map[string]int{
		"education.absent": c.Education.Absent, "education.match": c.Education.Match,
		"education.higher": c.Education.Higher, "education.other": c.Education.Other,
		"career.absent": c.Career.Absent, "career.match": c.Career.Match, "career.other": c.Career.Other,
		"employment.absent": c.Employment.Absent, "employment.no_preference": c.Employment.NoPreference,
		"employment.match": c.Employment.Match, "employment.other": c.Employment.Other,
		"job_role.absent": c.JobRole.Absent, "job_role.rank1": c.JobRole.Rank1,
		"job_role.rank2": c.JobRole.Rank2, "job_role.rank3": c.JobRole.Rank3, "job_role.other": c.JobRole.Other,
		"company_bonus": c.CompanyBonus,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("weights error: %s must be non-negative, got %d", name, v)
		}
	}
	return nil
}

// WeightedPolicy orders candidates by a descending additive score, breaking
// ties by company name.
type WeightedPolicy struct {
	weights WeightedConfig
}

// NewWeightedPolicy creates a WeightedPolicy with the given point table.
func NewWeightedPolicy(weights WeightedConfig) WeightedPolicy {
	return WeightedPolicy{weights: weights}
}

// Name returns the policy name.
func (WeightedPolicy) Name() string { return PolicyWeighted }

// Key scores every dimension and records the breakdown.
func (p WeightedPolicy) Key(profile *types.PreferenceProfile, posting *types.JobPosting, preferred bool) types.RankKey {
	score := &types.MatchScore{
		Education:  p.educationScore(profile.TargetEducationLevels, posting.EducationRequirement),
		Career:     p.careerScore(profile.TargetExperience, posting.ExperienceLevel),
		Employment: p.employmentScore(profile.TargetEmploymentTypes, posting.EmploymentType),
		JobRole:    p.roleScore(profile, posting.JobRole),
	}
	if preferred {
		score.CompanyBonus = p.weights.CompanyBonus
	}
	score.Total = score.Education + score.Career + score.Employment + score.JobRole + score.CompanyBonus

	return types.RankKey{
		NullCount:   NullCount(posting),
		CompanyName: posting.CompanyName,
		Score:       score,
	}
}

// Less orders higher totals first.
func (WeightedPolicy) Less(a, b types.RankKey) bool {
	at, bt := total(a), total(b)
	if at != bt {
		return at > bt
	}
	return a.CompanyName < b.CompanyName
}

func total(k types.RankKey) int {
	if k.Score == nil {
		return 0
	}
	return k.Score.Total
}

func (p WeightedPolicy) educationScore(targets []string, requirement *string) int {
	w := p.weights.Education
	if requirement == nil {
		return w.Absent
	}
	for _, t := range targets {
		if t == anyEducationCode || t == *requirement {
			return w.Match
		}
	}

	highest := 0
	for _, t := range targets {
		highest = max(highest, p.weights.EducationCodes[t])
	}
	if highest > p.weights.EducationCodes[*requirement] {
		return w.Higher
	}
	return w.Other
}

func (p WeightedPolicy) careerScore(target *string, level *string) int {
	w := p.weights.Career
	if level == nil {
		return w.Absent
	}
	if target != nil && *target == *level {
		return w.Match
	}
	return w.Other
}

func (p WeightedPolicy) employmentScore(targets []string, employmentType *string) int {
	w := p.weights.Employment
	if employmentType == nil {
		return w.Absent
	}
	if len(targets) == 0 {
		return w.NoPreference
	}
	for _, t := range targets {
		if t == *employmentType {
			return w.Match
		}
	}
	return w.Other
}

func (p WeightedPolicy) roleScore(profile *types.PreferenceProfile, role *string) int {
	w := p.weights.JobRole
	if role == nil {
		return w.Absent
	}
	switch profile.RoleRank(*role) {
	case 1:
		return w.Rank1
	case 2:
		return w.Rank2
	case 3:
		return w.Rank3
	default:
		return w.Other
	}
}
