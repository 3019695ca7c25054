// Package filtering provides the staged candidate filter that reduces a posting
// pool to the postings compatible with one subscriber's preferences.
package filtering

import (
	"strings"

	"github.com/jonathan/job-digest/internal/types"
)

// Stage is one pruning step. Keep must treat an absent posting field as a pass.
type Stage interface {
	Name() string
	Keep(profile *types.PreferenceProfile, posting *types.JobPosting) bool
}

// StageCount records how many postings remained after a stage.
type StageCount struct {
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
}

// Trace records the pool size and the survivors of every stage.
type Trace struct {
	Input  int          `json:"input"`
	Stages []StageCount `json:"stages"`
}

// Remaining returns the survivor count of the last stage.
func (t Trace) Remaining() int {
	if len(t.Stages) == 0 {
		return t.Input
	}
	return t.Stages[len(t.Stages)-1].Remaining
}

// Options configures a Filter.
type Options struct {
	EntryLevel        EntryLevelPolicy
	EntryLevelMarkers []string
}

// Filter applies the four stages in fixed order: experience level,
// employment type, job role, education.
type Filter struct {
	stages []Stage
}

// New creates a Filter. Zero options select the when-requested entry-level
// policy with the default markers.
func New(opts Options) *Filter {
	policy := opts.EntryLevel
	if policy == "" {
		policy = EntryLevelWhenRequested
	}
	markers := opts.EntryLevelMarkers
	if len(markers) == 0 {
		markers = DefaultEntryLevelMarkers
	}

	return &Filter{
		stages: []Stage{
			&experienceStage{policy: policy, markers: append([]string(nil), markers...)},
			employmentStage{},
			jobRoleStage{},
			educationStage{},
		},
	}
}

// Stages returns the ordered stage list.
func (f *Filter) Stages() []Stage {
	return append([]Stage(nil), f.stages...)
}

// Apply runs every stage and returns the surviving postings in input order.
func (f *Filter) Apply(profile *types.PreferenceProfile, postings []types.JobPosting) []types.JobPosting {
	kept, _ := f.Trace(profile, postings)
	return kept
}

// Trace is Apply plus per-stage survivor counts.
func (f *Filter) Trace(profile *types.PreferenceProfile, postings []types.JobPosting) ([]types.JobPosting, Trace) {
	trace := Trace{Input: len(postings), Stages: make([]StageCount, 0, len(f.stages))}
	if profile == nil {
		for _, stage := range f.stages {
			trace.Stages = append(trace.Stages, StageCount{Name: stage.Name()})
		}
		return nil, trace
	}

	current := postings
	for _, stage := range f.stages {
		next := make([]types.JobPosting, 0, len(current))
		for i := range current {
			if stage.Keep(profile, &current[i]) {
				next = append(next, current[i])
			}
		}
		trace.Stages = append(trace.Stages, StageCount{Name: stage.Name(), Remaining: len(next)})
		current = next
	}
	return current, trace
}

type experienceStage struct {
	policy  EntryLevelPolicy
	markers []string
}

func (s *experienceStage) Name() string { return "experience" }

func (s *experienceStage) Keep(profile *types.PreferenceProfile, posting *types.JobPosting) bool {
	if !s.applies(profile) || posting.ExperienceLevel == nil {
		return true
	}
	return containsString(s.markers, *posting.ExperienceLevel)
}

func (s *experienceStage) applies(profile *types.PreferenceProfile) bool {
	switch s.policy {
	case EntryLevelAlways:
		return true
	case EntryLevelNever:
		return false
	default:
		if profile.TargetExperience == nil {
			return false
		}
		for _, marker := range s.markers {
			if strings.Contains(*profile.TargetExperience, marker) {
				return true
			}
		}
		return false
	}
}

type employmentStage struct{}

func (employmentStage) Name() string { return "employment_type" }

func (employmentStage) Keep(profile *types.PreferenceProfile, posting *types.JobPosting) bool {
	if posting.EmploymentType == nil || len(profile.TargetEmploymentTypes) == 0 {
		return true
	}
	return containsString(profile.TargetEmploymentTypes, *posting.EmploymentType)
}

type jobRoleStage struct{}

func (jobRoleStage) Name() string { return "job_role" }

func (jobRoleStage) Keep(profile *types.PreferenceProfile, posting *types.JobPosting) bool {
	if posting.JobRole == nil {
		return true
	}
	roles := profile.ActiveRoles()
	if len(roles) == 0 {
		return true
	}
	return containsString(roles, *posting.JobRole)
}

type educationStage struct{}

func (educationStage) Name() string { return "education" }

func (educationStage) Keep(profile *types.PreferenceProfile, posting *types.JobPosting) bool {
	if posting.EducationRequirement == nil || len(profile.TargetEducationLevels) == 0 {
		return true
	}
	return containsString(profile.TargetEducationLevels, *posting.EducationRequirement)
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
