// Package ranking provides the ranking policies and the ranker that orders
// filtered job postings for one subscriber.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/job-digest/internal/companies"
	"github.com/jonathan/job-digest/internal/types"
)

// Policy names accepted by PolicyByName.
const (
	PolicyLexicographic = "lexicographic"
	PolicyWeighted      = "weighted"
)

// Policy assigns sort keys to candidates and orders keys within a partition.
// Less must describe a strict weak ordering; the ranker sorts stably.
type Policy interface {
	Name() string
	Key(profile *types.PreferenceProfile, posting *types.JobPosting, preferred bool) types.RankKey
	Less(a, b types.RankKey) bool
}

// PolicyByName resolves a policy name. weights is only used by the weighted
// policy; nil selects the default weights.
func PolicyByName(name string, weights *WeightedConfig) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyLexicographic:
		return LexicographicPolicy{}, nil
	case PolicyWeighted:
		if weights == nil {
			w := DefaultWeights()
			weights = &w
		}
		return NewWeightedPolicy(*weights), nil
	default:
		return nil, fmt.Errorf("unknown ranking policy %q (want %s or %s)", name, PolicyLexicographic, PolicyWeighted)
	}
}

// Ranker partitions candidates into preferred-company and other postings,
// orders each partition with its policy and keeps the first topN.
type Ranker struct {
	policy Policy
}

// NewRanker creates a Ranker. A nil policy selects LexicographicPolicy.
func NewRanker(policy Policy) *Ranker {
	if policy == nil {
		policy = LexicographicPolicy{}
	}
	return &Ranker{policy: policy}
}

// Policy returns the ranker's policy.
func (r *Ranker) Policy() Policy {
	return r.policy
}

// Rank orders candidates. Preferred-company postings always come first,
// whatever their keys. The result has min(topN, len(candidates)) entries and
// is never nil.
func (r *Ranker) Rank(profile *types.PreferenceProfile, candidates []types.JobPosting, preferred companies.Set, topN int) []types.RecommendationResult {
	if profile == nil || topN <= 0 || len(candidates) == 0 {
		return []types.RecommendationResult{}
	}

	var preferredGroup, otherGroup []types.RecommendationResult
	for i := range candidates {
		posting := &candidates[i]
		isPreferred := preferred.Contains(posting.CompanyName)
		result := types.RecommendationResult{
			Posting:            *posting,
			IsPreferredCompany: isPreferred,
			RankKey:            r.policy.Key(profile, posting, isPreferred),
		}
		if isPreferred {
			preferredGroup = append(preferredGroup, result)
		} else {
			otherGroup = append(otherGroup, result)
		}
	}

	r.sort(preferredGroup)
	r.sort(otherGroup)

	ranked := make([]types.RecommendationResult, 0, len(candidates))
	ranked = append(ranked, preferredGroup...)
	ranked = append(ranked, otherGroup...)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func (r *Ranker) sort(results []types.RecommendationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return r.policy.Less(results[i].RankKey, results[j].RankKey)
	})
}
