// Package recommend provides the recommendation engine: the staged candidate
// filter followed by the ranker, resolved against a company alias table.
package recommend

import (
	"github.com/jonathan/job-digest/internal/companies"
	"github.com/jonathan/job-digest/internal/filtering"
	"github.com/jonathan/job-digest/internal/ranking"
	"github.com/jonathan/job-digest/internal/types"
)

// DefaultTopN is the number of postings recommended when the caller does not
// choose one.
const DefaultTopN = 10

// Options configures an Engine. Nil fields select defaults.
type Options struct {
	Filter    *filtering.Filter
	Policy    ranking.Policy
	Companies *companies.Table
}

// Engine turns a preference profile and a posting pool into an ordered,
// bounded recommendation list. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	filter    *filtering.Filter
	ranker    *ranking.Ranker
	companies *companies.Table
}

// New creates an Engine.
func New(opts Options) *Engine {
	f := opts.Filter
	if f == nil {
		f = filtering.New(filtering.Options{})
	}
	table := opts.Companies
	if table == nil {
		table = companies.NewTable(nil)
	}
	return &Engine{
		filter:    f,
		ranker:    ranking.NewRanker(opts.Policy),
		companies: table,
	}
}

// PolicyName returns the name of the active ranking policy.
func (e *Engine) PolicyName() string {
	return e.ranker.Policy().Name()
}

// Recommend filters and ranks postings for profile and returns at most topN
// results. It never fails: a nil profile, an empty pool or no surviving
// candidates all yield an empty, non-nil list. postings must already be
// restricted to open deadlines and are not modified.
func (e *Engine) Recommend(profile *types.PreferenceProfile, postings []types.JobPosting, topN int) []types.RecommendationResult {
	results, _ := e.Explain(profile, postings, topN)
	return results
}

// Explain is Recommend plus the per-stage filter counts.
func (e *Engine) Explain(profile *types.PreferenceProfile, postings []types.JobPosting, topN int) ([]types.RecommendationResult, filtering.Trace) {
	candidates, trace := e.filter.Trace(profile, postings)
	if profile == nil || len(candidates) == 0 || topN <= 0 {
		return []types.RecommendationResult{}, trace
	}

	preferred := e.companies.Resolve(profile.PreferredCompanies)
	return e.ranker.Rank(profile, candidates, preferred, topN), trace
}
