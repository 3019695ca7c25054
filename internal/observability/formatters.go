// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/batch"
	"github.com/jonathan/job-digest/internal/filtering"
	"github.com/jonathan/job-digest/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfile outputs a human-readable summary of a preference profile.
func (p *Printer) PrintProfile(profile *types.PreferenceProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Email:       %s\n", profile.Email))
	if profile.Name != "" {
		sb.WriteString(fmt.Sprintf("Name:        %s\n", profile.Name))
	}
	sb.WriteString(fmt.Sprintf("Education:   %s\n", listOrAny(profile.TargetEducationLevels)))
	experience := "any"
	if profile.TargetExperience != nil {
		experience = *profile.TargetExperience
	}
	sb.WriteString(fmt.Sprintf("Experience:  %s\n", experience))
	sb.WriteString(fmt.Sprintf("Employment:  %s\n", listOrAny(profile.TargetEmploymentTypes)))

	roles := make([]string, 0, len(profile.TargetJobRoles))
	for i, role := range profile.TargetJobRoles {
		if role != "" {
			roles = append(roles, fmt.Sprintf("%d. %s", i+1, role))
		}
	}
	sb.WriteString(fmt.Sprintf("Roles:       %s\n", listOrAny(roles)))
	if len(profile.PreferredCompanies) > 0 {
		sb.WriteString(fmt.Sprintf("Preferred:   %s", strings.Join(profile.PreferredCompanies, ", ")))
	}

	p.printBox("PREFERENCE PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

func listOrAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}

// PrintFilterTrace outputs how many postings survived each filter stage.
func (p *Printer) PrintFilterTrace(trace filtering.Trace) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active postings: %d\n\n", trace.Input))

	prev := trace.Input
	for _, stage := range trace.Stages {
		sb.WriteString(fmt.Sprintf("%-12s %4d  (-%d)\n", stage.Name, stage.Remaining, prev-stage.Remaining))
		prev = stage.Remaining
	}

	p.printBox("CANDIDATE FILTER", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendations outputs the top recommendations with their rank keys.
func (p *Printer) PrintRecommendations(results []types.RecommendationResult) {
	if len(results) == 0 {
		p.printBox("RECOMMENDATIONS", "No postings matched this profile")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Recommended %d postings:\n\n", len(results)))

	count := min(len(results), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := results[i]
		marker := ""
		if r.IsPreferredCompany {
			marker = " ★"
		}
		sb.WriteString(fmt.Sprintf("#%d  %s%s\n", i+1, r.Posting.CompanyName, marker))
		if r.Posting.JobTitle != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", r.Posting.JobTitle))
		}
		if r.RankKey.Score != nil {
			sb.WriteString(fmt.Sprintf("    Score: %d\n", r.RankKey.Score.Total))
		} else {
			k := r.RankKey
			sb.WriteString(fmt.Sprintf("    Key: nulls=%d role=%d edu=%d emp=%d\n", k.NullCount, k.JobRolePriority, k.EducationPriority, k.EmploymentPriority))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more postings", len(results)-maxItemsToShow))
	}

	p.printBox("RECOMMENDATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSubscriberOutcome outputs a one-line delivery result.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSubscriberOutcome(o batch.Outcome) {
	if o.Succeeded() {
		fmt.Fprintf(p.out, "✅ %s (%d postings)\n", o.Subscriber.Email, o.RecommendedCount)
		return
	}
	fmt.Fprintf(p.out, "❌ %s: %s\n", o.Subscriber.Email, o.Error)
}

// PrintBatchSummary outputs the totals of a run and the failed recipients.
func (p *Printer) PrintBatchSummary(summary *batch.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("Recipients: %d\n", summary.Total))
	sb.WriteString(fmt.Sprintf("Sent:       %d\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", summary.Failed))
	sb.WriteString(fmt.Sprintf("Success:    %.1f%%\n", summary.SuccessRate()))
	if !summary.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration:   %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)))
	}

	var failed []batch.Outcome
	for _, o := range summary.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", failed[i].Subscriber.Email, failed[i].Error))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	p.printBox("DELIVERY SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
