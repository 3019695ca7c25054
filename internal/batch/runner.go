// Package batch drives one digest run: it loads the posting pool once, then
// recommends, renders and sends a digest for every subscriber with bounded
// concurrency.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-digest/internal/rendering"
	"github.com/jonathan/job-digest/internal/types"

	mailer "github.com/jonathan/job-digest/internal/mail"
)

// Defaults applied to zero Options fields.
const (
	DefaultTopN    = 10
	DefaultWorkers = 5
)

// ErrNoRecommendations marks subscribers for whom nothing survived filtering.
// No email is sent to them.
var ErrNoRecommendations = errors.New("no recommendations")

// ErrNoProfile marks subscribers whose profile source returned nothing.
var ErrNoProfile = errors.New("no preference profile")

// SubscriberSource lists the recipients of a run.
type SubscriberSource interface {
	Subscribers(ctx context.Context) ([]types.Subscriber, error)
}

// ProfileSource loads a subscriber's preference profile.
type ProfileSource interface {
	Profile(ctx context.Context, sub types.Subscriber) (*types.PreferenceProfile, error)
}

// PostingSource loads the postings open on a given day.
type PostingSource interface {
	ActivePostings(ctx context.Context, asOf time.Time) ([]types.JobPosting, error)
}

// Recommender ranks postings for a profile.
type Recommender interface {
	Recommend(profile *types.PreferenceProfile, postings []types.JobPosting, topN int) []types.RecommendationResult
}

// Renderer renders a digest body.
type Renderer interface {
	Render(in rendering.DigestInput) (*rendering.Digest, error)
}

// Recorder stores delivery outcomes.
type Recorder interface {
	Record(ctx context.Context, rec *types.DeliveryRecord) error
}

// LinkSigner produces a per-subscriber unsubscribe link.
type LinkSigner interface {
	Link(userID, email string) (string, error)
}

// Runner wires the collaborators of a run. Log and Unsubscribe are optional.
type Runner struct {
	Subscribers SubscriberSource
	Profiles    ProfileSource
	Postings    PostingSource
	Engine      Recommender
	Renderer    Renderer
	Sender      mailer.Sender
	Log         Recorder
	Unsubscribe LinkSigner
}

// Options holds configuration for one run
type Options struct {
	TopN    int
	Workers int
	From    string
	// DryRun skips the delivery log. Transport selection is up to the caller.
	DryRun     bool
	OnProgress ProgressCallback
	Now        func() time.Time
}

// Outcome is the result of one subscriber's delivery.
type Outcome struct {
	Subscriber       types.Subscriber `json:"subscriber"`
	Status           string           `json:"status"`
	Error            string           `json:"error,omitempty"`
	Subject          string           `json:"subject,omitempty"`
	RecommendedCount int              `json:"recommended_count"`
}

// Succeeded reports whether the digest was sent.
func (o Outcome) Succeeded() bool {
	return o.Status == types.DeliveryStatusSuccess
}

// Summary aggregates a run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// SuccessRate returns the percentage of subscribers that were sent a digest.
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (r *Runner) validate() error {
	switch {
	case r.Subscribers == nil:
		return fmt.Errorf("batch runner: subscriber source is required")
	case r.Profiles == nil:
		return fmt.Errorf("batch runner: profile source is required")
	case r.Postings == nil:
		return fmt.Errorf("batch runner: posting source is required")
	case r.Engine == nil:
		return fmt.Errorf("batch runner: recommendation engine is required")
	case r.Renderer == nil:
		return fmt.Errorf("batch runner: renderer is required")
	case r.Sender == nil:
		return fmt.Errorf("batch runner: sender is required")
	}
	return nil
}

// Run executes one digest run. Only failing to load postings or subscribers
// aborts the run; every per-subscriber failure is recorded in the summary.
// Cancelling ctx stops new deliveries; subscribers not yet started are
// counted as failed with the context error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	if err := r.validate(); err != nil {
		return nil, err
	}

	summary := &Summary{RunID: uuid.NewString(), StartedAt: opts.Now()}
	emit := func(step, email, message string, content any) {
		emitProgress(&opts, ProgressEvent{Step: step, RunID: summary.RunID, Email: email, Message: message, Content: content})
	}

	postings, err := r.Postings.ActivePostings(ctx, summary.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load postings: %w", err)
	}
	emit(StepLoadPostings, "", fmt.Sprintf("Loaded %d active postings", len(postings)), nil)

	subscribers, err := r.Subscribers.Subscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	emit(StepListSubscribers, "", fmt.Sprintf("Found %d subscribers", len(subscribers)), nil)

	outcomes := make([]Outcome, len(subscribers))
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, sub := range subscribers {
		if err := ctx.Err(); err != nil {
			outcomes[i] = r.finish(ctx, summary.RunID, sub, nil, rendering.Subject(sub.Name), err, opts)
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					outcomes[i] = r.finish(ctx, summary.RunID, sub, nil, rendering.Subject(sub.Name), fmt.Errorf("panic: %v", p), opts)
				}
			}()
			outcomes[i] = r.deliver(ctx, summary.RunID, sub, postings, opts)
			return nil
		})
	}
	_ = g.Wait()

	summary.Outcomes = outcomes
	summary.Total = len(outcomes)
	for _, o := range outcomes {
		if o.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.FinishedAt = opts.Now()
	emit(StepComplete, "", fmt.Sprintf("Sent %d/%d digests (%.1f%%)", summary.Succeeded, summary.Total, summary.SuccessRate()), summary)

	return summary, nil
}

// deliver runs the per-subscriber steps and records the outcome.
func (r *Runner) deliver(ctx context.Context, runID string, sub types.Subscriber, postings []types.JobPosting, opts Options) Outcome {
	subject := rendering.Subject(sub.Name)
	if err := ctx.Err(); err != nil {
		return r.finish(ctx, runID, sub, nil, subject, err, opts)
	}

	profile, err := r.Profiles.Profile(ctx, sub)
	if err != nil {
		return r.finish(ctx, runID, sub, nil, subject, fmt.Errorf("failed to load profile: %w", err), opts)
	}
	if profile == nil {
		return r.finish(ctx, runID, sub, nil, subject, ErrNoProfile, opts)
	}
	name := profile.Name
	if name == "" {
		name = sub.Name
	}
	subject = rendering.Subject(name)

	results := r.Engine.Recommend(profile, postings, opts.TopN)
	emitProgress(&opts, ProgressEvent{Step: StepRecommend, RunID: runID, Email: sub.Email,
		Message: fmt.Sprintf("Recommended %d postings", len(results)), Content: results})
	if len(results) == 0 {
		return r.finish(ctx, runID, sub, results, subject, ErrNoRecommendations, opts)
	}

	var unsubscribeURL string
	if r.Unsubscribe != nil {
		if unsubscribeURL, err = r.Unsubscribe.Link(sub.UserID, sub.Email); err != nil {
			return r.finish(ctx, runID, sub, results, subject, fmt.Errorf("failed to sign unsubscribe link: %w", err), opts)
		}
	}

	digest, err := r.Renderer.Render(rendering.DigestInput{
		UserName:       name,
		Results:        results,
		Now:            opts.Now(),
		UnsubscribeURL: unsubscribeURL,
	})
	if err != nil {
		return r.finish(ctx, runID, sub, results, subject, err, opts)
	}

	msg := mailer.Message{
		From:    opts.From,
		To:      (&mail.Address{Name: name, Address: sub.Email}).String(),
		Subject: digest.Subject,
		HTML:    digest.HTML,
		Text:    digest.Text,
	}
	if unsubscribeURL != "" {
		msg.Headers = map[string]string{"List-Unsubscribe": "<" + unsubscribeURL + ">"}
	}
	if err := r.Sender.Send(ctx, msg); err != nil {
		return r.finish(ctx, runID, sub, results, digest.Subject, err, opts)
	}
	return r.finish(ctx, runID, sub, results, digest.Subject, nil, opts)
}

// finish builds the outcome, writes it to the delivery log and reports it.
// Delivery-log failures are logged and never change the outcome.
func (r *Runner) finish(ctx context.Context, runID string, sub types.Subscriber, results []types.RecommendationResult, subject string, cause error, opts Options) Outcome {
	out := Outcome{
		Subscriber:       sub,
		Status:           types.DeliveryStatusSuccess,
		Subject:          subject,
		RecommendedCount: len(results),
	}
	step, message := StepSent, "Sent digest"
	if cause != nil {
		out.Status = types.DeliveryStatusFailed
		out.Error = cause.Error()
		step, message = StepFailed, cause.Error()
	}

	if r.Log != nil && !opts.DryRun {
		rec := &types.DeliveryRecord{
			RunID:            runID,
			UserID:           sub.UserID,
			Email:            sub.Email,
			Subject:          subject,
			Type:             types.EmailTypePersonalized,
			Status:           out.Status,
			ErrorMessage:     out.Error,
			RecommendedCount: out.RecommendedCount,
			SentAt:           opts.Now(),
		}
		// The outcome is recorded even when the run was cancelled.
		if err := r.Log.Record(context.WithoutCancel(ctx), rec); err != nil {
			log.Printf("[batch] failed to record delivery for %s: %v", sub.Email, err)
		}
	}

	emitProgress(&opts, ProgressEvent{Step: step, RunID: runID, Email: sub.Email, Message: message, Content: out})
	return out
}
