package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/job-digest/internal/recommend"
	"github.com/jonathan/job-digest/internal/rendering"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailer "github.com/jonathan/job-digest/internal/mail"
)

func str(s string) *string { return &s }

type fakeStore struct {
	subscribers   []types.Subscriber
	profiles      map[string]*types.PreferenceProfile
	postings      []types.JobPosting
	subscriberErr error
	postingErr    error
	postingCalls  atomic.Int32
}

func (s *fakeStore) Subscribers(context.Context) ([]types.Subscriber, error) {
	return s.subscribers, s.subscriberErr
}

func (s *fakeStore) Profile(_ context.Context, sub types.Subscriber) (*types.PreferenceProfile, error) {
	p, ok := s.profiles[sub.Email]
	if !ok {
		return nil, fmt.Errorf("no profile for %s", sub.Email)
	}
	return p, nil
}

func (s *fakeStore) ActivePostings(context.Context, time.Time) ([]types.JobPosting, error) {
	s.postingCalls.Add(1)
	return s.postings, s.postingErr
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failFor  map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	for addr := range f.failFor {
		if strings.Contains(msg.To, "<"+addr+">") {
			return errors.New("smtp: 550 mailbox unavailable")
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLog struct {
	mu      sync.Mutex
	records []*types.DeliveryRecord
	err     error
}

func (l *fakeLog) Record(_ context.Context, rec *types.DeliveryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return l.err
}

func (l *fakeLog) byEmail() map[string]*types.DeliveryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]*types.DeliveryRecord, len(l.records))
	for _, r := range l.records {
		out[r.Email] = r
	}
	return out
}

type fakeSigner struct{}

func (fakeSigner) Link(userID, _ string) (string, error) {
	return "https://example.com/unsubscribe?token=" + userID, nil
}

func newStore(n int) *fakeStore {
	store := &fakeStore{
		profiles: map[string]*types.PreferenceProfile{},
		postings: []types.JobPosting{
			{ID: "1", CompanyName: "Acme", JobRole: str("Backend"), ExperienceLevel: str("신입")},
			{ID: "2", CompanyName: "Globex", JobRole: str("Data Analyst")},
		},
	}
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user%02d@example.com", i)
		store.subscribers = append(store.subscribers, types.Subscriber{UserID: fmt.Sprintf("u%02d", i), Email: email, Name: fmt.Sprintf("User %d", i)})
		store.profiles[email] = &types.PreferenceProfile{Email: email, Name: fmt.Sprintf("User %d", i)}
	}
	return store
}

func newRunner(t *testing.T, store *fakeStore, sender *fakeSender, logs *fakeLog) *Runner {
	t.Helper()
	renderer, err := rendering.NewDigestRenderer("")
	require.NoError(t, err)
	r := &Runner{
		Subscribers: store,
		Profiles:    store,
		Postings:    store,
		Engine:      recommend.New(recommend.Options{}),
		Renderer:    renderer,
		Sender:      sender,
	}
	if logs != nil {
		r.Log = logs
	}
	return r
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

func TestRun_AllSucceed(t *testing.T) {
	store := newStore(3)
	sender := &fakeSender{}
	logs := &fakeLog{}

	summary, err := newRunner(t, store, sender, logs).Run(context.Background(), Options{From: "digest@example.com", Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.InDelta(t, 100.0, summary.SuccessRate(), 0.001)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, int32(1), store.postingCalls.Load(), "postings are loaded once per run")

	require.Len(t, sender.sent, 3)
	for _, msg := range sender.sent {
		assert.Equal(t, "digest@example.com", msg.From)
		assert.Contains(t, msg.Subject, "맞춤 채용공고")
		assert.Contains(t, msg.HTML, "Acme")
	}

	records := logs.byEmail()
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, summary.RunID, rec.RunID)
		assert.Equal(t, types.DeliveryStatusSuccess, rec.Status)
		assert.Equal(t, types.EmailTypePersonalized, rec.Type)
		assert.Equal(t, 2, rec.RecommendedCount)
		assert.Equal(t, fixedNow(), rec.SentAt)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	store := newStore(4)
	delete(store.profiles, "user01@example.com")
	sender := &fakeSender{failFor: map[string]bool{"user02@example.com": true}}
	logs := &fakeLog{}

	summary, err := newRunner(t, store, sender, logs).Run(context.Background(), Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.InDelta(t, 50.0, summary.SuccessRate(), 0.001)

	records := logs.byEmail()
	assert.Equal(t, types.DeliveryStatusSuccess, records["user00@example.com"].Status)
	assert.Equal(t, types.DeliveryStatusFailed, records["user01@example.com"].Status)
	assert.Contains(t, records["user01@example.com"].ErrorMessage, "failed to load profile")
	assert.Equal(t, types.DeliveryStatusFailed, records["user02@example.com"].Status)
	assert.Contains(t, records["user02@example.com"].ErrorMessage, "550")
	assert.Equal(t, types.DeliveryStatusSuccess, records["user03@example.com"].Status)

	// Outcomes keep subscriber order.
	for i, o := range summary.Outcomes {
		assert.Equal(t, store.subscribers[i].Email, o.Subscriber.Email)
	}
}

func TestRun_NoRecommendations(t *testing.T) {
	store := newStore(2)
	store.profiles["user00@example.com"].TargetEmploymentTypes = []string{"T03"}
	store.postings = []types.JobPosting{{ID: "1", CompanyName: "Acme", EmploymentType: str("T01")}}
	sender := &fakeSender{}
	logs := &fakeLog{}

	summary, err := newRunner(t, store, sender, logs).Run(context.Background(), Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].To, "user01@example.com")

	rec := logs.byEmail()["user00@example.com"]
	require.NotNil(t, rec)
	assert.Equal(t, types.DeliveryStatusFailed, rec.Status)
	assert.Equal(t, ErrNoRecommendations.Error(), rec.ErrorMessage)
	assert.Equal(t, 0, rec.RecommendedCount)
}

func TestRun_NilProfile(t *testing.T) {
	store := newStore(2)
	store.profiles["user00@example.com"] = nil
	sender := &fakeSender{}
	logs := &fakeLog{}

	summary, err := newRunner(t, store, sender, logs).Run(context.Background(), Options{Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, ErrNoProfile.Error(), summary.Outcomes[0].Error)
	assert.NotContains(t, summary.Outcomes[0].Error, "panic")
	require.Len(t, sender.sent, 1)

	rec := logs.byEmail()["user00@example.com"]
	require.NotNil(t, rec)
	assert.Equal(t, types.DeliveryStatusFailed, rec.Status)
	assert.Equal(t, ErrNoProfile.Error(), rec.ErrorMessage)
}

func TestRun_AbortsWhenSourcesFail(t *testing.T) {
	store := newStore(1)
	store.postingErr = errors.New("connection refused")
	sender := &fakeSender{}

	_, err := newRunner(t, store, sender, nil).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load postings")

	store = newStore(1)
	store.subscriberErr = errors.New("sheet not found")
	_, err = newRunner(t, store, sender, nil).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list subscribers")
	assert.Empty(t, sender.sent)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	store := newStore(20)
	sender := &fakeSender{delay: 10 * time.Millisecond}

	summary, err := newRunner(t, store, sender, nil).Run(context.Background(), Options{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Succeeded)
	assert.LessOrEqual(t, sender.peak.Load(), int32(3))
	assert.GreaterOrEqual(t, sender.peak.Load(), int32(1))
}

func TestRun_DefaultWorkers(t *testing.T) {
	store := newStore(12)
	sender := &fakeSender{delay: 10 * time.Millisecond}

	_, err := newRunner(t, store, sender, nil).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, sender.peak.Load(), int32(DefaultWorkers))
}

func TestRun_Cancelled(t *testing.T) {
	store := newStore(3)
	sender := &fakeSender{}
	logs := &fakeLog{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newRunner(t, store, sender, logs).Run(ctx, Options{Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Failed)
	assert.Empty(t, sender.sent)
	for _, o := range summary.Outcomes {
		assert.Equal(t, context.Canceled.Error(), o.Error)
	}
	assert.Len(t, logs.records, 3, "cancelled deliveries are still recorded")
}

func TestRun_DryRunSkipsLog(t *testing.T) {
	store := newStore(2)
	sender := &fakeSender{}
	logs := &fakeLog{}

	summary, err := newRunner(t, store, sender, logs).Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Len(t, sender.sent, 2)
	assert.Empty(t, logs.records)
}

func TestRun_LogFailureIsNotFatal(t *testing.T) {
	store := newStore(2)
	sender := &fakeSender{}
	logs := &fakeLog{err: errors.New("disk full")}

	summary, err := newRunner(t, store, sender, logs).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
}

func TestRun_UnsubscribeHeader(t *testing.T) {
	store := newStore(1)
	sender := &fakeSender{}
	r := newRunner(t, store, sender, nil)
	r.Unsubscribe = fakeSigner{}

	_, err := r.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "<https://example.com/unsubscribe?token=u00>", sender.sent[0].Headers["List-Unsubscribe"])
	assert.Contains(t, sender.sent[0].HTML, "https://example.com/unsubscribe?token=u00")
}

func TestRun_Progress(t *testing.T) {
	store := newStore(2)
	var mu sync.Mutex
	steps := map[string]int{}

	_, err := newRunner(t, store, &fakeSender{}, nil).Run(context.Background(), Options{
		OnProgress: func(e ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			steps[e.Step]++
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, steps[StepLoadPostings])
	assert.Equal(t, 1, steps[StepListSubscribers])
	assert.Equal(t, 2, steps[StepRecommend])
	assert.Equal(t, 2, steps[StepSent])
	assert.Equal(t, 1, steps[StepComplete])
}

func TestRun_MissingCollaborator(t *testing.T) {
	r := &Runner{}
	_, err := r.Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestSummary_SuccessRateEmpty(t *testing.T) {
	assert.Equal(t, 0.0, (&Summary{}).SuccessRate())
}
