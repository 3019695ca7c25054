package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/job-digest/internal/types"
)

// Source adapts DB to the batch runner's subscriber, profile, posting and
// delivery-log collaborators.
type Source struct {
	db *DB
}

// Source returns the batch adapter for db.
func (db *DB) Source() *Source {
	return &Source{db: db}
}

// Subscribers lists consenting users.
func (s *Source) Subscribers(ctx context.Context) ([]types.Subscriber, error) {
	return s.db.ListActiveSubscribers(ctx)
}

// Profile loads the preference profile of sub. A subscriber whose user row
// disappeared mid-run is an error.
func (s *Source) Profile(ctx context.Context, sub types.Subscriber) (*types.PreferenceProfile, error) {
	profile, err := s.db.GetPreferenceProfile(ctx, sub.Email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("no preference profile for %s", sub.Email)
	}
	return profile, nil
}

// ActivePostings returns the open posting pool.
func (s *Source) ActivePostings(ctx context.Context, asOf time.Time) ([]types.JobPosting, error) {
	return s.db.ListActivePostings(ctx, asOf)
}

// Record appends a delivery outcome.
func (s *Source) Record(ctx context.Context, rec *types.DeliveryRecord) error {
	return s.db.InsertDeliveryLog(ctx, rec)
}
