package filesource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/job-digest/internal/schemas"
	"github.com/jonathan/job-digest/internal/types"
)

// profileRecord is one entry of a profiles file. Consent defaults to true.
type profileRecord struct {
	types.PreferenceProfile
	Consent *bool `json:"consent,omitempty"`
}

// Entry is one profile of a profiles file with its consent flag.
type Entry struct {
	Profile *types.PreferenceProfile
	Consent bool
}

// ProfileFile holds the subscribers and profiles read from a JSON file.
type ProfileFile struct {
	subscribers []types.Subscriber
	profiles    map[string]*types.PreferenceProfile
	entries     []Entry
}

// LoadProfiles reads a JSON array of subscriber profiles. Entries without
// consent are kept for lookups but not listed as subscribers. Duplicate
// emails are rejected.
func LoadProfiles(path string) (*ProfileFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file %s: %w", path, err)
	}
	if v := loadValidator(schemas.PreferenceProfilesSchema); v != nil {
		if err := v.ValidateBytes(path, data); err != nil {
			return nil, err
		}
	}

	var records []profileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file %s: %w", path, err)
	}

	pf := &ProfileFile{profiles: make(map[string]*types.PreferenceProfile, len(records))}
	for i := range records {
		rec := records[i]
		profile := rec.PreferenceProfile
		profile.Email = strings.TrimSpace(profile.Email)
		profile.TargetExperience = types.NormalizeOptional(profile.TargetExperience)
		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("profile %d (%s) is invalid: %w", i, profile.Email, err)
		}
		key := strings.ToLower(profile.Email)
		if _, dup := pf.profiles[key]; dup {
			return nil, fmt.Errorf("duplicate profile for %s", profile.Email)
		}
		if profile.UserID == "" {
			profile.UserID = profile.Email
		}
		pf.profiles[key] = &profile

		consent := rec.Consent == nil || *rec.Consent
		pf.entries = append(pf.entries, Entry{Profile: &profile, Consent: consent})
		if consent {
			pf.subscribers = append(pf.subscribers, types.Subscriber{
				UserID: profile.UserID,
				Email:  profile.Email,
				Name:   profile.Name,
			})
		}
	}
	return pf, nil
}

// Subscribers returns the consenting entries in file order.
func (pf *ProfileFile) Subscribers(_ context.Context) ([]types.Subscriber, error) {
	return append([]types.Subscriber(nil), pf.subscribers...), nil
}

// Profile returns the profile stored for sub's email.
func (pf *ProfileFile) Profile(_ context.Context, sub types.Subscriber) (*types.PreferenceProfile, error) {
	profile, ok := pf.profiles[strings.ToLower(strings.TrimSpace(sub.Email))]
	if !ok {
		return nil, fmt.Errorf("no preference profile for %s", sub.Email)
	}
	return profile, nil
}

// Entries returns every profile in file order, including those without consent.
func (pf *ProfileFile) Entries() []Entry {
	return append([]Entry(nil), pf.entries...)
}

// Lookup returns the profile for email, or nil.
func (pf *ProfileFile) Lookup(email string) *types.PreferenceProfile {
	return pf.profiles[strings.ToLower(strings.TrimSpace(email))]
}
