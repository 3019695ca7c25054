package filtering

import (
	"testing"

	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func ids(postings []types.JobPosting) []string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.ID)
	}
	return out
}

func TestParseEntryLevelPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    EntryLevelPolicy
		wantErr bool
	}{
		{input: "", want: EntryLevelWhenRequested},
		{input: "when_requested", want: EntryLevelWhenRequested},
		{input: " ALWAYS ", want: EntryLevelAlways},
		{input: "never", want: EntryLevelNever},
		{input: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEntryLevelPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_StageOrder(t *testing.T) {
	f := New(Options{})
	names := make([]string, 0, 4)
	for _, s := range f.Stages() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"experience", "employment_type", "job_role", "education"}, names)
}

func TestFilter_ExperienceGate(t *testing.T) {
	postings := []types.JobPosting{
		{ID: "entry", ExperienceLevel: str("신입")},
		{ID: "entry-code", ExperienceLevel: str("E01")},
		{ID: "absent"},
		{ID: "senior", ExperienceLevel: str("경력")},
	}
	entrySeeker := &types.PreferenceProfile{TargetExperience: str("신입")}
	experienced := &types.PreferenceProfile{TargetExperience: str("경력")}
	unstated := &types.PreferenceProfile{}

	tests := []struct {
		name    string
		policy  EntryLevelPolicy
		profile *types.PreferenceProfile
		want    []string
	}{
		{name: "when requested gates entry seekers", policy: EntryLevelWhenRequested, profile: entrySeeker, want: []string{"entry", "entry-code", "absent"}},
		{name: "when requested ignores experienced seekers", policy: EntryLevelWhenRequested, profile: experienced, want: []string{"entry", "entry-code", "absent", "senior"}},
		{name: "when requested ignores unstated preference", policy: EntryLevelWhenRequested, profile: unstated, want: []string{"entry", "entry-code", "absent", "senior"}},
		{name: "always gates everyone", policy: EntryLevelAlways, profile: experienced, want: []string{"entry", "entry-code", "absent"}},
		{name: "never gates", policy: EntryLevelNever, profile: entrySeeker, want: []string{"entry", "entry-code", "absent", "senior"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(Options{EntryLevel: tt.policy})
			assert.Equal(t, tt.want, ids(f.Apply(tt.profile, postings)))
		})
	}
}

func TestFilter_CustomMarkers(t *testing.T) {
	f := New(Options{EntryLevel: EntryLevelAlways, EntryLevelMarkers: []string{"junior"}})
	postings := []types.JobPosting{
		{ID: "junior", ExperienceLevel: str("junior")},
		{ID: "entry", ExperienceLevel: str("신입")},
	}
	assert.Equal(t, []string{"junior"}, ids(f.Apply(&types.PreferenceProfile{}, postings)))
}

func TestFilter_EmploymentRoleEducation(t *testing.T) {
	profile := &types.PreferenceProfile{
		TargetEmploymentTypes: []string{"T01"},
		TargetJobRoles:        []string{"", "Data Analyst"},
		TargetEducationLevels: []string{"D04"},
	}
	postings := []types.JobPosting{
		{ID: "match", EmploymentType: str("T01"), JobRole: str("Data Analyst"), EducationRequirement: str("D04")},
		{ID: "all-absent"},
		{ID: "wrong-emp", EmploymentType: str("T03")},
		{ID: "wrong-role", JobRole: str("Backend")},
		{ID: "wrong-edu", EducationRequirement: str("D06")},
	}

	got := New(Options{}).Apply(profile, postings)
	assert.Equal(t, []string{"match", "all-absent"}, ids(got))
}

func TestFilter_PermissiveOnUnknown(t *testing.T) {
	// Every constraint set, every posting field absent: nothing is dropped.
	profile := &types.PreferenceProfile{
		TargetExperience:      str("신입"),
		TargetEmploymentTypes: []string{"T01"},
		TargetJobRoles:        []string{"Data Analyst"},
		TargetEducationLevels: []string{"D04"},
	}
	postings := []types.JobPosting{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	f := New(Options{EntryLevel: EntryLevelAlways})
	for _, stage := range f.Stages() {
		for i := range postings {
			assert.True(t, stage.Keep(profile, &postings[i]), "stage %s dropped posting with absent field", stage.Name())
		}
	}
	assert.Len(t, f.Apply(profile, postings), 3)
}

func TestFilter_UnconstrainedProfileKeepsEverything(t *testing.T) {
	postings := []types.JobPosting{
		{ID: "a", ExperienceLevel: str("신입"), EmploymentType: str("T02"), JobRole: str("X"), EducationRequirement: str("D02")},
		{ID: "b", EmploymentType: str("T01"), JobRole: str("Y"), EducationRequirement: str("D06")},
	}
	got := New(Options{}).Apply(&types.PreferenceProfile{}, postings)
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestFilter_StageOneRejectionIsFinal(t *testing.T) {
	profile := &types.PreferenceProfile{
		TargetExperience:      str("신입"),
		TargetEmploymentTypes: []string{"T01"},
		TargetJobRoles:        []string{"Data Analyst"},
		TargetEducationLevels: []string{"D04"},
	}
	// Passes stages 2-4 but not the experience gate.
	postings := []types.JobPosting{
		{ID: "senior", ExperienceLevel: str("경력"), EmploymentType: str("T01"), JobRole: str("Data Analyst"), EducationRequirement: str("D04")},
	}

	kept, trace := New(Options{}).Trace(profile, postings)
	assert.Empty(t, kept)
	require.Len(t, trace.Stages, 4)
	assert.Equal(t, 0, trace.Stages[0].Remaining)
	assert.Equal(t, 0, trace.Remaining())
}

func TestFilter_Trace(t *testing.T) {
	profile := &types.PreferenceProfile{
		TargetExperience:      str("신입"),
		TargetEducationLevels: []string{"D04"},
	}
	postings := []types.JobPosting{
		{ID: "1", ExperienceLevel: str("경력")},
		{ID: "2", EducationRequirement: str("D06")},
		{ID: "3"},
	}

	kept, trace := New(Options{}).Trace(profile, postings)
	assert.Equal(t, []string{"3"}, ids(kept))
	assert.Equal(t, 3, trace.Input)
	assert.Equal(t, []StageCount{
		{Name: "experience", Remaining: 2},
		{Name: "employment_type", Remaining: 2},
		{Name: "job_role", Remaining: 2},
		{Name: "education", Remaining: 1},
	}, trace.Stages)
}

func TestFilter_NilProfile(t *testing.T) {
	kept, trace := New(Options{}).Trace(nil, []types.JobPosting{{ID: "a"}})
	assert.Empty(t, kept)
	assert.Equal(t, 1, trace.Input)
	assert.Equal(t, 0, trace.Remaining())
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	postings := []types.JobPosting{{ID: "a", EmploymentType: str("T03")}, {ID: "b"}}
	profile := &types.PreferenceProfile{TargetEmploymentTypes: []string{"T01"}}

	_ = New(Options{}).Apply(profile, postings)
	assert.Equal(t, []string{"a", "b"}, ids(postings))
}
