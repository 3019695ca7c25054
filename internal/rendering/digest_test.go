package rendering

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

var renderNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func sampleResults() []types.RecommendationResult {
	return []types.RecommendationResult{
		{
			Posting: types.JobPosting{
				CompanyName:         "카카오뱅크",
				JobTitle:            "데이터 분석가",
				ExperienceLevel:     str("신입"),
				EmploymentType:      str("T01"),
				ApplicationDeadline: day(2026, 3, 13),
				ApplicationLink:     "https://careers.example.com/1",
			},
			IsPreferredCompany: true,
		},
		{
			Posting: types.JobPosting{
				CompanyName:     "Acme",
				ExperienceLevel: str("경력"),
				EmploymentType:  str("T03"),
			},
		},
	}
}

func TestBuildCards(t *testing.T) {
	cards := BuildCards(sampleResults(), renderNow)
	require.Len(t, cards, 2)

	first := cards[0]
	assert.Equal(t, "카카", first.Logo)
	assert.True(t, first.Preferred)
	assert.Equal(t, "데이터 분석가", first.Title)
	assert.Equal(t, []Tag{{Label: "신입", Class: "tag-entry"}, {Label: "정규직", Class: "tag-fulltime"}}, first.Tags)
	assert.Equal(t, Deadline{Date: "~26년 03월 13일", DDay: "(D-3)"}, first.Deadline)
	assert.Equal(t, "https://careers.example.com/1", first.ApplyLink)

	second := cards[1]
	assert.Equal(t, "Ac", second.Logo)
	assert.Equal(t, "채용공고", second.Title)
	assert.Equal(t, []Tag{{Label: "인턴", Class: "tag-intern"}}, second.Tags)
	assert.Equal(t, "마감일 미정", second.Deadline.Date)
	assert.Equal(t, "#", second.ApplyLink)
}

func TestBuildCards_Fallbacks(t *testing.T) {
	cards := BuildCards([]types.RecommendationResult{{Posting: types.JobPosting{}}}, renderNow)
	require.Len(t, cards, 1)
	assert.Equal(t, "회사", cards[0].Logo)
	assert.Equal(t, []Tag{{Label: "신입", Class: "tag-entry"}}, cards[0].Tags, "absent experience shows as entry level")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "김지원님을 위한 맞춤 채용공고", Subject("김지원"))
	assert.Equal(t, "회원님을 위한 맞춤 채용공고", Subject("  "))
}

func TestDigestRenderer_Render(t *testing.T) {
	r, err := NewDigestRenderer("")
	require.NoError(t, err)

	digest, err := r.Render(DigestInput{
		UserName:       "김지원",
		Results:        sampleResults(),
		Now:            renderNow,
		UnsubscribeURL: "https://example.com/unsubscribe?token=abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "김지원님을 위한 맞춤 채용공고", digest.Subject)
	assert.Contains(t, digest.HTML, "2026.03.10")
	assert.Contains(t, digest.HTML, "3월 2주차")
	assert.Contains(t, digest.HTML, "⭐️카카오뱅크")
	assert.Contains(t, digest.HTML, `href="https://careers.example.com/1"`)
	assert.Contains(t, digest.HTML, "(D-3)")
	assert.Contains(t, digest.HTML, "https://example.com/unsubscribe?token=abc")
	assert.Equal(t, 2, strings.Count(digest.HTML, `class="job-card"`))
	assert.Less(t, strings.Index(digest.HTML, "카카오뱅크"), strings.Index(digest.HTML, "Acme"), "cards keep rank order")

	assert.Contains(t, digest.Text, "카카오뱅크")
	assert.Contains(t, digest.Text, "바로가기 (https://careers.example.com/1)")
	assert.NotContains(t, digest.Text, "<div")
	assert.NotContains(t, digest.Text, ".job-card", "styles are dropped")
}

func TestDigestRenderer_EscapesPostingText(t *testing.T) {
	r, err := NewDigestRenderer("")
	require.NoError(t, err)

	results := []types.RecommendationResult{{Posting: types.JobPosting{
		CompanyName:     "<script>alert(1)</script>",
		ApplicationLink: "javascript:alert(1)",
	}}}
	digest, err := r.Render(DigestInput{UserName: "x", Results: results, Now: renderNow})
	require.NoError(t, err)
	assert.NotContains(t, digest.HTML, "<script>alert(1)</script>")
	assert.NotContains(t, digest.HTML, `href="javascript:`)
	assert.NotContains(t, digest.HTML, "수신 거부", "no unsubscribe link without a url")
}

func TestNewDigestRenderer_CustomTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p>{{.UserName}} {{len .Cards}}</p>`), 0644))

	r, err := NewDigestRenderer(path)
	require.NoError(t, err)
	digest, err := r.Render(DigestInput{UserName: "Kim", Results: sampleResults(), Now: renderNow})
	require.NoError(t, err)
	assert.Equal(t, "<p>Kim 2</p>", digest.HTML)
	assert.Equal(t, "Kim 2", digest.Text)
}

func TestNewDigestRenderer_Errors(t *testing.T) {
	_, err := NewDigestRenderer("/nonexistent/digest.html")
	require.Error(t, err)
	var tmplErr *TemplateError
	require.True(t, errors.As(err, &tmplErr))
	assert.Contains(t, err.Error(), "template file not found")

	path := filepath.Join(t.TempDir(), "bad.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{.UserName`), 0644))
	_, err = NewDigestRenderer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestDigestRenderer_ExecuteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{.Missing}}`), 0644))

	r, err := NewDigestRenderer(path)
	require.NoError(t, err)
	_, err = r.Render(DigestInput{Now: renderNow})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute template")
}
