package rendering

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/types"
)

//go:embed templates/digest.html.tmpl
var templateFS embed.FS

const (
	defaultTemplate = "templates/digest.html.tmpl"
	defaultUserName = "회원"
	defaultLogo     = "회사"
	defaultTitle    = "채용공고"
	defaultLink     = "#"
)

// entryLevelValues are experience values shown with the 신입 tag. An absent
// value is also shown as entry level.
var entryLevelValues = map[string]bool{"신입": true, "E01": true}

var employmentTags = map[string]Tag{
	"T01": {Label: "정규직", Class: "tag-fulltime"},
	"T02": {Label: "계약직", Class: "tag-fulltime"},
	"T03": {Label: "인턴", Class: "tag-intern"},
}

// DigestInput is everything needed to render one subscriber's digest.
type DigestInput struct {
	UserName       string
	Results        []types.RecommendationResult
	Now            time.Time
	UnsubscribeURL string
}

// Digest is a rendered email body.
type Digest struct {
	Subject string
	HTML    string
	Text    string
}

// Tag is a label chip on a card.
type Tag struct {
	Label string
	Class string
}

// Card is the display model of one recommended posting.
type Card struct {
	Logo        string
	Preferred   bool
	CompanyName string
	Title       string
	Tags        []Tag
	Deadline    Deadline
	ApplyLink   string
}

type digestData struct {
	Subject        string
	UserName       string
	Date           string
	Week           string
	Cards          []Card
	UnsubscribeURL string
}

// DigestRenderer renders digests from a parsed HTML template. It is safe for
// concurrent use.
type DigestRenderer struct {
	tmpl *template.Template
}

// NewDigestRenderer parses the template at templatePath, or the built-in
// template when templatePath is empty.
func NewDigestRenderer(templatePath string) (*DigestRenderer, error) {
	var (
		content []byte
		err     error
		name    = templatePath
	)
	if templatePath == "" {
		name = defaultTemplate
		content, err = templateFS.ReadFile(defaultTemplate)
	} else {
		content, err = os.ReadFile(templatePath)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{Message: fmt.Sprintf("template file not found: %s", name), Cause: err}
		}
		return nil, &TemplateError{Message: fmt.Sprintf("failed to read template file: %s", name), Cause: err}
	}

	tmpl, err := template.New("digest").Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return &DigestRenderer{tmpl: tmpl}, nil
}

// Subject returns the digest subject line for a subscriber.
func Subject(name string) string {
	return fmt.Sprintf("%s님을 위한 맞춤 채용공고", displayName(name))
}

// Render produces the HTML and plain-text bodies of a digest.
func (r *DigestRenderer) Render(in DigestInput) (*Digest, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	data := digestData{
		Subject:        Subject(in.UserName),
		UserName:       displayName(in.UserName),
		Date:           FormatDate(now),
		Week:           WeekLabel(now),
		Cards:          BuildCards(in.Results, now),
		UnsubscribeURL: in.UnsubscribeURL,
	}

	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, data); err != nil {
		return nil, &TemplateError{Message: "failed to execute template", Cause: err}
	}
	text, err := PlainText(sb.String())
	if err != nil {
		return nil, err
	}
	return &Digest{Subject: data.Subject, HTML: sb.String(), Text: text}, nil
}

// BuildCards converts ranked results into display cards in rank order.
func BuildCards(results []types.RecommendationResult, today time.Time) []Card {
	cards := make([]Card, 0, len(results))
	for _, r := range results {
		p := r.Posting
		card := Card{
			Logo:        logo(p.CompanyName),
			Preferred:   r.IsPreferredCompany,
			CompanyName: p.CompanyName,
			Title:       strings.TrimSpace(p.JobTitle),
			Deadline:    DeadlineInfo(p.ApplicationDeadline, today),
			ApplyLink:   strings.TrimSpace(p.ApplicationLink),
		}
		if card.Title == "" {
			card.Title = defaultTitle
		}
		if card.ApplyLink == "" {
			card.ApplyLink = defaultLink
		}
		if p.ExperienceLevel == nil || entryLevelValues[*p.ExperienceLevel] {
			card.Tags = append(card.Tags, Tag{Label: "신입", Class: "tag-entry"})
		}
		if tag, ok := employmentTags[types.Value(p.EmploymentType)]; ok {
			card.Tags = append(card.Tags, tag)
		}
		cards = append(cards, card)
	}
	return cards
}

func logo(company string) string {
	runes := []rune(strings.TrimSpace(company))
	if len(runes) == 0 {
		return defaultLogo
	}
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return defaultUserName
	}
	return name
}
