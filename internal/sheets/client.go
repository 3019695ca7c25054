// Package sheets reads digest recipients and their preferences from a Google
// Sheets worksheet and writes delivery status back to it.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/job-digest/internal/types"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Header names recognised in the worksheet's first row. Only email is
// required; status and sent_at are appended when missing.
const (
	ColumnEmail              = "email"
	ColumnName               = "name"
	ColumnConsent            = "consent"
	ColumnEducation          = "education"
	ColumnCareer             = "career"
	ColumnEmploymentType     = "employment_type"
	ColumnJobRole1           = "job_role1"
	ColumnJobRole2           = "job_role2"
	ColumnJobRole3           = "job_role3"
	ColumnPreferredCompanies = "preferred_companies"
	ColumnStatus             = "status"
	ColumnSentAt             = "sent_at"
)

const sentAtLayout = "2006-01-02 15:04:05"

// Client is a worksheet-backed subscriber source and delivery recorder.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time

	mu          sync.Mutex
	loaded      bool
	columns     map[string]int
	rows        map[string]int // lower-cased email -> 1-based sheet row
	subscribers []types.Subscriber
	profiles    map[string]*types.PreferenceProfile
}

// NewClient creates a client for one worksheet. Credentials and endpoints are
// supplied through opts.
func NewClient(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
	}, nil
}

// LoadRecipients reads the worksheet and returns the consenting recipients
// in row order. Rows without an email and repeated emails are skipped.
func (c *Client) LoadRecipients(ctx context.Context) ([]types.Subscriber, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(c.sheetName)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", c.sheetName, err)
	}
	if len(resp.Values) == 0 {
		c.store(map[string]int{}, map[string]int{}, nil, map[string]*types.PreferenceProfile{})
		return nil, nil
	}

	columns := make(map[string]int)
	for i, cell := range resp.Values[0] {
		name := strings.ToLower(strings.TrimSpace(fmt.Sprint(cell)))
		if name == "" {
			continue
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	if _, ok := columns[ColumnEmail]; !ok {
		return nil, fmt.Errorf("worksheet %s has no %q column", c.sheetName, ColumnEmail)
	}
	if err := c.ensureStatusColumns(ctx, columns, len(resp.Values[0])); err != nil {
		return nil, err
	}

	rows := make(map[string]int)
	profiles := make(map[string]*types.PreferenceProfile)
	var subscribers []types.Subscriber
	for i, values := range resp.Values[1:] {
		r := row{columns: columns, values: values}
		email := r.get(ColumnEmail)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := rows[key]; dup {
			continue
		}
		sheetRow := i + 2
		rows[key] = sheetRow

		profile := r.profile(fmt.Sprintf("row-%d", sheetRow))
		profiles[key] = profile
		if !r.consents() {
			continue
		}
		subscribers = append(subscribers, types.Subscriber{
			UserID: profile.UserID,
			Email:  profile.Email,
			Name:   profile.Name,
		})
	}

	c.store(columns, rows, subscribers, profiles)
	return append([]types.Subscriber(nil), subscribers...), nil
}

// Subscribers loads the worksheet on first use.
func (c *Client) Subscribers(ctx context.Context) ([]types.Subscriber, error) {
	c.mu.Lock()
	loaded := c.loaded
	subs := append([]types.Subscriber(nil), c.subscribers...)
	c.mu.Unlock()
	if loaded {
		return subs, nil
	}
	return c.LoadRecipients(ctx)
}

// Profile returns the preferences read from sub's row.
func (c *Client) Profile(ctx context.Context, sub types.Subscriber) (*types.PreferenceProfile, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	profile, ok := c.profiles[strings.ToLower(strings.TrimSpace(sub.Email))]
	if !ok {
		return nil, fmt.Errorf("no row for %s in worksheet %s", sub.Email, c.sheetName)
	}
	return profile, nil
}

// Record writes the delivery status and time into the recipient's row.
func (c *Client) Record(ctx context.Context, rec *types.DeliveryRecord) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	sheetRow, ok := c.rows[strings.ToLower(strings.TrimSpace(rec.Email))]
	statusCol := c.columns[ColumnStatus]
	sentAtCol := c.columns[ColumnSentAt]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no row for %s in worksheet %s", rec.Email, c.sheetName)
	}

	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = c.now()
	}
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*gsheets.ValueRange{
			c.cell(statusCol, sheetRow, statusText(rec)),
			c.cell(sentAtCol, sheetRow, sentAt.Format(sentAtLayout)),
		},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write status for %s: %w", rec.Email, err)
	}
	return nil
}

func (c *Client) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if loaded {
		return nil
	}
	_, err := c.LoadRecipients(ctx)
	return err
}

func (c *Client) store(columns, rows map[string]int, subs []types.Subscriber, profiles map[string]*types.PreferenceProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.columns = columns
	c.rows = rows
	c.subscribers = subs
	c.profiles = profiles
}

// ensureStatusColumns appends the status and sent_at headers when the sheet
// lacks them and records their positions in columns.
func (c *Client) ensureStatusColumns(ctx context.Context, columns map[string]int, width int) error {
	var data []*gsheets.ValueRange
	for _, name := range []string{ColumnStatus, ColumnSentAt} {
		if _, ok := columns[name]; ok {
			continue
		}
		columns[name] = width
		data = append(data, c.cell(width, 1, name))
		width++
	}
	if len(data) == 0 {
		return nil
	}
	req := &gsheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add status columns: %w", err)
	}
	return nil
}

func (c *Client) cell(col, row int, value string) *gsheets.ValueRange {
	return &gsheets.ValueRange{
		Range:  fmt.Sprintf("%s!%s%d", quoteSheet(c.sheetName), ColumnLetter(col), row),
		Values: [][]interface{}{{value}},
	}
}

func statusText(rec *types.DeliveryRecord) string {
	if rec.ErrorMessage == "" {
		return rec.Status
	}
	return rec.Status + " " + rec.ErrorMessage
}

// ColumnLetter converts a 0-based column index to A1 notation (0 -> A, 26 -> AA).
func ColumnLetter(index int) string {
	var out []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
