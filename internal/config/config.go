// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Data sources for subscribers and preference profiles.
const (
	SourceDB     = "db"
	SourceFiles  = "files"
	SourceSheets = "sheets"
)

// Mail transports.
const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
	TransportFile  = "file"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables
// or CLI flags.
type Config struct {
	// Sources
	Source            string `json:"source,omitempty" validate:"omitempty,oneof=db files sheets"`
	DatabaseURL       string `json:"database_url,omitempty"`       // PostgreSQL connection URL
	PostingsDir       string `json:"postings_dir,omitempty"`       // Directory of posting JSON files; overrides the DB pool
	ProfilesFile      string `json:"profiles_file,omitempty"`      // Subscriber/profile JSON file (files source)
	SpreadsheetID     string `json:"spreadsheet_id,omitempty"`     // Google Sheets document (sheets source)
	SheetName         string `json:"sheet_name,omitempty"`         // Worksheet holding recipients
	GoogleCredentials string `json:"google_credentials,omitempty"` // Service account JSON for Sheets and Gmail

	// Delivery
	Transport      string     `json:"transport,omitempty" validate:"omitempty,oneof=smtp gmail file"`
	SMTP           SMTPConfig `json:"smtp,omitempty"`
	GmailSender    string     `json:"gmail_sender,omitempty" validate:"omitempty,email"`
	OutboxDir      string     `json:"outbox_dir,omitempty"`        // Target directory of the file transport
	SendRatePerSec float64    `json:"send_rate_per_sec,omitempty" validate:"gte=0"`
	DeliveryLog    string     `json:"delivery_log,omitempty"`      // SQLite delivery log path (files and sheets sources)

	// Ranking
	TopN              int      `json:"top_n,omitempty" validate:"gte=0"`
	Workers           int      `json:"workers,omitempty" validate:"gte=0,lte=64"`
	RankingPolicy     string   `json:"ranking_policy,omitempty" validate:"omitempty,oneof=lexicographic weighted"`
	WeightsFile       string   `json:"weights_file,omitempty"`
	EntryLevelPolicy  string   `json:"entry_level_policy,omitempty" validate:"omitempty,oneof=when_requested always never"`
	EntryLevelMarkers []string `json:"entry_level_markers,omitempty"`
	CompaniesFile     string   `json:"companies_file,omitempty"` // YAML preference-group table; empty uses the built-in one

	// Rendering
	Template    string            `json:"template,omitempty"` // Digest HTML template; empty uses the built-in one
	Unsubscribe UnsubscribeConfig `json:"unsubscribe,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty" validate:"omitempty,gte=1,lte=65535"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from,omitempty" validate:"omitempty,email"`
}

// ConfigError reports an invalid configuration value.
//
//nolint:revive // config.ConfigError reads well at call sites
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: '%s' %s", e.Field, e.Message)
}

// Defaults returns the built-in configuration values.
func Defaults() Config {
	return Config{
		Source:           SourceDB,
		SheetName:        "Sheet1",
		Transport:        TransportSMTP,
		SMTP:             SMTPConfig{Port: 587},
		OutboxDir:        "outbox",
		TopN:             10,
		Workers:          5,
		RankingPolicy:    "lexicographic",
		EntryLevelPolicy: "when_requested",
		Unsubscribe:      UnsubscribeConfig{ExpirationHours: defaultUnsubscribeExpirationHours},
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields with environment variables that are set.
func (c *Config) ApplyEnv() {
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.GoogleCredentials = getEnvString("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleCredentials)
	c.SpreadsheetID = getEnvString("SPREADSHEET_ID", c.SpreadsheetID)

	c.SMTP.Host = getEnvString("SMTP_SERVER", c.SMTP.Host)
	c.SMTP.Port = getEnvInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Username = getEnvString("SMTP_USERNAME", c.SMTP.Username)
	c.SMTP.From = getEnvString("SENDER_EMAIL", c.SMTP.From)
	c.SMTP.Password = getEnvString("SENDER_PASSWORD", c.SMTP.Password)
	c.GmailSender = getEnvString("GMAIL_SENDER", c.GmailSender)

	c.TopN = getEnvInt("DIGEST_TOP_N", c.TopN)
	c.Workers = getEnvInt("DIGEST_WORKERS", c.Workers)
	c.SendRatePerSec = getEnvFloat("DIGEST_SEND_RATE", c.SendRatePerSec)
	c.Verbose = getEnvBool("DIGEST_VERBOSE", c.Verbose)

	c.Unsubscribe.Secret = getEnvString("UNSUBSCRIBE_SECRET", c.Unsubscribe.Secret)
	c.Unsubscribe.BaseURL = getEnvString("UNSUBSCRIBE_BASE_URL", c.Unsubscribe.BaseURL)
	c.Unsubscribe.ExpirationHours = getEnvInt("UNSUBSCRIBE_EXPIRATION_HOURS", c.Unsubscribe.ExpirationHours)
}

// Validate checks that the configuration has valid values and that the
// selected source and transport have what they need.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ConfigError{Field: trimNamespace(fe.Namespace()), Message: describeTag(fe)}
		}
		return fmt.Errorf("config error: %w", err)
	}

	switch c.Source {
	case SourceDB:
		if c.DatabaseURL == "" {
			return &ConfigError{Field: "database_url", Message: "is required for the db source"}
		}
	case SourceFiles:
		if c.ProfilesFile == "" {
			return &ConfigError{Field: "profiles_file", Message: "is required for the files source"}
		}
	case SourceSheets:
		if c.SpreadsheetID == "" {
			return &ConfigError{Field: "spreadsheet_id", Message: "is required for the sheets source"}
		}
	}
	if c.Source != SourceDB && c.PostingsDir == "" && c.DatabaseURL == "" {
		return &ConfigError{Field: "postings_dir", Message: "or database_url is required to load postings"}
	}

	switch c.Transport {
	case TransportSMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return &ConfigError{Field: "smtp", Message: "host and from are required for the smtp transport"}
		}
	case TransportGmail:
		if c.GmailSender == "" {
			return &ConfigError{Field: "gmail_sender", Message: "is required for the gmail transport"}
		}
	case TransportFile:
		if c.OutboxDir == "" {
			return &ConfigError{Field: "outbox_dir", Message: "is required for the file transport"}
		}
	}

	// Validate file paths exist (if specified)
	for field, path := range map[string]string{
		"template":       c.Template,
		"companies_file": c.CompaniesFile,
		"weights_file":   c.WeightsFile,
		"profiles_file":  c.ProfilesFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return &ConfigError{Field: field, Message: fmt.Sprintf("file not found: %s", path)}
		}
	}

	if err := c.Unsubscribe.normalize(); err != nil {
		return err
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.Source, defaults.Source)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.PostingsDir, defaults.PostingsDir)
	mergeString(&result.ProfilesFile, defaults.ProfilesFile)
	mergeString(&result.SpreadsheetID, defaults.SpreadsheetID)
	mergeString(&result.SheetName, defaults.SheetName)
	mergeString(&result.GoogleCredentials, defaults.GoogleCredentials)
	mergeString(&result.Transport, defaults.Transport)
	mergeString(&result.SMTP.Host, defaults.SMTP.Host)
	mergeString(&result.SMTP.Username, defaults.SMTP.Username)
	mergeString(&result.SMTP.Password, defaults.SMTP.Password)
	mergeString(&result.SMTP.From, defaults.SMTP.From)
	mergeString(&result.GmailSender, defaults.GmailSender)
	mergeString(&result.OutboxDir, defaults.OutboxDir)
	mergeString(&result.DeliveryLog, defaults.DeliveryLog)
	mergeString(&result.RankingPolicy, defaults.RankingPolicy)
	mergeString(&result.WeightsFile, defaults.WeightsFile)
	mergeString(&result.EntryLevelPolicy, defaults.EntryLevelPolicy)
	mergeString(&result.CompaniesFile, defaults.CompaniesFile)
	mergeString(&result.Template, defaults.Template)
	mergeString(&result.Unsubscribe.Secret, defaults.Unsubscribe.Secret)
	mergeString(&result.Unsubscribe.BaseURL, defaults.Unsubscribe.BaseURL)

	// Numeric fields: use default if zero
	mergeInt(&result.SMTP.Port, defaults.SMTP.Port)
	mergeInt(&result.TopN, defaults.TopN)
	mergeInt(&result.Workers, defaults.Workers)
	mergeInt(&result.Unsubscribe.ExpirationHours, defaults.Unsubscribe.ExpirationHours)
	if result.SendRatePerSec == 0 {
		result.SendRatePerSec = defaults.SendRatePerSec
	}

	if len(result.EntryLevelMarkers) == 0 {
		result.EntryLevelMarkers = defaults.EntryLevelMarkers
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// trimNamespace drops the root struct name: "Config.smtp.port" -> "smtp.port".
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
