package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/job-digest/internal/batch"
	"github.com/jonathan/job-digest/internal/companies"
	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/db"
	"github.com/jonathan/job-digest/internal/deliverylog"
	"github.com/jonathan/job-digest/internal/filesource"
	"github.com/jonathan/job-digest/internal/filtering"
	"github.com/jonathan/job-digest/internal/mail"
	"github.com/jonathan/job-digest/internal/ranking"
	"github.com/jonathan/job-digest/internal/recommend"
	"github.com/jonathan/job-digest/internal/sheets"
	"github.com/spf13/cobra"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// resolveConfig builds the effective configuration: config file, then
// environment, then root flags, then the command's own overrides. Unset
// values fall back to config.Defaults.
func resolveConfig(cmd *cobra.Command, override func(cfg *config.Config)) (*config.Config, error) {
	var cfg config.Config
	if rootConfigPath != "" {
		loaded, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	cfg.ApplyEnv()

	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = rootDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = rootVerbose
	}
	if override != nil {
		override(&cfg)
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Verbose && rootConfigPath != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", rootConfigPath)
	}
	return &cfg, nil
}

// buildEngine assembles the filter, ranking policy and company table.
func buildEngine(cfg *config.Config) (*recommend.Engine, error) {
	entryLevel, err := filtering.ParseEntryLevelPolicy(cfg.EntryLevelPolicy)
	if err != nil {
		return nil, err
	}

	var weights *ranking.WeightedConfig
	if cfg.WeightsFile != "" {
		if weights, err = ranking.LoadWeights(cfg.WeightsFile); err != nil {
			return nil, err
		}
	}
	policy, err := ranking.PolicyByName(cfg.RankingPolicy, weights)
	if err != nil {
		return nil, err
	}

	table := companies.DefaultTable()
	if cfg.CompaniesFile != "" {
		if table, err = companies.LoadTable(cfg.CompaniesFile); err != nil {
			return nil, err
		}
	}

	return recommend.New(recommend.Options{
		Filter: filtering.New(filtering.Options{
			EntryLevel:        entryLevel,
			EntryLevelMarkers: cfg.EntryLevelMarkers,
		}),
		Policy:    policy,
		Companies: table,
	}), nil
}

// sources holds the collaborators selected by the configured source.
type sources struct {
	subscribers batch.SubscriberSource
	profiles    batch.ProfileSource
	postings    batch.PostingSource
	recorder    batch.Recorder
	database    *db.DB
	closers     []func()
}

func (s *sources) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSources connects the subscriber, profile, posting and delivery-log
// collaborators. Postings come from postings_dir when set, otherwise from the
// database.
func openSources(ctx context.Context, cfg *config.Config) (*sources, error) {
	s := &sources{}

	needDB := cfg.Source == config.SourceDB || cfg.PostingsDir == ""
	if needDB {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
		}
		database, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: int32(cfg.Workers + 2)})
		if err != nil {
			return nil, err
		}
		s.database = database
		s.closers = append(s.closers, database.Close)
	}

	switch cfg.Source {
	case config.SourceDB:
		src := s.database.Source()
		s.subscribers, s.profiles, s.recorder = src, src, src
	case config.SourceFiles:
		pf, err := filesource.LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.subscribers, s.profiles = pf, pf
	case config.SourceSheets:
		client, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.SheetName, googleOptions(cfg, gsheets.SpreadsheetsScope)...)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.subscribers, s.profiles, s.recorder = client, client, client
	default:
		s.Close()
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}

	if cfg.PostingsDir != "" {
		s.postings = filesource.PostingDir{Dir: cfg.PostingsDir}
	} else {
		s.postings = s.database.Source()
	}

	if cfg.DeliveryLog != "" {
		sqliteLog, err := deliverylog.Open(cfg.DeliveryLog)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = sqliteLog.Close() })
		s.recorder = deliverylog.Multi(s.recorder, sqliteLog)
	}

	return s, nil
}

// buildSender creates the configured transport, paced by send_rate_per_sec.
func buildSender(ctx context.Context, cfg *config.Config) (mail.Sender, error) {
	var sender mail.Sender
	switch cfg.Transport {
	case config.TransportSMTP:
		sender = &mail.SMTPSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}
	case config.TransportGmail:
		gmailSender, err := mail.NewGmailSender(ctx, "me", googleOptions(cfg, gmail.GmailSendScope)...)
		if err != nil {
			return nil, err
		}
		sender = gmailSender
	case config.TransportFile:
		sender = &mail.FileSender{Dir: cfg.OutboxDir}
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	if cfg.SendRatePerSec > 0 {
		sender = mail.RateLimited(sender, cfg.SendRatePerSec, 1)
	}
	return sender, nil
}

// fromAddress picks the sender address for the configured transport.
func fromAddress(cfg *config.Config) string {
	switch {
	case cfg.Transport == config.TransportGmail && cfg.GmailSender != "":
		return cfg.GmailSender
	case cfg.SMTP.From != "":
		return cfg.SMTP.From
	case cfg.GmailSender != "":
		return cfg.GmailSender
	default:
		return "digest@localhost"
	}
}

func googleOptions(cfg *config.Config, scope string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(scope)}
	if cfg.GoogleCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentials))
	}
	return opts
}
