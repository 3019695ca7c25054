package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/job-digest/internal/batch"
	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/observability"
	"github.com/jonathan/job-digest/internal/rendering"
	"github.com/jonathan/job-digest/internal/unsubscribe"
	"github.com/spf13/cobra"
)

var sendCommand = &cobra.Command{
	Use:   "send",
	Short: "Send personalized digests to every consenting subscriber",
	Long: `Runs one digest batch: loads the open posting pool once, then filters, ranks, renders and sends a digest for each subscriber.

A failure for one subscriber is recorded and never stops the others. --dry-run writes the messages to the outbox directory instead of sending them and skips the delivery log.`,
	RunE: runSend,
}

var (
	sendSource        string
	sendPostingsDir   string
	sendProfilesFile  string
	sendSpreadsheetID string
	sendTransport     string
	sendOutboxDir     string
	sendTopN          int
	sendWorkers       int
	sendPolicy        string
	sendDeliveryLog   string
	sendDryRun        bool
)

func init() {
	sendCommand.Flags().StringVar(&sendSource, "source", "", "Subscriber source: db, files or sheets (default db)")
	sendCommand.Flags().StringVar(&sendPostingsDir, "postings-dir", "", "Directory of posting JSON files (defaults to the database pool)")
	sendCommand.Flags().StringVar(&sendProfilesFile, "profiles", "", "Subscriber profiles JSON file (files source)")
	sendCommand.Flags().StringVar(&sendSpreadsheetID, "spreadsheet-id", "", "Google Sheets document ID (sheets source)")
	sendCommand.Flags().StringVar(&sendTransport, "transport", "", "Mail transport: smtp, gmail or file (default smtp)")
	sendCommand.Flags().StringVar(&sendOutboxDir, "outbox", "", "Outbox directory for the file transport")
	sendCommand.Flags().IntVarP(&sendTopN, "top-n", "n", 0, "Postings per digest (default 10)")
	sendCommand.Flags().IntVar(&sendWorkers, "workers", 0, "Subscribers processed concurrently (default 5)")
	sendCommand.Flags().StringVar(&sendPolicy, "policy", "", "Ranking policy: lexicographic or weighted")
	sendCommand.Flags().StringVar(&sendDeliveryLog, "delivery-log", "", "SQLite delivery log path")
	sendCommand.Flags().BoolVar(&sendDryRun, "dry-run", false, "Write messages to the outbox instead of sending them")

	rootCmd.AddCommand(sendCommand)
}

func runSend(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(cmd, func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("source") {
			cfg.Source = sendSource
		}
		if flags.Changed("postings-dir") {
			cfg.PostingsDir = sendPostingsDir
		}
		if flags.Changed("profiles") {
			cfg.ProfilesFile = sendProfilesFile
		}
		if flags.Changed("spreadsheet-id") {
			cfg.SpreadsheetID = sendSpreadsheetID
		}
		if flags.Changed("transport") {
			cfg.Transport = sendTransport
		}
		if flags.Changed("outbox") {
			cfg.OutboxDir = sendOutboxDir
		}
		if flags.Changed("top-n") {
			cfg.TopN = sendTopN
		}
		if flags.Changed("workers") {
			cfg.Workers = sendWorkers
		}
		if flags.Changed("policy") {
			cfg.RankingPolicy = sendPolicy
		}
		if flags.Changed("delivery-log") {
			cfg.DeliveryLog = sendDeliveryLog
		}
		if sendDryRun {
			cfg.Transport = config.TransportFile
		}
	})
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	renderer, err := rendering.NewDigestRenderer(cfg.Template)
	if err != nil {
		return err
	}
	sender, err := buildSender(ctx, cfg)
	if err != nil {
		return err
	}
	src, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	runner := &batch.Runner{
		Subscribers: src.subscribers,
		Profiles:    src.profiles,
		Postings:    src.postings,
		Engine:      engine,
		Renderer:    renderer,
		Sender:      sender,
		Log:         src.recorder,
	}
	if cfg.Unsubscribe.Enabled() {
		runner.Unsubscribe = unsubscribe.NewService(cfg.Unsubscribe)
	}

	printer := observability.NewPrinter(os.Stdout)
	opts := batch.Options{
		TopN:    cfg.TopN,
		Workers: cfg.Workers,
		From:    fromAddress(cfg),
		DryRun:  sendDryRun,
		OnProgress: func(event batch.ProgressEvent) {
			switch event.Step {
			case batch.StepLoadPostings, batch.StepListSubscribers:
				fmt.Printf("%s\n", event.Message)
			case batch.StepSent, batch.StepFailed:
				if outcome, ok := event.Content.(batch.Outcome); ok && cfg.Verbose {
					printer.PrintSubscriberOutcome(outcome)
				}
			}
		},
	}

	if sendDryRun {
		fmt.Printf("Dry run: writing messages to %s\n", cfg.OutboxDir)
	}
	summary, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}

	printer.PrintBatchSummary(summary)
	if summary.Total > 0 && summary.Succeeded == 0 {
		return fmt.Errorf("no digests were delivered (%d failures)", summary.Failed)
	}
	return nil
}
