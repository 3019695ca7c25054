package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/rendering"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/jonathan/job-digest/internal/unsubscribe"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render one subscriber's digest to an HTML file",
	Long:  "Renders the digest a subscriber would receive without sending it. The HTML body is written to --out and the plain-text alternative next to it.",
	RunE:  runPreview,
}

var (
	previewEmail        string
	previewProfilesFile string
	previewPostingsDir  string
	previewTemplate     string
	previewOutput       string
)

func init() {
	previewCmd.Flags().StringVarP(&previewEmail, "email", "e", "", "Subscriber email (required)")
	previewCmd.Flags().StringVar(&previewProfilesFile, "profiles", "", "Subscriber profiles JSON file (defaults to the configured source)")
	previewCmd.Flags().StringVar(&previewPostingsDir, "postings-dir", "", "Directory of posting JSON files (defaults to the database pool)")
	previewCmd.Flags().StringVarP(&previewTemplate, "template", "t", "", "Path to digest HTML template (defaults to the built-in one)")
	previewCmd.Flags().StringVarP(&previewOutput, "out", "o", "", "Path to output HTML file (required)")

	if err := previewCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}
	if err := previewCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, func(cfg *config.Config) {
		cfg.Transport = config.TransportFile
		if cmd.Flags().Changed("profiles") {
			cfg.Source = config.SourceFiles
			cfg.ProfilesFile = previewProfilesFile
		}
		if cmd.Flags().Changed("postings-dir") {
			cfg.PostingsDir = previewPostingsDir
		}
		if cmd.Flags().Changed("template") {
			cfg.Template = previewTemplate
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
	src, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	profile, err := src.profiles.Profile(ctx, types.Subscriber{Email: previewEmail})
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	now := time.Now()
	postings, err := src.postings.ActivePostings(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load postings: %w", err)
	}

	results := engine.Recommend(profile, postings, cfg.TopN)
	if len(results) == 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: no postings matched %s; the digest would not be sent\n", previewEmail)
	}

	input := rendering.DigestInput{UserName: profile.Name, Results: results, Now: now}
	if cfg.Unsubscribe.Enabled() {
		link, err := unsubscribe.NewService(cfg.Unsubscribe).Link(profile.UserID, profile.Email)
		if err != nil {
			return err
		}
		input.UnsubscribeURL = link
	}
	digest, err := renderer.Render(input)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(previewOutput), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(previewOutput, []byte(digest.HTML), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	textPath := previewOutput[:len(previewOutput)-len(filepath.Ext(previewOutput))] + ".txt"
	if err := os.WriteFile(textPath, []byte(digest.Text), 0644); err != nil {
		return fmt.Errorf("failed to write text file: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Subject: %s\n", digest.Subject)
	_, _ = fmt.Fprintf(os.Stdout, "Wrote %s (%d postings) and %s\n", previewOutput, len(results), textPath)
	return nil
}
