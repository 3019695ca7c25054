package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/observability"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank open postings for one subscriber",
	Long:  "Filters and ranks the open posting pool for one subscriber's preference profile and prints the ranked list, or writes it as JSON with rank keys.",
	RunE:  runRecommend,
}

var (
	recommendEmail        string
	recommendProfilesFile string
	recommendPostingsDir  string
	recommendTopN         int
	recommendPolicy       string
	recommendOutput       string
)

func init() {
	recommendCmd.Flags().StringVarP(&recommendEmail, "email", "e", "", "Subscriber email (required)")
	recommendCmd.Flags().StringVar(&recommendProfilesFile, "profiles", "", "Subscriber profiles JSON file (defaults to the configured source)")
	recommendCmd.Flags().StringVar(&recommendPostingsDir, "postings-dir", "", "Directory of posting JSON files (defaults to the database pool)")
	recommendCmd.Flags().IntVarP(&recommendTopN, "top-n", "n", 0, "Number of postings to recommend (default 10)")
	recommendCmd.Flags().StringVar(&recommendPolicy, "policy", "", "Ranking policy: lexicographic or weighted")
	recommendCmd.Flags().StringVarP(&recommendOutput, "out", "o", "", "Write Recommendations JSON to this path instead of printing")

	if err := recommendCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, func(cfg *config.Config) {
		// Nothing is sent from this command.
		cfg.Transport = config.TransportFile
		if cmd.Flags().Changed("profiles") {
			cfg.Source = config.SourceFiles
			cfg.ProfilesFile = recommendProfilesFile
		}
		if cmd.Flags().Changed("postings-dir") {
			cfg.PostingsDir = recommendPostingsDir
		}
		if cmd.Flags().Changed("top-n") {
			cfg.TopN = recommendTopN
		}
		if cmd.Flags().Changed("policy") {
			cfg.RankingPolicy = recommendPolicy
		}
	})
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	src, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	profile, err := src.profiles.Profile(ctx, types.Subscriber{Email: recommendEmail})
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	postings, err := src.postings.ActivePostings(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to load postings: %w", err)
	}

	results, trace := engine.Explain(profile, postings, cfg.TopN)

	if recommendOutput != "" {
		out := types.Recommendations{
			Email:   profile.Email,
			Policy:  engine.PolicyName(),
			TopN:    cfg.TopN,
			Results: results,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal recommendations: %w", err)
		}
		if err := os.WriteFile(recommendOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Wrote %d recommendations to %s\n", len(results), recommendOutput)
		return nil
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintProfile(profile)
		printer.PrintFilterTrace(trace)
	}
	printer.PrintRecommendations(results)
	return nil
}
