package main

import (
	"fmt"
	"os"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/db"
	"github.com/jonathan/job-digest/internal/unsubscribe"
	"github.com/spf13/cobra"
)

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Verify an unsubscribe token and withdraw the subscriber's consent",
	RunE:  runUnsubscribe,
}

var unsubscribeToken string

func init() {
	unsubscribeCmd.Flags().StringVar(&unsubscribeToken, "token", "", "Token from an unsubscribe link (required)")

	if err := unsubscribeCmd.MarkFlagRequired("token"); err != nil {
		panic(fmt.Sprintf("failed to mark token flag as required: %v", err))
	}

	rootCmd.AddCommand(unsubscribeCmd)
}

func runUnsubscribe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, func(cfg *config.Config) {
		cfg.Source = config.SourceDB
		cfg.Transport = config.TransportFile
	})
	if err != nil {
		return err
	}
	if cfg.Unsubscribe.Secret == "" {
		return fmt.Errorf("UNSUBSCRIBE_SECRET environment variable or unsubscribe.secret config is required")
	}

	claims, err := unsubscribe.NewService(cfg.Unsubscribe).Verify(unsubscribeToken)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SetConsent(ctx, claims.UserID, false); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Unsubscribed %s\n", claims.Email)
	return nil
}
