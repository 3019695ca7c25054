package main

import (
	"fmt"
	"os"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/db"
	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database tables if they do not exist",
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, func(cfg *config.Config) {
		cfg.Source = config.SourceDB
		cfg.Transport = config.TransportFile
	})
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, "Database schema is up to date")
	return nil
}
