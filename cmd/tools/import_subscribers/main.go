// Command import_subscribers loads a subscriber profiles JSON file into the
// users and user_target_companies tables, keyed by email.
//
// Usage:
//
//	go run cmd/tools/import_subscribers/main.go <profiles.json>
//
// Requires DATABASE_URL environment variable to be set.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/job-digest/internal/db"
	"github.com/jonathan/job-digest/internal/filesource"
	"github.com/jonathan/job-digest/internal/types"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: import_subscribers <profiles.json>")
		os.Exit(2)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "ERROR: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	pf, err := filesource.LoadProfiles(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, dsn, db.PoolOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Subscriber Import ===")
	fmt.Println()

	failed := 0
	for _, entry := range pf.Entries() {
		userID, err := database.UpsertSubscriber(ctx, toSubscriber(entry))
		if err != nil {
			fmt.Printf("  ✗ %s: %v\n", entry.Profile.Email, err)
			failed++
			continue
		}
		fmt.Printf("  ✓ %s (%s)\n", entry.Profile.Email, userID)
	}

	fmt.Println()
	fmt.Println("=== Import Complete ===")
	if failed > 0 {
		os.Exit(1)
	}
}

func toSubscriber(entry filesource.Entry) db.Subscriber {
	p := entry.Profile
	var career string
	if p.TargetExperience != nil {
		career = *p.TargetExperience
	}
	roles := p.TargetJobRoles
	if len(roles) > types.MaxJobRoles {
		roles = roles[:types.MaxJobRoles]
	}
	return db.Subscriber{
		Email:              p.Email,
		Name:               p.Name,
		Consent:            entry.Consent,
		Education:          p.TargetEducationLevels,
		Career:             career,
		EmploymentTypes:    p.TargetEmploymentTypes,
		JobRoles:           roles,
		PreferredCompanies: p.PreferredCompanies,
	}
}
