// Command import_postings loads a directory of crawler posting JSON files into
// the job_postings table. Expired postings are skipped; postings without an id
// get a generated one.
//
// Usage:
//
//	go run cmd/tools/import_postings/main.go <postings-dir>
//
// Requires DATABASE_URL environment variable to be set.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonathan/job-digest/internal/db"
	"github.com/jonathan/job-digest/internal/filesource"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: import_postings <postings-dir>")
		os.Exit(2)
	}
	dir := os.Args[1]

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "ERROR: DATABASE_URL environment variable not set")
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

	fmt.Println("=== Posting Import ===")
	fmt.Println()

	postings, err := filesource.LoadPostings(dir, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load postings: %v\n", err)
		os.Exit(1)
	}
	if len(postings) == 0 {
		fmt.Printf("No open postings found in %s.\n", dir)
		return
	}

	imported, failed := 0, 0
	for i := range postings {
		p := &postings[i]
		if err := database.UpsertPosting(ctx, p); err != nil {
			fmt.Printf("  ✗ %s (%s): %v\n", p.CompanyName, p.ID, err)
			failed++
			continue
		}
		imported++
	}

	fmt.Printf("Imported: %d\n", imported)
	if failed > 0 {
		fmt.Printf("Failed:   %d\n", failed)
	}
	fmt.Println()
	fmt.Println("=== Import Complete ===")
	if failed > 0 {
		os.Exit(1)
	}
}
