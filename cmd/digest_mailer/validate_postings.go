package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jonathan/job-digest/internal/filesource"
	"github.com/jonathan/job-digest/internal/schemas"
	"github.com/spf13/cobra"
)

var validatePostingsCmd = &cobra.Command{
	Use:   "validate-postings",
	Short: "Validate a directory of posting JSON files against the posting schema",
	RunE:  runValidatePostings,
}

var (
	validatePostingsDir    string
	validatePostingsSchema string
)

func init() {
	validatePostingsCmd.Flags().StringVarP(&validatePostingsDir, "dir", "d", "", "Directory of posting JSON files (required)")
	validatePostingsCmd.Flags().StringVarP(&validatePostingsSchema, "schema", "s", "", "Path to the posting JSON schema (defaults to "+schemas.JobPostingSchema+")")

	if err := validatePostingsCmd.MarkFlagRequired("dir"); err != nil {
		panic(fmt.Sprintf("failed to mark dir flag as required: %v", err))
	}

	rootCmd.AddCommand(validatePostingsCmd)
}

func runValidatePostings(_ *cobra.Command, _ []string) error {
	schemaPath := validatePostingsSchema
	if schemaPath == "" {
		schemaPath = schemas.ResolveSchemaPath(schemas.JobPostingSchema)
	}

	failures, checked, err := filesource.ValidatePostingsDir(validatePostingsDir, schemaPath)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "✅ %d posting files are valid\n", checked)
		return nil
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, _ = fmt.Fprintf(os.Stderr, "❌ %s\n", name)
		var validationErr *schemas.ValidationError
		if errors.As(failures[name], &validationErr) {
			for _, fe := range validationErr.Errors {
				_, _ = fmt.Fprintf(os.Stderr, "   - %s: %s\n", fe.Field, fe.Message)
			}
			continue
		}
		_, _ = fmt.Fprintf(os.Stderr, "   - %v\n", failures[name])
	}
	return fmt.Errorf("%d of %d posting files failed validation", len(failures), checked)
}
