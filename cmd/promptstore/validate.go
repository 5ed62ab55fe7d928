package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheusai/promptstore/internal/storage/sqlite"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the database schema and query latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.Validate(sqlite.ValidateOptions{
			LatencyCeilingMs: cfg.Validator.LatencyCeilingMs,
			Iterations:       cfg.Validator.Iterations,
		})
		if err != nil {
			return err
		}

		for _, check := range report.Checks {
			status := "PASS"
			if !check.Passed {
				status = "FAIL"
			}
			if check.Detail != "" {
				fmt.Printf("%-4s %s (%s)\n", status, check.Name, check.Detail)
			} else {
				fmt.Printf("%-4s %s\n", status, check.Name)
			}
		}

		if !report.OK() {
			return fmt.Errorf("validation failed (schema ok: %v, performance ok: %v)",
				report.SchemaOK, report.PerformanceOK)
		}
		fmt.Println("validation passed")
		return nil
	},
}
