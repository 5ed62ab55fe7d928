package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheusai/promptstore/internal/storage/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		applied, err := store.Migrate()
		if err != nil {
			return err
		}

		if len(applied) == 0 {
			fmt.Println("database is up to date")
			return nil
		}
		fmt.Printf("applied %d migration(s): %v\n", len(applied), applied)
		return nil
	},
}
