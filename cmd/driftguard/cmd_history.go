package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infrasync/driftguard/history"
)

var historyResourceID string

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded drift checks for a resource",
	Long: `List drift history records from the local history database.

Only the local store is queryable from the CLI; when DriftGuard runs
against DynamoDB, query the table directly.`,
	Example: `  driftguard history --resource my-bucket`,
	RunE:    runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyResourceID, "resource", "r", "", "Resource ID to list history for")
	_ = historyCmd.MarkFlagRequired("resource")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.LocalPath == "" {
		return fmt.Errorf("history command requires a local history path in config")
	}

	store, err := history.OpenLocal(cfg.History.LocalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListByResource(cmd.Context(), historyResourceID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode history record: %w", err)
		}
	}
	return nil
}
