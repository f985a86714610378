package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scopesJSON bool

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "Show per-scope ingestion state",
	Long: `Shows the outcome of the most recent ingestion run for every source
scope: when it ran, whether the batch was complete and what it changed.`,
	Args:    cobra.NoArgs,
	PreRunE: ensureServices,
	RunE:    runScopes,
}

func init() {
	scopesCmd.Flags().BoolVar(&scopesJSON, "json", false, "output scope states as JSON")
	rootCmd.AddCommand(scopesCmd)
}

func runScopes(cmd *cobra.Command, _ []string) error {
	if scopeStore == nil {
		return errors.New("scope store not configured")
	}

	states, err := scopeStore.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing scopes: %w", err)
	}

	if scopesJSON {
		data, err := json.MarshalIndent(states, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal scope states: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(states) == 0 {
		cmd.Println("No scopes ingested yet.")
		return nil
	}

	for _, s := range states {
		completeness := "partial"
		if s.LastComplete {
			completeness = "complete"
		}
		cmd.Printf("%s\n", s.Scope)
		cmd.Printf("  last run %s at %s (%s batch)\n",
			s.LastRunID, s.LastIngestedAt.Format(time.RFC3339), completeness)
		cmd.Printf("  created %d, refreshed %d, deactivated %d, skipped %d\n",
			s.LastCreated, s.LastRefreshed, s.LastDeactivated, s.LastSkipped)
		cmd.Println()
	}
	return nil
}
