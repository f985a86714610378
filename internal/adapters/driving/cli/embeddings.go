package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

var (
	embeddingsBacklogLimit int
	embeddingsBacklogJSON  bool
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Exchange embedding vectors with an external provider",
	Long: `Embedding computation happens outside the engine. This command hands
out the backlog of postings that still need a vector and stores the
vectors an external provider computed for them.

A typical round trip:

  jobdex embeddings backlog --json > tasks.json
  your-embedder < tasks.json > vectors.json
  jobdex embeddings apply vectors.json`,
	PersistentPreRunE: ensureServices,
}

var embeddingsBacklogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "List postings that still need a vector",
	Args:  cobra.NoArgs,
	RunE:  runEmbeddingsBacklog,
}

var embeddingsApplyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Store computed vectors",
	Long: `Stores vectors from a JSON file holding an array of updates, each an
identity hash with its vector; pass - to read from stdin. A bad update
is skipped and reported, the rest still land.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbeddingsApply,
}

func init() {
	embeddingsBacklogCmd.Flags().IntVarP(&embeddingsBacklogLimit, "limit", "n", 0,
		"maximum number of tasks (0 for all)")
	embeddingsBacklogCmd.Flags().BoolVar(&embeddingsBacklogJSON, "json", false,
		"output tasks as JSON")

	embeddingsCmd.AddCommand(embeddingsBacklogCmd)
	embeddingsCmd.AddCommand(embeddingsApplyCmd)
	rootCmd.AddCommand(embeddingsCmd)
}

func runEmbeddingsBacklog(cmd *cobra.Command, _ []string) error {
	if embeddingService == nil {
		return errors.New("embedding service not configured")
	}

	tasks, err := embeddingService.Backlog(context.Background(), embeddingsBacklogLimit)
	if err != nil {
		return fmt.Errorf("listing backlog: %w", err)
	}

	if embeddingsBacklogJSON {
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tasks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(tasks) == 0 {
		cmd.Println("Backlog is empty.")
		return nil
	}
	cmd.Printf("Backlog (%d):\n", len(tasks))
	for _, t := range tasks {
		cmd.Printf("  %s %s\n", t.IdentityHash, truncateText(t.Text, 60))
	}
	return nil
}

func runEmbeddingsApply(cmd *cobra.Command, args []string) error {
	if embeddingService == nil {
		return errors.New("embedding service not configured")
	}

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading updates: %w", err)
	}

	var updates []domain.EmbeddingUpdate
	if err := json.Unmarshal(data, &updates); err != nil {
		return fmt.Errorf("parsing updates: %w", err)
	}

	report, err := embeddingService.Apply(context.Background(), updates)
	if err != nil {
		return fmt.Errorf("applying embeddings: %w", err)
	}

	cmd.Printf("Applied %d of %d vectors.\n", report.Applied, len(updates))
	for _, s := range report.Skipped {
		label := s.Title
		if label == "" {
			label = "(no identity hash)"
		}
		cmd.Printf("  skipped %s: %s\n", label, s.Reason)
	}
	return nil
}

func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
