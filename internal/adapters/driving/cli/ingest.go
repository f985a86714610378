package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driving/watch"
	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
)

var (
	ingestWatch      bool
	ingestIncomplete bool
	ingestJSON       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest scrape batch files",
	Long: `Ingests one or more scrape batch files. Each file holds one JSON batch
for one source scope: records are validated, resolved against the
canonical catalog, deduplicated by identity and upserted. When the
batch declares itself complete, known postings of the scope it no
longer lists are deactivated. --incomplete overrides that declaration
and suppresses deactivation, for partial or exploratory scrapes.

With --watch the single argument is a spool directory: batches dropped
into it are ingested as they appear, then renamed to .done or .failed.`,
	Args:    cobra.ArbitraryArgs,
	PreRunE: ensureServices,
	RunE:    runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "watch a spool directory instead of reading files")
	ingestCmd.Flags().BoolVar(&ingestIncomplete, "incomplete", false, "treat every batch as incomplete, skipping deactivation")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// ingestOutcome pairs a batch file with its report for output.
type ingestOutcome struct {
	File   string
	Report *domain.IngestReport
}

// incompleteIngestor clears the complete flag on every batch before
// delegating, so deactivation never runs.
type incompleteIngestor struct {
	driving.Ingestor
}

func (i incompleteIngestor) IngestBatch(ctx context.Context, batch domain.ScrapeBatch) (*domain.IngestReport, error) {
	batch.Complete = false
	return i.Ingestor.IngestBatch(ctx, batch)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if ingestWatch {
		if len(args) != 1 {
			return errors.New("--watch takes exactly one directory")
		}
		var ingestor driving.Ingestor = ingestService
		if ingestIncomplete {
			ingestor = incompleteIngestor{Ingestor: ingestService}
		}
		var perSecond float64
		if config != nil {
			perSecond = config.GetFloat64("ingest.watch_rate")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch.New(args[0], ingestor, perSecond, log).Run(ctx)
	}

	if len(args) == 0 {
		return errors.New("no batch files given")
	}

	outcomes, err := ingestFiles(context.Background(), args)
	if err != nil {
		return err
	}

	if ingestJSON {
		return outputIngestJSON(cmd, outcomes)
	}
	return outputIngestTable(cmd, outcomes)
}

// ingestFiles reads every batch up front, then ingests scope by scope.
// Batches for different scopes run in parallel; batches for the same
// scope keep their argument order, because the ingestor must never see
// two concurrent batches for one scope.
func ingestFiles(ctx context.Context, paths []string) ([]ingestOutcome, error) {
	type batchFile struct {
		path  string
		batch domain.ScrapeBatch
	}

	byScope := make(map[string][]batchFile)
	for _, path := range paths {
		batch, err := watch.ReadBatchFile(path)
		if err != nil {
			return nil, err
		}
		if ingestIncomplete {
			batch.Complete = false
		}
		byScope[batch.Scope] = append(byScope[batch.Scope], batchFile{path: path, batch: batch})
	}

	var (
		mu       sync.Mutex
		outcomes []ingestOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, files := range byScope {
		g.Go(func() error {
			for _, f := range files {
				report, err := ingestService.IngestBatch(gctx, f.batch)
				if err != nil {
					return fmt.Errorf("ingesting %s: %w", f.path, err)
				}
				mu.Lock()
				outcomes = append(outcomes, ingestOutcome{File: f.path, Report: report})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].File < outcomes[j].File })
	return outcomes, nil
}

func outputIngestJSON(cmd *cobra.Command, outcomes []ingestOutcome) error {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputIngestTable(cmd *cobra.Command, outcomes []ingestOutcome) error {
	for _, o := range outcomes {
		r := o.Report
		cmd.Printf("%s\n", o.File)
		cmd.Printf("  scope %s: received %d, created %d, refreshed %d, deactivated %d\n",
			r.Scope, r.Received, r.Created, r.Refreshed, r.Deactivated)
		for _, s := range r.Skipped {
			label := s.URL
			if label == "" {
				label = s.Title
			}
			cmd.Printf("  skipped %s: %s\n", label, s.Reason)
		}
		for _, u := range r.Unresolved {
			cmd.Printf("  unresolved %s %q (seen %d)\n", u.Kind, u.RawText, u.Occurrences)
		}
		cmd.Println()
	}
	return nil
}
