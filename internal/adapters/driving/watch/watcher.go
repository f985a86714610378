// Package watch ingests scrape batch files dropped into a spool
// directory. Scrapers write one JSON batch per file; the watcher picks
// each file up, runs it through the ingestion pipeline and renames it
// to .done or .failed so the spool directory doubles as run history.
//
// Writers should stage a batch file outside the directory and move it
// in with a rename, so the create event always sees complete content.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
)

// defaultBatchesPerSecond paces spool ingestion so a scraper dumping a
// large backlog of batch files does not monopolise the store.
const defaultBatchesPerSecond = 4

// Watcher tails a spool directory and feeds batch files to an Ingestor.
// Files are processed one at a time; the Ingestor contract forbids
// concurrent batches for one scope and a serial loop satisfies that for
// every scope at once.
type Watcher struct {
	dir      string
	ingestor driving.Ingestor
	limiter  *rate.Limiter
	log      *zap.Logger
}

// New creates a watcher over the given spool directory. perSecond caps
// how many batches are ingested per second; zero or negative selects
// the default.
func New(dir string, ingestor driving.Ingestor, perSecond float64, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	if perSecond <= 0 {
		perSecond = defaultBatchesPerSecond
	}
	return &Watcher{
		dir:      dir,
		ingestor: ingestor,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		log:      log,
	}
}

// Run watches the spool directory until the context is cancelled.
// Batch files already present at startup are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.log.Info("watching spool directory", zap.String("dir", w.dir))

	// Catch up on files dropped while nobody was watching.
	if err := w.drainExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := w.handleEvent(event)
			if path == "" {
				continue
			}
			if err := w.processFile(ctx, path); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.Error("batch file failed", zap.String("file", filepath.Base(path)), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// drainExisting processes spool files present before watching started,
// in name order.
func (w *Watcher) drainExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading spool directory: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		if entry.IsDir() || !isSpoolFile(entry.Name()) {
			continue
		}
		pending = append(pending, filepath.Join(w.dir, entry.Name()))
	}
	sort.Strings(pending)

	for _, path := range pending {
		if err := w.processFile(ctx, path); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("batch file failed", zap.String("file", filepath.Base(path)), zap.Error(err))
		}
	}
	return nil
}

// handleEvent filters one fsnotify event down to a processable spool
// file path, or "" when the event is not interesting.
func (w *Watcher) handleEvent(event fsnotify.Event) string {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return ""
	}
	if !isSpoolFile(filepath.Base(event.Name)) {
		return ""
	}

	// A Write following the Create that already got the file processed
	// (and renamed) stats to nothing; directories are never batches.
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return ""
	}
	return event.Name
}

// processFile runs one batch file through ingestion and renames it by
// outcome.
func (w *Watcher) processFile(ctx context.Context, path string) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	batch, err := ReadBatchFile(path)
	if err != nil {
		w.markFile(path, ".failed")
		return err
	}

	report, err := w.ingestor.IngestBatch(ctx, batch)
	if err != nil {
		if report != nil {
			// The batch landed but the deactivation sweep failed; the
			// file still needs operator attention.
			w.logReport(path, report)
		}
		w.markFile(path, ".failed")
		return err
	}

	w.logReport(path, report)
	w.markFile(path, ".done")
	return nil
}

// logReport emits the run summary for one processed batch file.
func (w *Watcher) logReport(path string, report *domain.IngestReport) {
	w.log.Info("batch ingested",
		zap.String("file", filepath.Base(path)),
		zap.String("scope", report.Scope),
		zap.Int("created", report.Created),
		zap.Int("refreshed", report.Refreshed),
		zap.Int64("deactivated", report.Deactivated),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("unresolved", len(report.Unresolved)))
}

// markFile renames the spool file with an outcome suffix.
func (w *Watcher) markFile(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		w.log.Warn("renaming spool file", zap.String("file", filepath.Base(path)), zap.Error(err))
	}
}

// isSpoolFile reports whether the name looks like a pending batch file:
// a visible .json file that has not been marked processed.
func isSpoolFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// ReadBatchFile decodes one scrape batch from a JSON file. The same
// format serves spool files and explicit `jobdex ingest` arguments.
func ReadBatchFile(path string) (domain.ScrapeBatch, error) {
	var batch domain.ScrapeBatch

	data, err := os.ReadFile(path)
	if err != nil {
		return batch, fmt.Errorf("reading batch file: %w", err)
	}
	if err := json.Unmarshal(data, &batch); err != nil {
		return batch, fmt.Errorf("parsing batch file %s: %w", filepath.Base(path), err)
	}
	return batch, nil
}
