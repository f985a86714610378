package driving

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// Ingestor turns one scrape batch into posting rows.
type Ingestor interface {
	// IngestBatch processes all records of one batch for one source
	// scope. Per-record failures are reported in the returned report,
	// never aborting the batch. The report is non-nil whenever the
	// batch itself was accepted, even if the deactivation step failed.
	//
	// Callers must not run two batches for the same scope concurrently;
	// batches for different scopes may run in parallel.
	IngestBatch(ctx context.Context, batch domain.ScrapeBatch) (*domain.IngestReport, error)
}
