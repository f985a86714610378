package driving

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// EmbeddingApplier connects external embedding providers to the store:
// it hands out the backlog of unembedded postings and writes the vectors
// that come back.
type EmbeddingApplier interface {
	// Backlog returns up to limit pending embedding tasks, oldest
	// posting first.
	Backlog(ctx context.Context, limit int) ([]domain.EmbeddingTask, error)

	// Apply stores the vectors. Per-update failures are reported in the
	// returned report and do not abort the run.
	Apply(ctx context.Context, updates []domain.EmbeddingUpdate) (*domain.EmbeddingReport, error)
}
