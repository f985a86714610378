package driving

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// Matcher ranks active postings against a query embedding.
type Matcher interface {
	// Match scores every active posting with a stored embedding against
	// queryVector, applies the filter conjunctively and returns at most
	// limit results ordered by score descending, then last_seen_at
	// descending, then identity hash. A query whose dimensionality
	// differs from the stored embeddings fails with
	// domain.ErrDimensionMismatch. Read-only.
	Match(ctx context.Context, queryVector []float32, filter domain.MatchFilter, limit int) ([]domain.MatchResult, error)
}
