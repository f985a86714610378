package driven

import (
	"context"
	"time"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// PostingStore is the single source of truth for posting records.
// Backed by SQLite. Identity uniqueness is enforced by the store's own
// constraints, never by application-level check-then-insert.
type PostingStore interface {
	// Upsert inserts the posting or refreshes the existing row that
	// shares its identity hash or URL. The write is a single atomic
	// statement: concurrent upserts of one identity yield one row.
	// Insertion sets first_seen_at = last_seen_at = now; a refresh
	// updates mutable fields and last_seen_at, reactivates the row and
	// leaves first_seen_at untouched.
	Upsert(ctx context.Context, posting domain.Posting, now time.Time) (domain.UpsertResult, error)

	// DeactivateMissing marks active postings of the scope inactive
	// when their identity is absent from seenHashes. Returns the number
	// of postings deactivated.
	DeactivateMissing(ctx context.Context, sourceScope string, seenHashes []string, asOf time.Time) (int64, error)

	// QueryActive returns active postings matching the filter.
	// Order is unspecified; ranking is the matching engine's job.
	QueryActive(ctx context.Context, filter domain.PostingFilter) ([]domain.Posting, error)

	// ListByScope returns postings observed under a scope, optionally
	// including deactivated rows.
	ListByScope(ctx context.Context, sourceScope string, includeInactive bool) ([]domain.Posting, error)

	// GetByIdentity retrieves a posting by identity hash.
	GetByIdentity(ctx context.Context, identityHash string) (*domain.Posting, error)

	// GetByURL retrieves a posting by URL.
	GetByURL(ctx context.Context, url string) (*domain.Posting, error)

	// SetEmbedding stores the vector for one posting. This is the only
	// posting write that happens outside ingestion.
	SetEmbedding(ctx context.Context, identityHash string, vector []float32) error

	// ListMissingEmbeddings returns active postings without a stored
	// vector, oldest first, capped at limit.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Posting, error)
}
