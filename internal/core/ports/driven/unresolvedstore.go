package driven

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// UnresolvedStore accumulates catalog lookups that missed. The queue is
// curation input: it never feeds back into resolution on its own.
type UnresolvedStore interface {
	// Record upserts the references, incrementing occurrence counts for
	// normalised texts already present.
	Record(ctx context.Context, refs []domain.UnresolvedReference) error

	// List returns accumulated references ordered by occurrences,
	// optionally restricted to one kind. Kind "" means all kinds.
	List(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.UnresolvedReference, error)

	// Clear removes one reference, typically after a curator registered
	// a synonym for it.
	Clear(ctx context.Context, kind domain.EntityKind, normalised string) error
}
