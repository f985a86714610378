package driving

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// CatalogAdmin is the out-of-band curation surface for the canonical
// vocabulary. Runtime resolution never goes through this interface.
type CatalogAdmin interface {
	// Load builds the immutable catalog for a run.
	Load(ctx context.Context) (*domain.Catalog, error)

	// AddEntity creates a canonical entity and returns its id.
	AddEntity(ctx context.Context, entity domain.CanonicalEntity) (int64, error)

	// AddSynonym registers a raw text variant for an existing entity
	// and clears any matching unresolved reference.
	AddSynonym(ctx context.Context, synonym domain.Synonym) error

	// Import bulk-registers entities and their synonyms from curated
	// reference data. Returns how many entities and synonyms were added.
	Import(ctx context.Context, entries []domain.CatalogImportEntry) (entities, synonyms int, err error)

	// ListEntities returns canonical entities of one kind.
	ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.CanonicalEntity, error)

	// ListSynonyms returns registered synonyms of one kind.
	ListSynonyms(ctx context.Context, kind domain.EntityKind) ([]domain.Synonym, error)

	// Unresolved returns the accumulated unresolved reference queue.
	Unresolved(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.UnresolvedReference, error)
}
