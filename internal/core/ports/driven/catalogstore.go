package driven

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// CatalogStore persists the canonical vocabulary. Reads feed the
// immutable run Catalog; writes happen only through administrative
// curation, never from ingestion traffic.
type CatalogStore interface {
	// Load builds the catalog from all persisted entities and synonyms.
	Load(ctx context.Context) (*domain.Catalog, error)

	// AddEntity creates a canonical entity and returns its id.
	// A duplicate canonical name per kind is domain.ErrAlreadyExists.
	AddEntity(ctx context.Context, entity domain.CanonicalEntity) (int64, error)

	// AddSynonym registers a raw text variant for an entity. The
	// normalised form is stored. Duplicates per kind are
	// domain.ErrAlreadyExists; an unknown entity is domain.ErrNotFound.
	AddSynonym(ctx context.Context, synonym domain.Synonym) error

	// ListEntities returns canonical entities of one kind.
	ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.CanonicalEntity, error)

	// ListSynonyms returns registered synonyms of one kind.
	ListSynonyms(ctx context.Context, kind domain.EntityKind) ([]domain.Synonym, error)
}
