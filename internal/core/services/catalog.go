package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogAdmin = (*CatalogService)(nil)

// CatalogService is the administrative surface for the canonical
// vocabulary. All writes go through here, out-of-band of ingestion;
// running services observe changes when their catalog is next loaded.
type CatalogService struct {
	store      driven.CatalogStore
	unresolved driven.UnresolvedStore
	log        *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store driven.CatalogStore, unresolved driven.UnresolvedStore, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{
		store:      store,
		unresolved: unresolved,
		log:        log,
	}
}

// Load builds the immutable catalog for a run.
func (s *CatalogService) Load(ctx context.Context) (*domain.Catalog, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: catalog store not configured", domain.ErrInvalidInput)
	}
	return s.store.Load(ctx)
}

// AddEntity creates a canonical entity.
func (s *CatalogService) AddEntity(ctx context.Context, entity domain.CanonicalEntity) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("%w: catalog store not configured", domain.ErrInvalidInput)
	}
	if !entity.Kind.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, entity.Kind)
	}
	if strings.TrimSpace(entity.CanonicalName) == "" {
		return 0, fmt.Errorf("%w: canonical name is required", domain.ErrInvalidInput)
	}
	if entity.Kind == domain.KindLocation && domain.IsWorkplaceModality(entity.CanonicalName) {
		return 0, fmt.Errorf("%w: %q", domain.ErrModalityAsLocation, entity.CanonicalName)
	}

	id, err := s.store.AddEntity(ctx, entity)
	if err != nil {
		return 0, err
	}
	s.log.Info("added canonical entity",
		zap.String("kind", string(entity.Kind)),
		zap.String("name", entity.CanonicalName),
		zap.Int64("id", id),
	)

	// The canonical name doubles as a lookup key, so a queued
	// unresolved reference for it is now answered.
	s.clearUnresolved(ctx, entity.Kind, entity.CanonicalName)
	return id, nil
}

// AddSynonym registers a raw text variant for an existing entity.
func (s *CatalogService) AddSynonym(ctx context.Context, synonym domain.Synonym) error {
	if s.store == nil {
		return fmt.Errorf("%w: catalog store not configured", domain.ErrInvalidInput)
	}
	if !synonym.Kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, synonym.Kind)
	}
	norm := domain.NormaliseReference(synonym.RawText)
	if norm == "" {
		return fmt.Errorf("%w: synonym text is required", domain.ErrInvalidInput)
	}
	if synonym.Kind == domain.KindLocation && domain.IsWorkplaceModality(norm) {
		return fmt.Errorf("%w: %q", domain.ErrModalityAsLocation, synonym.RawText)
	}

	if err := s.store.AddSynonym(ctx, synonym); err != nil {
		return err
	}
	s.log.Info("added synonym",
		zap.String("kind", string(synonym.Kind)),
		zap.String("raw", synonym.RawText),
		zap.Int64("entity_id", synonym.EntityID),
	)

	s.clearUnresolved(ctx, synonym.Kind, synonym.RawText)
	return nil
}

// Import bulk-registers curated reference data. Entries whose canonical
// name already exists contribute their synonyms to the existing entity.
func (s *CatalogService) Import(ctx context.Context, entries []domain.CatalogImportEntry) (int, int, error) {
	if s.store == nil {
		return 0, 0, fmt.Errorf("%w: catalog store not configured", domain.ErrInvalidInput)
	}

	var entities, synonyms int
	for _, entry := range entries {
		entity := domain.CanonicalEntity{
			Kind:          entry.Kind,
			CanonicalName: entry.CanonicalName,
			Country:       entry.Country,
			Region:        entry.Region,
			Category:      entry.Category,
		}
		id, err := s.AddEntity(ctx, entity)
		switch {
		case err == nil:
			entities++
		case isAlreadyExists(err):
			id, err = s.entityIDByName(ctx, entry.Kind, entry.CanonicalName)
			if err != nil {
				return entities, synonyms, err
			}
		default:
			return entities, synonyms, fmt.Errorf("importing %q: %w", entry.CanonicalName, err)
		}

		for _, raw := range entry.Synonyms {
			err := s.AddSynonym(ctx, domain.Synonym{Kind: entry.Kind, RawText: raw, EntityID: id})
			switch {
			case err == nil:
				synonyms++
			case isAlreadyExists(err):
				// Already curated, nothing to do.
			default:
				return entities, synonyms, fmt.Errorf("importing synonym %q: %w", raw, err)
			}
		}
	}

	s.log.Info("catalog import complete",
		zap.Int("entities", entities),
		zap.Int("synonyms", synonyms),
	)
	return entities, synonyms, nil
}

// ListEntities returns canonical entities of one kind.
func (s *CatalogService) ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.CanonicalEntity, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: catalog store not configured", domain.ErrInvalidInput)
	}
	return s.store.ListEntities(ctx, kind)
}

// ListSynonyms returns registered synonyms of one kind.
func (s *CatalogService) ListSynonyms(ctx context.Context, kind domain.EntityKind) ([]domain.Synonym, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: catalog store not configured", domain.ErrInvalidInput)
	}
	return s.store.ListSynonyms(ctx, kind)
}

// Unresolved returns the accumulated unresolved reference queue.
func (s *CatalogService) Unresolved(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.UnresolvedReference, error) {
	if s.unresolved == nil {
		return nil, fmt.Errorf("%w: unresolved store not configured", domain.ErrInvalidInput)
	}
	return s.unresolved.List(ctx, kind, limit)
}

// clearUnresolved drops the queue entry a new lookup key just answered.
// Best effort: a failure only costs a stale queue row.
func (s *CatalogService) clearUnresolved(ctx context.Context, kind domain.EntityKind, rawText string) {
	if s.unresolved == nil {
		return
	}
	norm := domain.NormaliseReference(rawText)
	if norm == "" {
		return
	}
	if err := s.unresolved.Clear(ctx, kind, norm); err != nil {
		s.log.Warn("clearing unresolved reference failed",
			zap.String("kind", string(kind)),
			zap.String("normalised", norm),
			zap.Error(err),
		)
	}
}

// entityIDByName finds an entity id by canonical name within a kind.
func (s *CatalogService) entityIDByName(ctx context.Context, kind domain.EntityKind, name string) (int64, error) {
	entities, err := s.store.ListEntities(ctx, kind)
	if err != nil {
		return 0, err
	}
	want := domain.NormaliseReference(name)
	for _, e := range entities {
		if domain.NormaliseReference(e.CanonicalName) == want {
			return e.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", domain.ErrNotFound, kind, name)
}

// isAlreadyExists reports whether err is the duplicate-entry sentinel.
func isAlreadyExists(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists)
}
