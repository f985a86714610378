package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
type CatalogStore struct {
	mu       sync.RWMutex
	nextID   int64
	entities map[domain.EntityKind][]domain.CanonicalEntity
	synonyms map[domain.EntityKind][]domain.Synonym
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		entities: make(map[domain.EntityKind][]domain.CanonicalEntity),
		synonyms: make(map[domain.EntityKind][]domain.Synonym),
	}
}

// Load builds the catalog from all persisted entities and synonyms.
func (s *CatalogStore) Load(_ context.Context) (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entities []domain.CanonicalEntity
	var synonyms []domain.Synonym
	for _, kind := range domain.Kinds() {
		entities = append(entities, s.entities[kind]...)
		synonyms = append(synonyms, s.synonyms[kind]...)
	}
	return domain.NewCatalog(entities, synonyms)
}

// AddEntity creates a canonical entity and returns its id.
func (s *CatalogStore) AddEntity(_ context.Context, entity domain.CanonicalEntity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := domain.NormaliseReference(entity.CanonicalName)
	for _, e := range s.entities[entity.Kind] {
		if domain.NormaliseReference(e.CanonicalName) == norm {
			return 0, fmt.Errorf("%w: %s %q", domain.ErrAlreadyExists, entity.Kind, entity.CanonicalName)
		}
	}

	s.nextID++
	entity.ID = s.nextID
	s.entities[entity.Kind] = append(s.entities[entity.Kind], entity)
	return entity.ID, nil
}

// AddSynonym registers a raw text variant for an entity.
func (s *CatalogStore) AddSynonym(_ context.Context, synonym domain.Synonym) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.entityExists(synonym.Kind, synonym.EntityID) {
		return fmt.Errorf("%w: %s %d", domain.ErrNotFound, synonym.Kind, synonym.EntityID)
	}
	norm := domain.NormaliseReference(synonym.RawText)
	for _, existing := range s.synonyms[synonym.Kind] {
		if domain.NormaliseReference(existing.RawText) == norm {
			return fmt.Errorf("%w: %s synonym %q", domain.ErrAlreadyExists, synonym.Kind, synonym.RawText)
		}
	}

	s.synonyms[synonym.Kind] = append(s.synonyms[synonym.Kind], synonym)
	return nil
}

// ListEntities returns canonical entities of one kind.
func (s *CatalogStore) ListEntities(_ context.Context, kind domain.EntityKind) ([]domain.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]domain.CanonicalEntity(nil), s.entities[kind]...)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListSynonyms returns registered synonyms of one kind.
func (s *CatalogStore) ListSynonyms(_ context.Context, kind domain.EntityKind) ([]domain.Synonym, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]domain.Synonym(nil), s.synonyms[kind]...)
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].RawText < result[j].RawText
	})
	return result, nil
}

func (s *CatalogStore) entityExists(kind domain.EntityKind, id int64) bool {
	for _, e := range s.entities[kind] {
		if e.ID == id {
			return true
		}
	}
	return false
}
