package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// Ensure UnresolvedStore implements the interface.
var _ driven.UnresolvedStore = (*UnresolvedStore)(nil)

// UnresolvedStore is an in-memory implementation of driven.UnresolvedStore.
type UnresolvedStore struct {
	mu   sync.RWMutex
	refs map[string]domain.UnresolvedReference
}

// NewUnresolvedStore creates a new in-memory unresolved reference store.
func NewUnresolvedStore() *UnresolvedStore {
	return &UnresolvedStore{
		refs: make(map[string]domain.UnresolvedReference),
	}
}

// Record upserts the references, accumulating occurrence counts.
func (s *UnresolvedStore) Record(_ context.Context, refs []domain.UnresolvedReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range refs {
		key := refKey(ref.Kind, ref.Normalised)
		existing, ok := s.refs[key]
		if !ok {
			s.refs[key] = ref
			continue
		}
		existing.Occurrences += ref.Occurrences
		existing.LastSeenAt = ref.LastSeenAt
		existing.RawText = ref.RawText
		s.refs[key] = existing
	}
	return nil
}

// List returns accumulated references ordered by occurrences.
func (s *UnresolvedStore) List(_ context.Context, kind domain.EntityKind, limit int) ([]domain.UnresolvedReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.UnresolvedReference
	for key := range s.refs {
		ref := s.refs[key]
		if kind != "" && ref.Kind != kind {
			continue
		}
		result = append(result, ref)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Occurrences != result[j].Occurrences {
			return result[i].Occurrences > result[j].Occurrences
		}
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].Normalised < result[j].Normalised
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Clear removes one reference.
func (s *UnresolvedStore) Clear(_ context.Context, kind domain.EntityKind, normalised string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, refKey(kind, normalised))
	return nil
}

func refKey(kind domain.EntityKind, normalised string) string {
	return string(kind) + "\x00" + normalised
}
