package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// Ensure ScopeStore implements the interface.
var _ driven.ScopeStore = (*ScopeStore)(nil)

// ScopeStore is an in-memory implementation of driven.ScopeStore.
type ScopeStore struct {
	mu     sync.RWMutex
	states map[string]domain.ScopeState
}

// NewScopeStore creates a new in-memory scope store.
func NewScopeStore() *ScopeStore {
	return &ScopeStore{
		states: make(map[string]domain.ScopeState),
	}
}

// Record stores or updates the state for a scope.
func (s *ScopeStore) Record(_ context.Context, state domain.ScopeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Scope] = state
	return nil
}

// Get retrieves the state for a scope.
func (s *ScopeStore) Get(_ context.Context, scope string) (*domain.ScopeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[scope]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// List returns state for all known scopes.
func (s *ScopeStore) List(_ context.Context) ([]domain.ScopeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.ScopeState
	for scope := range s.states {
		result = append(result, s.states[scope])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Scope < result[j].Scope })
	return result, nil
}
