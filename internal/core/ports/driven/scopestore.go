package driven

import (
	"context"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// ScopeStore persists per-scope ingestion run state.
type ScopeStore interface {
	// Record stores or updates the state for a scope.
	Record(ctx context.Context, state domain.ScopeState) error

	// Get retrieves the state for a scope.
	Get(ctx context.Context, scope string) (*domain.ScopeState, error)

	// List returns state for all known scopes.
	List(ctx context.Context) ([]domain.ScopeState, error)
}
