package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

func TestScopeStore_RecordAndGet(t *testing.T) {
	store := NewScopeStore()
	ctx := context.Background()

	state := domain.ScopeState{
		Scope:          "acme-careers",
		LastRunID:      "run-1",
		LastIngestedAt: time.Now().UTC(),
		LastComplete:   true,
		LastCreated:    3,
	}
	require.NoError(t, store.Record(ctx, state))

	saved, err := store.Get(ctx, "acme-careers")
	require.NoError(t, err)
	assert.Equal(t, "run-1", saved.LastRunID)
	assert.Equal(t, 3, saved.LastCreated)
	assert.True(t, saved.LastComplete)
}

func TestScopeStore_Record_Overwrites(t *testing.T) {
	store := NewScopeStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, domain.ScopeState{Scope: "acme-careers", LastRunID: "run-1"}))
	require.NoError(t, store.Record(ctx, domain.ScopeState{Scope: "acme-careers", LastRunID: "run-2", LastRefreshed: 5}))

	saved, err := store.Get(ctx, "acme-careers")
	require.NoError(t, err)
	assert.Equal(t, "run-2", saved.LastRunID)
	assert.Equal(t, 5, saved.LastRefreshed)
}

func TestScopeStore_Get_NotFound(t *testing.T) {
	store := NewScopeStore()

	state, err := store.Get(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, state)
}

func TestScopeStore_List(t *testing.T) {
	store := NewScopeStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, domain.ScopeState{Scope: "globex-careers"}))
	require.NoError(t, store.Record(ctx, domain.ScopeState{Scope: "acme-careers"}))

	states, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, states, 2)
	// Sorted by scope for stable output.
	assert.Equal(t, "acme-careers", states[0].Scope)
	assert.Equal(t, "globex-careers", states[1].Scope)
}
