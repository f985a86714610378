package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// scopeStore implements driven.ScopeStore.
type scopeStore struct {
	store *Store
}

var _ driven.ScopeStore = (*scopeStore)(nil)

// Record stores or updates the run state for a scope.
func (s *scopeStore) Record(ctx context.Context, state domain.ScopeState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scrape_scopes (
			scope, last_run_id, last_ingested_at, last_complete,
			last_created, last_refreshed, last_deactivated, last_skipped
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET
			last_run_id = excluded.last_run_id,
			last_ingested_at = excluded.last_ingested_at,
			last_complete = excluded.last_complete,
			last_created = excluded.last_created,
			last_refreshed = excluded.last_refreshed,
			last_deactivated = excluded.last_deactivated,
			last_skipped = excluded.last_skipped
	`, state.Scope, state.LastRunID, state.LastIngestedAt, state.LastComplete,
		state.LastCreated, state.LastRefreshed, state.LastDeactivated, state.LastSkipped)
	if err != nil {
		return fmt.Errorf("saving scope state: %w", err)
	}
	return nil
}

// Get retrieves the state for a scope.
func (s *scopeStore) Get(ctx context.Context, scope string) (*domain.ScopeState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT scope, last_run_id, last_ingested_at, last_complete,
			last_created, last_refreshed, last_deactivated, last_skipped
		FROM scrape_scopes WHERE scope = ?
	`, scope)

	var state domain.ScopeState
	err := row.Scan(&state.Scope, &state.LastRunID, &state.LastIngestedAt,
		&state.LastComplete, &state.LastCreated, &state.LastRefreshed,
		&state.LastDeactivated, &state.LastSkipped)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scope state: %w", err)
	}
	return &state, nil
}

// List returns state for all known scopes.
func (s *scopeStore) List(ctx context.Context) ([]domain.ScopeState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT scope, last_run_id, last_ingested_at, last_complete,
			last_created, last_refreshed, last_deactivated, last_skipped
		FROM scrape_scopes ORDER BY scope
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scope states: %w", err)
	}
	defer rows.Close()

	var states []domain.ScopeState //nolint:prealloc // size unknown from query
	for rows.Next() {
		var state domain.ScopeState
		if err := rows.Scan(&state.Scope, &state.LastRunID, &state.LastIngestedAt,
			&state.LastComplete, &state.LastCreated, &state.LastRefreshed,
			&state.LastDeactivated, &state.LastSkipped); err != nil {
			return nil, fmt.Errorf("scanning scope state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scope states: %w", err)
	}
	return states, nil
}

// unresolvedStore implements driven.UnresolvedStore.
type unresolvedStore struct {
	store *Store
}

var _ driven.UnresolvedStore = (*unresolvedStore)(nil)

// Record upserts the references in one transaction, accumulating
// occurrence counts for normalised texts already queued.
func (s *unresolvedStore) Record(ctx context.Context, refs []domain.UnresolvedReference) error {
	if len(refs) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO unresolved_references (
			kind, raw_text, normalised, occurrences, first_seen_at, last_seen_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, normalised) DO UPDATE SET
			raw_text = excluded.raw_text,
			occurrences = occurrences + excluded.occurrences,
			last_seen_at = excluded.last_seen_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ref := range refs {
		if _, err := stmt.ExecContext(ctx, ref.Kind, ref.RawText, ref.Normalised,
			ref.Occurrences, ref.FirstSeenAt, ref.LastSeenAt); err != nil {
			return fmt.Errorf("saving unresolved reference %q: %w", ref.Normalised, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// List returns queued references ordered by occurrence count.
func (s *unresolvedStore) List(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.UnresolvedReference, error) {
	query := `
		SELECT kind, raw_text, normalised, occurrences, first_seen_at, last_seen_at
		FROM unresolved_references
	`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY occurrences DESC, kind, normalised"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying unresolved references: %w", err)
	}
	defer rows.Close()

	var refs []domain.UnresolvedReference //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ref domain.UnresolvedReference
		if err := rows.Scan(&ref.Kind, &ref.RawText, &ref.Normalised,
			&ref.Occurrences, &ref.FirstSeenAt, &ref.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scanning unresolved reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unresolved references: %w", err)
	}
	return refs, nil
}

// Clear removes one reference from the queue.
func (s *unresolvedStore) Clear(ctx context.Context, kind domain.EntityKind, normalised string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM unresolved_references WHERE kind = ? AND normalised = ?",
		kind, normalised)
	if err != nil {
		return fmt.Errorf("clearing unresolved reference: %w", err)
	}
	return nil
}
