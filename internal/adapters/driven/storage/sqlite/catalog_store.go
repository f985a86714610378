package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// catalogStore implements driven.CatalogStore. Each vocabulary lives in
// its own pair of tables so hierarchy attributes stay typed columns.
type catalogStore struct {
	store *Store
}

var _ driven.CatalogStore = (*catalogStore)(nil)

// synonymTable maps a kind to its synonym table name.
func synonymTable(kind domain.EntityKind) (string, error) {
	switch kind {
	case domain.KindCompany:
		return "company_synonyms", nil
	case domain.KindDepartment:
		return "department_synonyms", nil
	case domain.KindLocation:
		return "location_synonyms", nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, kind)
	}
}

// Load builds the run catalog from all persisted entities and synonyms.
func (s *catalogStore) Load(ctx context.Context) (*domain.Catalog, error) {
	var entities []domain.CanonicalEntity
	var synonyms []domain.Synonym

	for _, kind := range domain.Kinds() {
		es, err := s.ListEntities(ctx, kind)
		if err != nil {
			return nil, err
		}
		entities = append(entities, es...)

		syns, err := s.ListSynonyms(ctx, kind)
		if err != nil {
			return nil, err
		}
		synonyms = append(synonyms, syns...)
	}

	return domain.NewCatalog(entities, synonyms)
}

// AddEntity creates a canonical entity and returns its id.
func (s *catalogStore) AddEntity(ctx context.Context, entity domain.CanonicalEntity) (int64, error) {
	norm := domain.NormaliseReference(entity.CanonicalName)

	var row *sql.Row
	switch entity.Kind {
	case domain.KindCompany:
		row = s.store.db.QueryRowContext(ctx, `
			INSERT INTO companies (canonical_name, normalised_name)
			VALUES (?, ?)
			RETURNING id
		`, entity.CanonicalName, norm)
	case domain.KindDepartment:
		row = s.store.db.QueryRowContext(ctx, `
			INSERT INTO departments (canonical_name, normalised_name, category)
			VALUES (?, ?, ?)
			RETURNING id
		`, entity.CanonicalName, norm, entity.Category)
	case domain.KindLocation:
		row = s.store.db.QueryRowContext(ctx, `
			INSERT INTO locations (canonical_name, normalised_name, country, region)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`, entity.CanonicalName, norm, entity.Country, entity.Region)
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, entity.Kind)
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s %q", domain.ErrAlreadyExists, entity.Kind, entity.CanonicalName)
		}
		return 0, fmt.Errorf("saving %s: %w", entity.Kind, err)
	}
	return id, nil
}

// AddSynonym registers a raw text variant for an entity.
func (s *catalogStore) AddSynonym(ctx context.Context, synonym domain.Synonym) error {
	table, err := synonymTable(synonym.Kind)
	if err != nil {
		return err
	}
	norm := domain.NormaliseReference(synonym.RawText)

	_, err = s.store.db.ExecContext(ctx,
		"INSERT INTO "+table+" (raw_text, normalised, entity_id) VALUES (?, ?, ?)",
		synonym.RawText, norm, synonym.EntityID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s synonym %q", domain.ErrAlreadyExists, synonym.Kind, norm)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s %d", domain.ErrNotFound, synonym.Kind, synonym.EntityID)
		}
		return fmt.Errorf("saving synonym: %w", err)
	}
	return nil
}

// ListEntities returns canonical entities of one kind.
func (s *catalogStore) ListEntities(ctx context.Context, kind domain.EntityKind) ([]domain.CanonicalEntity, error) {
	switch kind {
	case domain.KindCompany:
		return s.listCompanies(ctx)
	case domain.KindDepartment:
		return s.listDepartments(ctx)
	case domain.KindLocation:
		return s.listLocations(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, kind)
	}
}

func (s *catalogStore) listCompanies(ctx context.Context) ([]domain.CanonicalEntity, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, canonical_name FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var entities []domain.CanonicalEntity //nolint:prealloc // size unknown from query
	for rows.Next() {
		e := domain.CanonicalEntity{Kind: domain.KindCompany}
		if err := rows.Scan(&e.ID, &e.CanonicalName); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating companies: %w", err)
	}
	return entities, nil
}

func (s *catalogStore) listDepartments(ctx context.Context) ([]domain.CanonicalEntity, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, canonical_name, category FROM departments ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying departments: %w", err)
	}
	defer rows.Close()

	var entities []domain.CanonicalEntity //nolint:prealloc // size unknown from query
	for rows.Next() {
		e := domain.CanonicalEntity{Kind: domain.KindDepartment}
		if err := rows.Scan(&e.ID, &e.CanonicalName, &e.Category); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating departments: %w", err)
	}
	return entities, nil
}

func (s *catalogStore) listLocations(ctx context.Context) ([]domain.CanonicalEntity, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, canonical_name, country, region FROM locations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var entities []domain.CanonicalEntity //nolint:prealloc // size unknown from query
	for rows.Next() {
		e := domain.CanonicalEntity{Kind: domain.KindLocation}
		if err := rows.Scan(&e.ID, &e.CanonicalName, &e.Country, &e.Region); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return entities, nil
}

// ListSynonyms returns registered synonyms of one kind.
func (s *catalogStore) ListSynonyms(ctx context.Context, kind domain.EntityKind) ([]domain.Synonym, error) {
	table, err := synonymTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT raw_text, entity_id FROM "+table+" ORDER BY entity_id, raw_text")
	if err != nil {
		return nil, fmt.Errorf("querying synonyms: %w", err)
	}
	defer rows.Close()

	var synonyms []domain.Synonym //nolint:prealloc // size unknown from query
	for rows.Next() {
		syn := domain.Synonym{Kind: kind}
		if err := rows.Scan(&syn.RawText, &syn.EntityID); err != nil {
			return nil, fmt.Errorf("scanning synonym: %w", err)
		}
		synonyms = append(synonyms, syn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating synonyms: %w", err)
	}
	return synonyms, nil
}
