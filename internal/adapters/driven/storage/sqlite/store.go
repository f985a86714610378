package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.jobdex/data/jobdex.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".jobdex", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "jobdex.db")

	// Open database with WAL mode for better concurrency. Foreign keys
	// are a per-connection pragma, so they go through the DSN to cover
	// every pooled connection.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PostingStore returns a PostingStore interface backed by this store.
func (s *Store) PostingStore() driven.PostingStore {
	return &postingStore{store: s}
}

// CatalogStore returns a CatalogStore interface backed by this store.
func (s *Store) CatalogStore() driven.CatalogStore {
	return &catalogStore{store: s}
}

// ScopeStore returns a ScopeStore interface backed by this store.
func (s *Store) ScopeStore() driven.ScopeStore {
	return &scopeStore{store: s}
}

// UnresolvedStore returns an UnresolvedStore interface backed by this store.
func (s *Store) UnresolvedStore() driven.UnresolvedStore {
	return &unresolvedStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Posting Store ====================

// postingColumns is the full posting column list in scan order.
const postingColumns = `id, identity_hash, url, source_scope, title, company_raw,
	department_raw, location_raw, description, workplace_type, experience_level,
	employment_type, company_id, department_id, location_id, embedding,
	first_seen_at, last_seen_at, deactivated_at, is_active`

// postingStore implements driven.PostingStore.
type postingStore struct {
	store *Store
}

var _ driven.PostingStore = (*postingStore)(nil)

// Upsert inserts the posting or refreshes the row sharing its identity
// hash or URL. The whole write is a single statement; the uniqueness
// constraints themselves route concurrent writers of one identity onto
// one row.
func (s *postingStore) Upsert(ctx context.Context, posting domain.Posting, now time.Time) (domain.UpsertResult, error) {
	row := s.store.db.QueryRowContext(ctx, `
		INSERT INTO postings (
			identity_hash, url, source_scope, title, company_raw, department_raw,
			location_raw, description, workplace_type, experience_level,
			employment_type, company_id, department_id, location_id,
			first_seen_at, last_seen_at, is_active
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(identity_hash) DO UPDATE SET
			url = excluded.url,
			source_scope = excluded.source_scope,
			title = excluded.title,
			company_raw = excluded.company_raw,
			department_raw = excluded.department_raw,
			location_raw = excluded.location_raw,
			description = excluded.description,
			workplace_type = excluded.workplace_type,
			experience_level = excluded.experience_level,
			employment_type = excluded.employment_type,
			company_id = excluded.company_id,
			department_id = excluded.department_id,
			location_id = excluded.location_id,
			last_seen_at = excluded.last_seen_at,
			is_active = 1,
			deactivated_at = NULL
		ON CONFLICT(url) DO UPDATE SET
			identity_hash = excluded.identity_hash,
			source_scope = excluded.source_scope,
			title = excluded.title,
			company_raw = excluded.company_raw,
			department_raw = excluded.department_raw,
			location_raw = excluded.location_raw,
			description = excluded.description,
			workplace_type = excluded.workplace_type,
			experience_level = excluded.experience_level,
			employment_type = excluded.employment_type,
			company_id = excluded.company_id,
			department_id = excluded.department_id,
			location_id = excluded.location_id,
			last_seen_at = excluded.last_seen_at,
			is_active = 1,
			deactivated_at = NULL
		RETURNING first_seen_at, last_seen_at
	`, posting.IdentityHash, posting.URL, posting.SourceScope, posting.Title,
		posting.CompanyRaw, posting.DepartmentRaw, posting.LocationRaw,
		posting.Description, posting.WorkplaceType, posting.ExperienceLevel,
		posting.EmploymentType, posting.CompanyID, posting.DepartmentID,
		posting.LocationID, now, now)

	var firstSeen, lastSeen time.Time
	err := row.Scan(&firstSeen, &lastSeen)
	if err != nil {
		// Identity hash and URL each matched a different existing row:
		// the conflict update would break the other key's uniqueness.
		// Treated as a refresh of the identity-matched row, which keeps
		// its stored URL.
		if isUniqueViolation(err) {
			return s.refreshInPlace(ctx, posting, now)
		}
		return 0, fmt.Errorf("upserting posting: %w", err)
	}

	if firstSeen.Equal(lastSeen) {
		return domain.UpsertCreated, nil
	}
	return domain.UpsertRefreshed, nil
}

// refreshInPlace updates the row matched by identity hash (or, failing
// that, by URL) without touching its key columns.
func (s *postingStore) refreshInPlace(ctx context.Context, posting domain.Posting, now time.Time) (domain.UpsertResult, error) {
	const update = `
		UPDATE postings SET
			source_scope = ?,
			title = ?,
			company_raw = ?,
			department_raw = ?,
			location_raw = ?,
			description = ?,
			workplace_type = ?,
			experience_level = ?,
			employment_type = ?,
			company_id = ?,
			department_id = ?,
			location_id = ?,
			last_seen_at = ?,
			is_active = 1,
			deactivated_at = NULL
	`
	args := []any{
		posting.SourceScope, posting.Title, posting.CompanyRaw,
		posting.DepartmentRaw, posting.LocationRaw, posting.Description,
		posting.WorkplaceType, posting.ExperienceLevel, posting.EmploymentType,
		posting.CompanyID, posting.DepartmentID, posting.LocationID, now,
	}

	res, err := s.store.db.ExecContext(ctx, update+" WHERE identity_hash = ?",
		append(args, posting.IdentityHash)...)
	if err != nil {
		return 0, fmt.Errorf("refreshing posting: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("refreshing posting: %w", err)
	}
	if affected == 0 {
		res, err = s.store.db.ExecContext(ctx, update+" WHERE url = ?",
			append(args, posting.URL)...)
		if err != nil {
			return 0, fmt.Errorf("refreshing posting: %w", err)
		}
		if affected, err = res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("refreshing posting: %w", err)
		}
		if affected == 0 {
			return 0, fmt.Errorf("refreshing posting: %w", domain.ErrNotFound)
		}
	}
	return domain.UpsertRefreshed, nil
}

// DeactivateMissing marks active postings of the scope inactive when
// their identity is absent from seenHashes.
func (s *postingStore) DeactivateMissing(ctx context.Context, sourceScope string, seenHashes []string, asOf time.Time) (int64, error) {
	query := "UPDATE postings SET is_active = 0, deactivated_at = ? WHERE source_scope = ? AND is_active = 1"
	args := []any{asOf, sourceScope}

	if len(seenHashes) > 0 {
		placeholders := strings.Repeat("?, ", len(seenHashes)-1) + "?"
		query += " AND identity_hash NOT IN (" + placeholders + ")"
		for _, hash := range seenHashes {
			args = append(args, hash)
		}
	}

	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivating postings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivating postings: %w", err)
	}
	return affected, nil
}

// QueryActive returns active postings matching the filter.
func (s *postingStore) QueryActive(ctx context.Context, filter domain.PostingFilter) ([]domain.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings WHERE is_active = 1"
	var args []any

	if filter.Scope != "" {
		query += " AND source_scope = ?"
		args = append(args, filter.Scope)
	}
	if filter.CompanyID != nil {
		query += " AND company_id = ?"
		args = append(args, *filter.CompanyID)
	}
	if filter.DepartmentID != nil {
		query += " AND department_id = ?"
		args = append(args, *filter.DepartmentID)
	}
	if filter.LocationID != nil {
		query += " AND location_id = ?"
		args = append(args, *filter.LocationID)
	}
	if filter.WorkplaceType != "" {
		query += " AND workplace_type = ?"
		args = append(args, filter.WorkplaceType)
	}
	if filter.ExperienceLevel != "" {
		query += " AND experience_level = ?"
		args = append(args, filter.ExperienceLevel)
	}
	if filter.EmploymentType != "" {
		query += " AND employment_type = ?"
		args = append(args, filter.EmploymentType)
	}
	if filter.RequireEmbedding {
		query += " AND embedding IS NOT NULL"
	}
	query += " ORDER BY last_seen_at DESC, id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

// ListByScope returns postings observed under a scope.
func (s *postingStore) ListByScope(ctx context.Context, sourceScope string, includeInactive bool) ([]domain.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings WHERE source_scope = ?"
	if !includeInactive {
		query += " AND is_active = 1"
	}
	query += " ORDER BY last_seen_at DESC, id"

	rows, err := s.store.db.QueryContext(ctx, query, sourceScope)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

// GetByIdentity retrieves a posting by identity hash.
func (s *postingStore) GetByIdentity(ctx context.Context, identityHash string) (*domain.Posting, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+postingColumns+" FROM postings WHERE identity_hash = ?", identityHash)
	return scanPosting(row)
}

// GetByURL retrieves a posting by URL.
func (s *postingStore) GetByURL(ctx context.Context, url string) (*domain.Posting, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+postingColumns+" FROM postings WHERE url = ?", url)
	return scanPosting(row)
}

// SetEmbedding stores the vector for one posting.
func (s *postingStore) SetEmbedding(ctx context.Context, identityHash string, vector []float32) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE postings SET embedding = ? WHERE identity_hash = ?",
		float32SliceToBytes(vector), identityHash)
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListMissingEmbeddings returns active postings without a stored vector,
// oldest first.
func (s *postingStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Posting, error) {
	query := "SELECT " + postingColumns + ` FROM postings
		WHERE is_active = 1 AND embedding IS NULL
		ORDER BY first_seen_at, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

// ==================== Helper Functions ====================

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The driver is imported anonymously, so detection goes by message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY failure.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanPosting scans a single posting row.
func scanPosting(row *sql.Row) (*domain.Posting, error) {
	var p domain.Posting
	var companyID, departmentID, locationID sql.NullInt64
	var embeddingBlob []byte
	var deactivatedAt sql.NullTime

	if err := row.Scan(&p.ID, &p.IdentityHash, &p.URL, &p.SourceScope, &p.Title,
		&p.CompanyRaw, &p.DepartmentRaw, &p.LocationRaw, &p.Description,
		&p.WorkplaceType, &p.ExperienceLevel, &p.EmploymentType,
		&companyID, &departmentID, &locationID, &embeddingBlob,
		&p.FirstSeenAt, &p.LastSeenAt, &deactivatedAt, &p.IsActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning posting: %w", err)
	}

	applyPostingNullables(&p, companyID, departmentID, locationID, embeddingBlob, deactivatedAt)
	return &p, nil
}

// scanPostings scans multiple posting rows.
func scanPostings(rows *sql.Rows) ([]domain.Posting, error) {
	var postings []domain.Posting //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Posting
		var companyID, departmentID, locationID sql.NullInt64
		var embeddingBlob []byte
		var deactivatedAt sql.NullTime

		if err := rows.Scan(&p.ID, &p.IdentityHash, &p.URL, &p.SourceScope, &p.Title,
			&p.CompanyRaw, &p.DepartmentRaw, &p.LocationRaw, &p.Description,
			&p.WorkplaceType, &p.ExperienceLevel, &p.EmploymentType,
			&companyID, &departmentID, &locationID, &embeddingBlob,
			&p.FirstSeenAt, &p.LastSeenAt, &deactivatedAt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}

		applyPostingNullables(&p, companyID, departmentID, locationID, embeddingBlob, deactivatedAt)
		postings = append(postings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}

	return postings, nil
}

// applyPostingNullables copies nullable columns onto the posting.
func applyPostingNullables(p *domain.Posting, companyID, departmentID, locationID sql.NullInt64, embeddingBlob []byte, deactivatedAt sql.NullTime) {
	if companyID.Valid {
		p.CompanyID = &companyID.Int64
	}
	if departmentID.Valid {
		p.DepartmentID = &departmentID.Int64
	}
	if locationID.Valid {
		p.LocationID = &locationID.Int64
	}
	p.Embedding = bytesToFloat32Slice(embeddingBlob)
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		p.DeactivatedAt = &t
	}
}
