package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
)

// Ensure PostingStore implements the interface.
var _ driven.PostingStore = (*PostingStore)(nil)

// PostingStore is an in-memory implementation of driven.PostingStore.
type PostingStore struct {
	mu       sync.RWMutex
	nextID   int64
	postings map[int64]*domain.Posting
}

// NewPostingStore creates a new in-memory posting store.
func NewPostingStore() *PostingStore {
	return &PostingStore{
		postings: make(map[int64]*domain.Posting),
	}
}

// Upsert inserts the posting or refreshes the row sharing its identity
// hash or URL. A refresh never touches first_seen_at or the stored
// embedding.
func (s *PostingStore) Upsert(_ context.Context, posting domain.Posting, now time.Time) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byIdentity := s.findByIdentity(posting.IdentityHash)
	byURL := s.findByURL(posting.URL)

	existing := byIdentity
	if existing == nil {
		existing = byURL
	}
	if existing == nil {
		created := posting
		s.nextID++
		created.ID = s.nextID
		created.FirstSeenAt = now
		created.LastSeenAt = now
		created.IsActive = true
		created.DeactivatedAt = nil
		s.postings[created.ID] = &created
		return domain.UpsertCreated, nil
	}

	existing.SourceScope = posting.SourceScope
	existing.Title = posting.Title
	existing.CompanyRaw = posting.CompanyRaw
	existing.DepartmentRaw = posting.DepartmentRaw
	existing.LocationRaw = posting.LocationRaw
	existing.Description = posting.Description
	existing.WorkplaceType = posting.WorkplaceType
	existing.ExperienceLevel = posting.ExperienceLevel
	existing.EmploymentType = posting.EmploymentType
	existing.CompanyID = posting.CompanyID
	existing.DepartmentID = posting.DepartmentID
	existing.LocationID = posting.LocationID

	// Key fields follow the matched constraint. A key already held by a
	// different row stays as it was so both rows keep unique keys.
	if posting.URL != "" && (byURL == nil || byURL == existing) {
		existing.URL = posting.URL
	}
	if posting.IdentityHash != "" && (byIdentity == nil || byIdentity == existing) {
		existing.IdentityHash = posting.IdentityHash
	}

	existing.LastSeenAt = now
	existing.IsActive = true
	existing.DeactivatedAt = nil
	return domain.UpsertRefreshed, nil
}

// DeactivateMissing marks active postings of the scope inactive when
// their identity is absent from seenHashes.
func (s *PostingStore) DeactivateMissing(_ context.Context, sourceScope string, seenHashes []string, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(seenHashes))
	for _, h := range seenHashes {
		seen[h] = struct{}{}
	}

	var count int64
	for _, p := range s.postings {
		if p.SourceScope != sourceScope || !p.IsActive {
			continue
		}
		if _, ok := seen[p.IdentityHash]; ok {
			continue
		}
		at := asOf
		p.IsActive = false
		p.DeactivatedAt = &at
		count++
	}
	return count, nil
}

// QueryActive returns active postings matching the filter.
func (s *PostingStore) QueryActive(_ context.Context, filter domain.PostingFilter) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Posting
	for _, p := range s.postings {
		if !p.IsActive || !matchesFilter(p, filter) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListByScope returns postings observed under a scope.
func (s *PostingStore) ListByScope(_ context.Context, sourceScope string, includeInactive bool) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Posting
	for _, p := range s.postings {
		if p.SourceScope != sourceScope {
			continue
		}
		if !p.IsActive && !includeInactive {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetByIdentity retrieves a posting by identity hash.
func (s *PostingStore) GetByIdentity(_ context.Context, identityHash string) (*domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.findByIdentity(identityHash)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

// GetByURL retrieves a posting by URL.
func (s *PostingStore) GetByURL(_ context.Context, url string) (*domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.findByURL(url)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

// SetEmbedding stores the vector for one posting.
func (s *PostingStore) SetEmbedding(_ context.Context, identityHash string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findByIdentity(identityHash)
	if p == nil {
		return domain.ErrNotFound
	}
	p.Embedding = append([]float32(nil), vector...)
	return nil
}

// ListMissingEmbeddings returns active postings without a stored vector,
// oldest first.
func (s *PostingStore) ListMissingEmbeddings(_ context.Context, limit int) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Posting
	for _, p := range s.postings {
		if !p.IsActive || len(p.Embedding) > 0 {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].FirstSeenAt.Equal(result[j].FirstSeenAt) {
			return result[i].FirstSeenAt.Before(result[j].FirstSeenAt)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *PostingStore) findByIdentity(identityHash string) *domain.Posting {
	if identityHash == "" {
		return nil
	}
	for _, p := range s.postings {
		if p.IdentityHash == identityHash {
			return p
		}
	}
	return nil
}

func (s *PostingStore) findByURL(url string) *domain.Posting {
	if url == "" {
		return nil
	}
	for _, p := range s.postings {
		if p.URL == url {
			return p
		}
	}
	return nil
}

// matchesFilter applies each present filter field as a conjunctive
// constraint.
func matchesFilter(p *domain.Posting, filter domain.PostingFilter) bool {
	if filter.Scope != "" && p.SourceScope != filter.Scope {
		return false
	}
	if filter.CompanyID != nil && (p.CompanyID == nil || *p.CompanyID != *filter.CompanyID) {
		return false
	}
	if filter.DepartmentID != nil && (p.DepartmentID == nil || *p.DepartmentID != *filter.DepartmentID) {
		return false
	}
	if filter.LocationID != nil && (p.LocationID == nil || *p.LocationID != *filter.LocationID) {
		return false
	}
	if filter.WorkplaceType != "" && p.WorkplaceType != filter.WorkplaceType {
		return false
	}
	if filter.ExperienceLevel != "" && p.ExperienceLevel != filter.ExperienceLevel {
		return false
	}
	if filter.EmploymentType != "" && p.EmploymentType != filter.EmploymentType {
		return false
	}
	if filter.RequireEmbedding && len(p.Embedding) == 0 {
		return false
	}
	return true
}
