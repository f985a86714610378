package services

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
)

// Ensure MatchService implements the interface.
var _ driving.Matcher = (*MatchService)(nil)

// DefaultMinSimilarity is the score threshold applied when neither the
// filter nor the configuration provides one.
const DefaultMinSimilarity = 0.5

// MatchService ranks active postings with stored embeddings against a
// query embedding. It is strictly read-only over postings.
type MatchService struct {
	postings      driven.PostingStore
	dimensions    int
	minSimilarity float64
	log           *zap.Logger
}

// NewMatchService creates a new match service. dimensions is the
// deployment's embedding dimensionality; zero disables the up-front
// query length check and leaves only per-row exclusion. A zero
// minSimilarity selects DefaultMinSimilarity.
func NewMatchService(postings driven.PostingStore, dimensions int, minSimilarity float64, log *zap.Logger) *MatchService {
	if log == nil {
		log = zap.NewNop()
	}
	if minSimilarity == 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &MatchService{
		postings:      postings,
		dimensions:    dimensions,
		minSimilarity: minSimilarity,
		log:           log,
	}
}

// Match scores active postings against queryVector under the filter and
// returns at most limit results, best first.
func (s *MatchService) Match(
	ctx context.Context,
	queryVector []float32,
	filter domain.MatchFilter,
	limit int,
) ([]domain.MatchResult, error) {
	if s.postings == nil {
		return nil, fmt.Errorf("%w: posting store not configured", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if s.dimensions > 0 && len(queryVector) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, stored embeddings have %d",
			domain.ErrDimensionMismatch, len(queryVector), s.dimensions)
	}

	threshold := s.minSimilarity
	if filter.MinSimilarity != nil {
		threshold = *filter.MinSimilarity
	}

	candidates, err := s.postings.QueryActive(ctx, domain.PostingFilter{
		CompanyID:        filter.CompanyID,
		DepartmentID:     filter.DepartmentID,
		LocationID:       filter.LocationID,
		WorkplaceType:    filter.WorkplaceType,
		ExperienceLevel:  filter.ExperienceLevel,
		EmploymentType:   filter.EmploymentType,
		RequireEmbedding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying active postings: %w", err)
	}

	// Bounded top-k selection: a min-heap of size limit holds the best
	// results seen so far with the current worst at the root.
	h := &resultHeap{}
	heap.Init(h)
	excluded := 0
	for i := range candidates {
		p := &candidates[i]
		if len(p.Embedding) != len(queryVector) {
			excluded++
			continue
		}
		score, ok := cosine(queryVector, p.Embedding)
		if !ok || score < threshold {
			continue
		}
		result := domain.MatchResult{Posting: *p, Score: score}
		if h.Len() < limit {
			heap.Push(h, result)
		} else if resultWorse((*h)[0], result) {
			(*h)[0] = result
			heap.Fix(h, 0)
		}
	}
	if excluded > 0 {
		s.log.Debug("excluded postings with mismatched embedding length",
			zap.Int("count", excluded))
	}

	// Popping yields worst first; fill the result slice back to front.
	results := make([]domain.MatchResult, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(domain.MatchResult)
	}
	return results, nil
}

// cosine returns the cosine similarity of two equal-length vectors,
// accumulating in float64. ok is false when either vector has zero norm:
// no finite similarity exists and the posting is excluded rather than
// scored NaN.
func cosine(a, b []float32) (float64, bool) {
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// resultWorse reports whether a ranks strictly below b: lower score,
// then older last_seen_at, then higher identity hash.
func resultWorse(a, b domain.MatchResult) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if !a.Posting.LastSeenAt.Equal(b.Posting.LastSeenAt) {
		return a.Posting.LastSeenAt.Before(b.Posting.LastSeenAt)
	}
	return a.Posting.IdentityHash > b.Posting.IdentityHash
}

// resultHeap is a min-heap of match results ordered by resultWorse, so
// the worst kept result sits at the root for cheap replacement.
type resultHeap []domain.MatchResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return resultWorse(h[i], h[j]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(domain.MatchResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
