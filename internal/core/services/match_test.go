package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driven/storage/memory"
	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

// storePosting seeds one posting, optionally with an embedding, and
// returns its identity hash.
func storePosting(t *testing.T, store *memory.PostingStore, p domain.Posting, embedding []float32, seenAt time.Time) string {
	t.Helper()
	ctx := context.Background()

	if p.IdentityHash == "" {
		p.IdentityHash = domain.ComputeIdentity(p.URL, p.Title, p.CompanyRaw)
	}
	if p.SourceScope == "" {
		p.SourceScope = "acme-careers"
	}
	if p.Title == "" {
		p.Title = "Role"
	}
	_, err := store.Upsert(ctx, p, seenAt)
	require.NoError(t, err)
	if embedding != nil {
		require.NoError(t, store.SetEmbedding(ctx, p.IdentityHash, embedding))
	}
	return p.IdentityHash
}

func TestNewMatchService(t *testing.T) {
	svc := NewMatchService(memory.NewPostingStore(), 0, 0, nil)

	require.NotNil(t, svc)
	assert.InDelta(t, DefaultMinSimilarity, svc.minSimilarity, 1e-9)
	assert.NotNil(t, svc.log)
}

func TestMatchService_Match_ScoresAndOrders(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Now().UTC()
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/east"}, []float32{1, 0}, now)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/north"}, []float32{0, 1}, now)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/diag"}, []float32{1, 1}, now)

	svc := NewMatchService(store, 2, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)

	require.NoError(t, err)
	// Orthogonal vector scores 0.0 and falls under the 0.5 threshold.
	require.Len(t, results, 2)
	assert.Equal(t, "https://acme.example/jobs/east", results[0].Posting.URL)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "https://acme.example/jobs/diag", results[1].Posting.URL)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-4)
}

func TestMatchService_Match_CustomThreshold(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Now().UTC()
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/east"}, []float32{1, 0}, now)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/diag"}, []float32{1, 1}, now)

	svc := NewMatchService(store, 2, 0, nil)

	minSim := 0.9
	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{MinSimilarity: &minSim}, 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.example/jobs/east", results[0].Posting.URL)
}

func TestMatchService_Match_MissingEmbeddingExcluded(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Now().UTC()
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/1"}, []float32{1, 0}, now)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/2"}, nil, now)

	svc := NewMatchService(store, 2, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.example/jobs/1", results[0].Posting.URL)
}

func TestMatchService_Match_ZeroNormExcluded(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Now().UTC()
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/1"}, []float32{0, 0}, now)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/2"}, []float32{1, 0}, now)

	svc := NewMatchService(store, 2, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)

	// The zero vector is excluded silently rather than scored NaN.
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.example/jobs/2", results[0].Posting.URL)
}

func TestMatchService_Match_DimensionMismatch(t *testing.T) {
	svc := NewMatchService(memory.NewPostingStore(), 2, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0, 0}, domain.MatchFilter{}, 10)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Nil(t, results)
}

func TestMatchService_Match_MismatchedStoredVectorExcluded(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Now().UTC()
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/1"}, []float32{1, 0, 0}, now)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/2"}, []float32{1, 0}, now)

	// No configured dimensionality: mismatches surface per row instead.
	svc := NewMatchService(store, 0, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.example/jobs/2", results[0].Posting.URL)
}

func TestMatchService_Match_FilterConjunction(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Now().UTC()
	telAviv := int64(4)
	haifa := int64(5)
	rnd := int64(2)

	storePosting(t, store, domain.Posting{
		URL: "https://acme.example/jobs/1", LocationID: &telAviv, DepartmentID: &rnd, WorkplaceType: "Hybrid",
	}, []float32{1, 0}, now)
	storePosting(t, store, domain.Posting{
		URL: "https://acme.example/jobs/2", LocationID: &telAviv, DepartmentID: &rnd, WorkplaceType: "Onsite",
	}, []float32{1, 0}, now)
	storePosting(t, store, domain.Posting{
		URL: "https://acme.example/jobs/3", LocationID: &haifa, DepartmentID: &rnd, WorkplaceType: "Hybrid",
	}, []float32{1, 0}, now)
	storePosting(t, store, domain.Posting{
		URL: "https://acme.example/jobs/4", LocationID: &telAviv, WorkplaceType: "Hybrid",
	}, []float32{1, 0}, now)

	svc := NewMatchService(store, 2, 0, nil)

	// Every present field constrains; absent fields do not.
	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{
		LocationID:    &telAviv,
		DepartmentID:  &rnd,
		WorkplaceType: "Hybrid",
	}, 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.example/jobs/1", results[0].Posting.URL)

	unfiltered, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, unfiltered, 4)
}

func TestMatchService_Match_TieBreakRecency(t *testing.T) {
	store := memory.NewPostingStore()
	older := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/old"}, []float32{1, 0}, older)
	storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/new"}, []float32{1, 0}, newer)

	svc := NewMatchService(store, 2, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://acme.example/jobs/new", results[0].Posting.URL)
	assert.Equal(t, "https://acme.example/jobs/old", results[1].Posting.URL)
}

func TestMatchService_Match_TieBreakDeterminism(t *testing.T) {
	store := memory.NewPostingStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	hashA := storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/a"}, []float32{1, 0}, now)
	hashB := storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/b"}, []float32{1, 0}, now)

	svc := NewMatchService(store, 2, 0, nil)

	// Identical score and last_seen_at: identity hash decides, stably.
	wantFirst := hashA
	if hashB < hashA {
		wantFirst = hashB
	}
	for i := 0; i < 5; i++ {
		results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, wantFirst, results[0].Posting.IdentityHash)
	}
}

func TestMatchService_Match_LimitCapsResults(t *testing.T) {
	store := memory.NewPostingStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	vectors := [][]float32{{1, 0}, {5, 1}, {4, 2}, {3, 3}, {1, 5}}
	urls := []string{
		"https://acme.example/jobs/1",
		"https://acme.example/jobs/2",
		"https://acme.example/jobs/3",
		"https://acme.example/jobs/4",
		"https://acme.example/jobs/5",
	}
	for i := range vectors {
		storePosting(t, store, domain.Posting{URL: urls[i]}, vectors[i], base.Add(time.Duration(i)*time.Minute))
	}

	svc := NewMatchService(store, 2, 0, nil)

	results, err := svc.Match(context.Background(), []float32{1, 0}, domain.MatchFilter{}, 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	// Best two by cosine against (1,0): the axis vector, then (5,1).
	assert.Equal(t, "https://acme.example/jobs/1", results[0].Posting.URL)
	assert.Equal(t, "https://acme.example/jobs/2", results[1].Posting.URL)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestMatchService_Match_InactiveExcluded(t *testing.T) {
	store := memory.NewPostingStore()
	ctx := context.Background()
	now := time.Now().UTC()
	hash := storePosting(t, store, domain.Posting{URL: "https://acme.example/jobs/1"}, []float32{1, 0}, now)

	_, err := store.DeactivateMissing(ctx, "acme-careers", nil, now)
	require.NoError(t, err)

	svc := NewMatchService(store, 2, 0, nil)

	results, err := svc.Match(ctx, []float32{1, 0}, domain.MatchFilter{}, 10)

	require.NoError(t, err)
	assert.Empty(t, results)

	// The row itself is retained, only excluded from matching.
	stored, err := store.GetByIdentity(ctx, hash)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestMatchService_Match_InvalidInput(t *testing.T) {
	svc := NewMatchService(memory.NewPostingStore(), 2, 0, nil)
	ctx := context.Background()

	_, err := svc.Match(ctx, []float32{1, 0}, domain.MatchFilter{}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Match(ctx, nil, domain.MatchFilter{}, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	unconfigured := NewMatchService(nil, 2, 0, nil)
	_, err = unconfigured.Match(ctx, []float32{1, 0}, domain.MatchFilter{}, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
		ok   bool
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1.0, ok: true},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0.0, ok: true},
		{name: "diagonal", a: []float32{1, 0}, b: []float32{1, 1}, want: 0.70710678, ok: true},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1.0, ok: true},
		{name: "zero norm left", a: []float32{0, 0}, b: []float32{1, 0}, ok: false},
		{name: "zero norm right", a: []float32{1, 0}, b: []float32{0, 0}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cosine(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}
