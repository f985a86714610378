package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driven/storage/memory"
	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/services"
)

// setupTestServices wires every command against in-memory fakes with a
// small seeded dataset: a two-entity catalog, two postings under the
// acme-careers scope (one with a stored vector) and one scope state.
// The returned cleanup restores the previous wiring.
func setupTestServices() func() {
	oldIngest := ingestService
	oldMatch := matchService
	oldCatalog := catalogService
	oldEmbedding := embeddingService
	oldScopes := scopeStore
	oldPostings := postingStore
	oldWired := servicesWired

	postings := memory.NewPostingStore()
	catalogStore := memory.NewCatalogStore()
	scopes := memory.NewScopeStore()
	unresolved := memory.NewUnresolvedStore()

	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	companyID, _ := catalogStore.AddEntity(ctx, domain.CanonicalEntity{
		Kind: domain.KindCompany, CanonicalName: "ACME Corp",
	})
	locationID, _ := catalogStore.AddEntity(ctx, domain.CanonicalEntity{
		Kind: domain.KindLocation, CanonicalName: "Tel Aviv", Country: "Israel",
	})
	_ = catalogStore.AddSynonym(ctx, domain.Synonym{
		Kind: domain.KindCompany, RawText: "ACME", EntityID: companyID,
	})

	_, _ = postings.Upsert(ctx, domain.Posting{
		IdentityHash:  "hash-embedded",
		URL:           "https://acme.example/jobs/1",
		SourceScope:   "acme-careers",
		Title:         "Senior Go Engineer",
		CompanyRaw:    "ACME",
		LocationRaw:   "Tel Aviv",
		WorkplaceType: "hybrid",
		CompanyID:     &companyID,
		LocationID:    &locationID,
	}, now)
	_ = postings.SetEmbedding(ctx, "hash-embedded", []float32{1, 0, 0})

	_, _ = postings.Upsert(ctx, domain.Posting{
		IdentityHash: "hash-pending",
		URL:          "https://acme.example/jobs/2",
		SourceScope:  "acme-careers",
		Title:        "Data Engineer",
		CompanyRaw:   "ACME Corp",
	}, now)

	_ = scopes.Record(ctx, domain.ScopeState{
		Scope:          "acme-careers",
		LastRunID:      "run-1",
		LastIngestedAt: now,
		LastComplete:   true,
		LastCreated:    2,
	})

	catalogService = services.NewCatalogService(catalogStore, unresolved, nil)
	catalog, _ := catalogService.Load(ctx)
	ingestService = services.NewIngestService(postings, scopes, unresolved, catalog, nil)
	matchService = services.NewMatchService(postings, 3, 0, nil)
	embeddingService = services.NewEmbeddingService(postings, 3, nil)
	scopeStore = scopes
	postingStore = postings
	servicesWired = true

	return func() {
		ingestService = oldIngest
		matchService = oldMatch
		catalogService = oldCatalog
		embeddingService = oldEmbedding
		scopeStore = oldScopes
		postingStore = oldPostings
		servicesWired = oldWired
	}
}

// writeTempFile drops content into a fresh temp directory and returns
// the file's path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
