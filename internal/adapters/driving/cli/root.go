package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driven/config/file"
	"github.com/jobdex-labs/jobdex-cli/internal/adapters/driven/storage/sqlite"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
	"github.com/jobdex-labs/jobdex-cli/internal/core/services"
	"github.com/jobdex-labs/jobdex-cli/internal/logger"
)

// version is stamped by Execute from the build's main package.
var version = "dev"

// Persistent flags.
var (
	dataDir   string
	jsonLogs  bool
	debugLogs bool
)

// Shared infrastructure, wired once per invocation.
var (
	log    *zap.Logger
	config driven.ConfigStore
	store  *sqlite.Store

	servicesWired bool
)

// Services the commands dispatch to. Tests swap these for fakes.
var (
	ingestService    driving.Ingestor
	matchService     driving.Matcher
	catalogService   driving.CatalogAdmin
	embeddingService driving.EmbeddingApplier
	scopeStore       driven.ScopeStore
	postingStore     driven.PostingStore
)

var rootCmd = &cobra.Command{
	Use:   "jobdex",
	Short: "Entity resolution and matching for scraped job postings",
	Long: `Jobdex ingests scraped job posting batches, resolves free-text company,
department and location references against a curated canonical catalog,
deduplicates postings across overlapping scrapes and ranks active
postings against query embeddings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory (default ~/.jobdex/data)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false,
		"emit logs as JSON instead of console lines")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false,
		"enable debug logging")
}

// Execute runs the CLI. v is the version stamped at build time.
// Commands that touch storage wire their services lazily through
// ensureServices, so plain invocations like version and help never
// create the data directory.
func Execute(v string) error {
	version = v
	defer func() {
		if store != nil {
			_ = store.Close()
		}
	}()
	return rootCmd.Execute()
}

// ensureServices is the pre-run hook of every command that needs
// storage. It runs after flag parsing, so wiring sees the persistent
// flags. Tests pre-seed the service variables and set servicesWired
// instead.
func ensureServices(*cobra.Command, []string) error {
	if servicesWired {
		return nil
	}
	return wireServices()
}

// wireServices builds the production dependency graph: logger, config
// store, sqlite store, then the services on top. The catalog is loaded
// once here; curation during the same invocation is not picked up.
func wireServices() error {
	var err error
	config, err = file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err = logger.New(
		jsonLogs || config.GetBool("logging.json"),
		debugLogs || config.GetBool("logging.debug"))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	dir := dataDir
	if dir == "" {
		dir = config.GetString("storage.data_dir")
	}
	store, err = sqlite.NewStore(dir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	catalogService = services.NewCatalogService(store.CatalogStore(), store.UnresolvedStore(), log)
	catalog, err := catalogService.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	ingestService = services.NewIngestService(
		store.PostingStore(), store.ScopeStore(), store.UnresolvedStore(), catalog, log)
	matchService = services.NewMatchService(
		store.PostingStore(), config.GetInt("match.dimensions"),
		config.GetFloat64("match.min_similarity"), log)
	embeddingService = services.NewEmbeddingService(
		store.PostingStore(), config.GetInt("match.dimensions"), log)
	scopeStore = store.ScopeStore()
	postingStore = store.PostingStore()

	servicesWired = true
	return nil
}
