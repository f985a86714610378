package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

var (
	catalogEntityCountry  string
	catalogEntityRegion   string
	catalogEntityCategory string

	catalogUnresolvedLimit int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Curate the canonical entity catalog",
	Long: `Manages the canonical vocabulary postings are resolved against:
companies, departments and locations, each with curated synonyms.

The catalog only grows through curation. Ingestion never creates
entities on its own; raw references that resolve to nothing accumulate
in the unresolved queue for review here.`,
	PersistentPreRunE: ensureServices,
	RunE:              runCatalogList,
}

var catalogListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "List canonical entities",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogList,
}

var catalogAddEntityCmd = &cobra.Command{
	Use:   "add-entity [kind] [name]",
	Short: "Create a canonical entity",
	Long: `Creates a canonical entity. The canonical name doubles as a synonym,
so postings carrying the exact name resolve without further curation.`,
	Args: cobra.ExactArgs(2),
	RunE: runCatalogAddEntity,
}

var catalogAddSynonymCmd = &cobra.Command{
	Use:   "add-synonym [kind] [raw-text] [entity]",
	Short: "Register a raw text variant for an entity",
	Long: `Registers a raw text variant that resolves to an existing canonical
entity. The entity may be given by id or by canonical name. A matching
entry in the unresolved queue is cleared.`,
	Args: cobra.ExactArgs(3),
	RunE: runCatalogAddSynonym,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Bulk import entities and synonyms",
	Long: `Imports curated reference data from a JSON file holding an array of
entries, each a canonical entity with its known synonyms. Entries that
already exist are skipped, so imports are safe to repeat.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

var catalogUnresolvedCmd = &cobra.Command{
	Use:   "unresolved [kind]",
	Short: "Show raw references that resolved to nothing",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogUnresolved,
}

func init() {
	catalogAddEntityCmd.Flags().StringVar(&catalogEntityCountry, "country", "", "country attribute (locations)")
	catalogAddEntityCmd.Flags().StringVar(&catalogEntityRegion, "region", "", "region attribute (locations)")
	catalogAddEntityCmd.Flags().StringVar(&catalogEntityCategory, "category", "", "category attribute (departments)")
	catalogUnresolvedCmd.Flags().IntVarP(&catalogUnresolvedLimit, "limit", "n", 20, "maximum number of references")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogAddEntityCmd)
	catalogCmd.AddCommand(catalogAddSynonymCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogUnresolvedCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	kinds := domain.Kinds()
	if len(args) == 1 {
		kind, err := domain.ParseEntityKind(args[0])
		if err != nil {
			return err
		}
		kinds = []domain.EntityKind{kind}
	}

	ctx := context.Background()
	for _, kind := range kinds {
		entities, err := catalogService.ListEntities(ctx, kind)
		if err != nil {
			return fmt.Errorf("listing %s entities: %w", kind, err)
		}
		synonyms, err := catalogService.ListSynonyms(ctx, kind)
		if err != nil {
			return fmt.Errorf("listing %s synonyms: %w", kind, err)
		}

		counts := make(map[int64]int, len(entities))
		for _, s := range synonyms {
			counts[s.EntityID]++
		}

		cmd.Printf("%s (%d):\n", kindHeading(kind), len(entities))
		for _, e := range entities {
			cmd.Printf("  [%d] %s%s, %d synonyms\n",
				e.ID, e.CanonicalName, entityDetail(e), counts[e.ID])
		}
		cmd.Println()
	}
	return nil
}

func runCatalogAddEntity(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	kind, err := domain.ParseEntityKind(args[0])
	if err != nil {
		return err
	}
	if catalogEntityCategory != "" && kind != domain.KindDepartment {
		return errors.New("--category applies to departments only")
	}
	if (catalogEntityCountry != "" || catalogEntityRegion != "") && kind != domain.KindLocation {
		return errors.New("--country and --region apply to locations only")
	}

	entity := domain.CanonicalEntity{
		Kind:          kind,
		CanonicalName: args[1],
		Country:       catalogEntityCountry,
		Region:        catalogEntityRegion,
		Category:      catalogEntityCategory,
	}

	id, err := catalogService.AddEntity(context.Background(), entity)
	if err != nil {
		return fmt.Errorf("adding entity: %w", err)
	}

	cmd.Printf("Added %s [%d] %s\n", kind, id, entity.CanonicalName)
	return nil
}

func runCatalogAddSynonym(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	kind, err := domain.ParseEntityKind(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	entityID, err := findEntityID(ctx, kind, args[2])
	if err != nil {
		return err
	}

	synonym := domain.Synonym{Kind: kind, RawText: args[1], EntityID: entityID}
	if err := catalogService.AddSynonym(ctx, synonym); err != nil {
		return fmt.Errorf("adding synonym: %w", err)
	}

	cmd.Printf("Registered %s synonym %q for entity [%d]\n", kind, args[1], entityID)
	return nil
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	var entries []domain.CatalogImportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing import file %s: %w", args[0], err)
	}

	entities, synonyms, err := catalogService.Import(context.Background(), entries)
	if err != nil {
		return fmt.Errorf("import failed after %d entities and %d synonyms: %w",
			entities, synonyms, err)
	}

	cmd.Printf("Imported %d entities and %d synonyms.\n", entities, synonyms)
	return nil
}

func runCatalogUnresolved(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	var kind domain.EntityKind
	if len(args) == 1 {
		parsed, err := domain.ParseEntityKind(args[0])
		if err != nil {
			return err
		}
		kind = parsed
	}

	refs, err := catalogService.Unresolved(context.Background(), kind, catalogUnresolvedLimit)
	if err != nil {
		return fmt.Errorf("listing unresolved references: %w", err)
	}

	if len(refs) == 0 {
		cmd.Println("Unresolved queue is empty.")
		return nil
	}

	cmd.Println("Unresolved references:")
	cmd.Println()
	for _, r := range refs {
		cmd.Printf("  %s %q seen %dx (first %s, last %s)\n",
			r.Kind, r.RawText, r.Occurrences,
			r.FirstSeenAt.Format("2006-01-02"), r.LastSeenAt.Format("2006-01-02"))
	}
	return nil
}

// findEntityID accepts an entity reference as either a numeric id or a
// canonical name.
func findEntityID(ctx context.Context, kind domain.EntityKind, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}

	entities, err := catalogService.ListEntities(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("listing %s entities: %w", kind, err)
	}
	want := domain.NormaliseReference(ref)
	for _, e := range entities {
		if domain.NormaliseReference(e.CanonicalName) == want {
			return e.ID, nil
		}
	}
	return 0, fmt.Errorf("no canonical %s matches %q", kind, ref)
}

func kindHeading(kind domain.EntityKind) string {
	switch kind {
	case domain.KindCompany:
		return "Companies"
	case domain.KindDepartment:
		return "Departments"
	case domain.KindLocation:
		return "Locations"
	default:
		return string(kind)
	}
}

// entityDetail renders the kind-specific attributes, if any.
func entityDetail(e domain.CanonicalEntity) string {
	var parts []string
	if e.Country != "" {
		parts = append(parts, e.Country)
	}
	if e.Region != "" {
		parts = append(parts, e.Region)
	}
	if e.Category != "" {
		parts = append(parts, e.Category)
	}
	if len(parts) == 0 {
		return ""
	}
	detail := parts[0]
	for _, p := range parts[1:] {
		detail += ", " + p
	}
	return " (" + detail + ")"
}
