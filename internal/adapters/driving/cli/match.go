package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

var (
	matchCompany       string
	matchDepartment    string
	matchLocation      string
	matchWorkplace     string
	matchExperience    string
	matchEmployment    string
	matchMinSimilarity float64
	matchLimit         int
	matchJSON          bool
)

var matchCmd = &cobra.Command{
	Use:   "match [vector-file]",
	Short: "Rank active postings against a query embedding",
	Long: `Scores every active posting with a stored embedding against the query
vector and prints the best matches. The vector file holds one JSON
array of floats in the deployment's dimensionality; pass - to read it
from stdin.

Company, department and location filters take raw text and resolve it
through the canonical catalog, exactly as ingestion does.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: ensureServices,
	RunE:    runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchCompany, "company", "", "filter by company")
	matchCmd.Flags().StringVar(&matchDepartment, "department", "", "filter by department")
	matchCmd.Flags().StringVar(&matchLocation, "location", "", "filter by location")
	matchCmd.Flags().StringVar(&matchWorkplace, "workplace", "", "filter by workplace type (remote, hybrid, onsite)")
	matchCmd.Flags().StringVar(&matchExperience, "experience", "", "filter by experience level")
	matchCmd.Flags().StringVar(&matchEmployment, "employment", "", "filter by employment type")
	matchCmd.Flags().Float64Var(&matchMinSimilarity, "min-similarity", 0, "override the configured score threshold")
	matchCmd.Flags().IntVarP(&matchLimit, "limit", "n", 10, "maximum number of results")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	if matchService == nil {
		return errors.New("match service not configured")
	}

	queryVector, err := readQueryVector(cmd, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	filter := domain.MatchFilter{
		WorkplaceType:   matchWorkplace,
		ExperienceLevel: matchExperience,
		EmploymentType:  matchEmployment,
	}
	if matchMinSimilarity > 0 {
		filter.MinSimilarity = &matchMinSimilarity
	}
	if err := resolveMatchEntities(ctx, &filter); err != nil {
		return err
	}

	limit := matchLimit
	if !cmd.Flags().Changed("limit") && config != nil {
		if v := config.GetInt("match.limit"); v > 0 {
			limit = v
		}
	}

	results, err := matchService.Match(ctx, queryVector, filter, limit)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if matchJSON {
		return outputMatchJSON(cmd, results)
	}
	return outputMatchTable(cmd, results)
}

// readQueryVector loads the query embedding from a file, or from stdin
// when path is "-". Both a bare JSON array and the {"vector": [...]}
// wrapper some embedding tools emit are accepted.
func readQueryVector(cmd *cobra.Command, path string) ([]float32, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading query vector: %w", err)
	}

	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		var wrapped struct {
			Vector []float32 `json:"vector"`
		}
		if json.Unmarshal(raw, &wrapped) != nil {
			return nil, fmt.Errorf("parsing query vector: %w", err)
		}
		vector = wrapped.Vector
	}
	if len(vector) == 0 {
		return nil, errors.New("query vector is empty")
	}
	return vector, nil
}

// resolveMatchEntities turns the raw-text entity flags into canonical
// ids via the catalog. A flag that resolves to nothing is an error, not
// an empty result: the caller asked for a vocabulary entry that does
// not exist.
func resolveMatchEntities(ctx context.Context, filter *domain.MatchFilter) error {
	if matchCompany == "" && matchDepartment == "" && matchLocation == "" {
		return nil
	}
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	catalog, err := catalogService.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	if matchCompany != "" {
		if filter.CompanyID, err = resolveFilterEntity(catalog, domain.KindCompany, matchCompany); err != nil {
			return err
		}
	}
	if matchDepartment != "" {
		if filter.DepartmentID, err = resolveFilterEntity(catalog, domain.KindDepartment, matchDepartment); err != nil {
			return err
		}
	}
	if matchLocation != "" {
		if filter.LocationID, err = resolveFilterEntity(catalog, domain.KindLocation, matchLocation); err != nil {
			return err
		}
	}
	return nil
}

func resolveFilterEntity(catalog *domain.Catalog, kind domain.EntityKind, raw string) (*int64, error) {
	id, ok := catalog.Resolve(kind, raw)
	if !ok {
		return nil, fmt.Errorf("no canonical %s matches %q", kind, raw)
	}
	return &id, nil
}

func outputMatchJSON(cmd *cobra.Command, results []domain.MatchResult) error {
	// The stored vector is noise in report output.
	out := make([]domain.MatchResult, len(results))
	copy(out, results)
	for i := range out {
		out[i].Posting.Embedding = nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputMatchTable(cmd *cobra.Command, results []domain.MatchResult) error {
	if len(results) == 0 {
		cmd.Println("No matches found.")
		return nil
	}

	cmd.Println("Matches:")
	cmd.Println()
	for i := range results {
		p := results[i].Posting
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, p.Title, results[i].Score)

		var parts []string
		if p.CompanyRaw != "" {
			parts = append(parts, p.CompanyRaw)
		}
		if p.LocationRaw != "" {
			parts = append(parts, p.LocationRaw)
		}
		details := strings.Join(parts, ", ")
		if p.WorkplaceType != "" {
			if details != "" {
				details += " "
			}
			details += "(" + p.WorkplaceType + ")"
		}
		if details != "" {
			cmd.Printf("      %s\n", details)
		}
		if p.URL != "" {
			cmd.Printf("      %s\n", p.URL)
		}
		cmd.Println()
	}
	return nil
}
