package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
)

var (
	postingsScope         string
	postingsCompany       string
	postingsDepartment    string
	postingsLocation      string
	postingsWorkplace     string
	postingsExperience    string
	postingsEmployment    string
	postingsWithEmbedding bool
	postingsAll           bool
	postingsLimit         int
	postingsJSON          bool
)

var postingsCmd = &cobra.Command{
	Use:   "postings",
	Short: "List stored postings",
	Long: `Lists active postings matching the given filters. Company, department
and location take raw text and resolve it through the canonical
catalog. With --all and --scope, deactivated postings of that scope are
listed as well.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: ensureServices,
	RunE:              runPostingsList,
}

var postingsShowCmd = &cobra.Command{
	Use:   "show [url-or-identity-hash]",
	Short: "Show one posting in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostingsShow,
}

func init() {
	postingsCmd.Flags().StringVar(&postingsScope, "scope", "", "filter by source scope")
	postingsCmd.Flags().StringVar(&postingsCompany, "company", "", "filter by company")
	postingsCmd.Flags().StringVar(&postingsDepartment, "department", "", "filter by department")
	postingsCmd.Flags().StringVar(&postingsLocation, "location", "", "filter by location")
	postingsCmd.Flags().StringVar(&postingsWorkplace, "workplace", "", "filter by workplace type")
	postingsCmd.Flags().StringVar(&postingsExperience, "experience", "", "filter by experience level")
	postingsCmd.Flags().StringVar(&postingsEmployment, "employment", "", "filter by employment type")
	postingsCmd.Flags().BoolVar(&postingsWithEmbedding, "with-embedding", false, "only postings with a stored vector")
	postingsCmd.Flags().BoolVar(&postingsAll, "all", false, "include deactivated postings (requires --scope)")
	postingsCmd.Flags().IntVarP(&postingsLimit, "limit", "n", 0, "maximum number of postings (0 for all)")
	postingsCmd.Flags().BoolVar(&postingsJSON, "json", false, "output postings as JSON")

	postingsCmd.AddCommand(postingsShowCmd)
	rootCmd.AddCommand(postingsCmd)
}

func runPostingsList(cmd *cobra.Command, _ []string) error {
	if postingStore == nil {
		return errors.New("posting store not configured")
	}

	ctx := context.Background()

	var (
		postings []domain.Posting
		err      error
	)
	if postingsAll {
		if postingsScope == "" {
			return errors.New("--all requires --scope")
		}
		postings, err = postingStore.ListByScope(ctx, postingsScope, true)
	} else {
		filter := domain.PostingFilter{
			Scope:            postingsScope,
			WorkplaceType:    postingsWorkplace,
			ExperienceLevel:  postingsExperience,
			EmploymentType:   postingsEmployment,
			RequireEmbedding: postingsWithEmbedding,
		}
		if err := resolvePostingEntities(ctx, &filter); err != nil {
			return err
		}
		postings, err = postingStore.QueryActive(ctx, filter)
	}
	if err != nil {
		return fmt.Errorf("listing postings: %w", err)
	}

	if postingsLimit > 0 && len(postings) > postingsLimit {
		postings = postings[:postingsLimit]
	}

	if postingsJSON {
		return outputPostingsJSON(cmd, postings)
	}
	return outputPostingsTable(cmd, postings)
}

func runPostingsShow(cmd *cobra.Command, args []string) error {
	if postingStore == nil {
		return errors.New("posting store not configured")
	}

	ctx := context.Background()

	var (
		posting *domain.Posting
		err     error
	)
	if strings.Contains(args[0], "://") {
		posting, err = postingStore.GetByURL(ctx, args[0])
	} else {
		posting, err = postingStore.GetByIdentity(ctx, args[0])
	}
	if err != nil {
		return fmt.Errorf("fetching posting: %w", err)
	}

	p := *posting
	cmd.Printf("Title: %s\n", p.Title)
	cmd.Printf("URL: %s\n", p.URL)
	cmd.Printf("Identity: %s\n", p.IdentityHash)
	cmd.Printf("Scope: %s\n", p.SourceScope)
	cmd.Printf("Company: %s%s\n", p.CompanyRaw, resolvedMark(p.CompanyID))
	cmd.Printf("Department: %s%s\n", p.DepartmentRaw, resolvedMark(p.DepartmentID))
	cmd.Printf("Location: %s%s\n", p.LocationRaw, resolvedMark(p.LocationID))
	if p.WorkplaceType != "" {
		cmd.Printf("Workplace: %s\n", p.WorkplaceType)
	}
	if p.ExperienceLevel != "" {
		cmd.Printf("Experience: %s\n", p.ExperienceLevel)
	}
	if p.EmploymentType != "" {
		cmd.Printf("Employment: %s\n", p.EmploymentType)
	}
	cmd.Printf("Seen: %s to %s\n",
		p.FirstSeenAt.Format("2006-01-02"), p.LastSeenAt.Format("2006-01-02"))
	if p.IsActive {
		cmd.Println("Status: active")
	} else {
		status := "deactivated"
		if p.DeactivatedAt != nil {
			status += " " + p.DeactivatedAt.Format("2006-01-02")
		}
		cmd.Printf("Status: %s\n", status)
	}
	if len(p.Embedding) > 0 {
		cmd.Printf("Embedding: %d dimensions\n", len(p.Embedding))
	} else {
		cmd.Println("Embedding: none")
	}
	if p.Description != "" {
		cmd.Println()
		cmd.Println(p.Description)
	}
	return nil
}

// resolvePostingEntities turns the raw-text entity flags into canonical
// ids via the catalog, mirroring what match does for its filter.
func resolvePostingEntities(ctx context.Context, filter *domain.PostingFilter) error {
	if postingsCompany == "" && postingsDepartment == "" && postingsLocation == "" {
		return nil
	}
	if catalogService == nil {
		return errors.New("catalog service not configured")
	}

	catalog, err := catalogService.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	if postingsCompany != "" {
		if filter.CompanyID, err = resolveFilterEntity(catalog, domain.KindCompany, postingsCompany); err != nil {
			return err
		}
	}
	if postingsDepartment != "" {
		if filter.DepartmentID, err = resolveFilterEntity(catalog, domain.KindDepartment, postingsDepartment); err != nil {
			return err
		}
	}
	if postingsLocation != "" {
		if filter.LocationID, err = resolveFilterEntity(catalog, domain.KindLocation, postingsLocation); err != nil {
			return err
		}
	}
	return nil
}

func resolvedMark(id *int64) string {
	if id == nil {
		return " (unresolved)"
	}
	return fmt.Sprintf(" [%d]", *id)
}

func outputPostingsJSON(cmd *cobra.Command, postings []domain.Posting) error {
	// The stored vector is noise in report output.
	out := make([]domain.Posting, len(postings))
	copy(out, postings)
	for i := range out {
		out[i].Embedding = nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal postings: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputPostingsTable(cmd *cobra.Command, postings []domain.Posting) error {
	if len(postings) == 0 {
		cmd.Println("No postings found.")
		return nil
	}

	cmd.Printf("Postings (%d):\n", len(postings))
	cmd.Println()
	for i := range postings {
		p := postings[i]
		marker := ""
		if !p.IsActive {
			marker = " [inactive]"
		}
		cmd.Printf("  %s%s\n", p.Title, marker)

		var parts []string
		if p.CompanyRaw != "" {
			parts = append(parts, p.CompanyRaw)
		}
		if p.LocationRaw != "" {
			parts = append(parts, p.LocationRaw)
		}
		if len(parts) > 0 {
			cmd.Printf("      %s\n", strings.Join(parts, ", "))
		}
		cmd.Printf("      %s\n", p.URL)
		cmd.Println()
	}
	return nil
}
