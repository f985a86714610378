package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService orchestrates one scrape batch into the posting store via
// the catalog. It is the only writer of posting rows and their
// normalised-id fields.
type IngestService struct {
	postings   driven.PostingStore
	scopes     driven.ScopeStore
	unresolved driven.UnresolvedStore
	catalog    *domain.Catalog
	log        *zap.Logger
}

// NewIngestService creates a new ingest service. The catalog is the
// immutable vocabulary for this run; curation changes are picked up by
// constructing a new service from a reloaded catalog.
func NewIngestService(
	postings driven.PostingStore,
	scopes driven.ScopeStore,
	unresolved driven.UnresolvedStore,
	catalog *domain.Catalog,
	log *zap.Logger,
) *IngestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestService{
		postings:   postings,
		scopes:     scopes,
		unresolved: unresolved,
		catalog:    catalog,
		log:        log,
	}
}

// IngestBatch processes one scrape batch for one source scope.
//
// Per record: validate, resolve company/department/location, compute
// identity, upsert. A failure on one record skips that record and
// continues; it never aborts the batch. Deactivation of postings missing
// from the batch runs only when the scraper declared the batch complete.
func (s *IngestService) IngestBatch(ctx context.Context, batch domain.ScrapeBatch) (*domain.IngestReport, error) {
	if s.postings == nil {
		return nil, fmt.Errorf("%w: posting store not configured", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(batch.Scope) == "" {
		return nil, fmt.Errorf("%w: batch scope is required", domain.ErrInvalidInput)
	}

	report := &domain.IngestReport{
		RunID:     uuid.NewString(),
		Scope:     batch.Scope,
		Complete:  batch.Complete,
		Received:  len(batch.Postings),
		StartedAt: time.Now().UTC(),
	}
	log := s.log.With(
		zap.String("run_id", report.RunID),
		zap.String("scope", batch.Scope),
	)
	log.Info("starting ingestion",
		zap.Int("postings", len(batch.Postings)),
		zap.Bool("complete", batch.Complete),
	)

	// 1. Resolve and upsert every record, collecting seen identities.
	seen := make([]string, 0, len(batch.Postings))
	seenSet := make(map[string]struct{}, len(batch.Postings))
	misses := make(map[string]domain.UnresolvedReference)

	for i := range batch.Postings {
		raw := &batch.Postings[i]

		if err := raw.Validate(); err != nil {
			report.Skipped = append(report.Skipped, domain.SkippedRecord{
				URL:    raw.URL,
				Title:  raw.Title,
				Reason: err.Error(),
			})
			log.Warn("skipping invalid record",
				zap.String("url", raw.URL),
				zap.String("title", raw.Title),
				zap.Error(err),
			)
			continue
		}

		posting := domain.Posting{
			IdentityHash:    domain.ComputeIdentity(raw.URL, raw.Title, raw.CompanyRaw),
			URL:             strings.TrimSpace(raw.URL),
			SourceScope:     batch.Scope,
			Title:           raw.Title,
			CompanyRaw:      raw.CompanyRaw,
			DepartmentRaw:   raw.DepartmentRaw,
			LocationRaw:     raw.LocationRaw,
			Description:     raw.Description,
			WorkplaceType:   raw.WorkplaceType,
			ExperienceLevel: raw.ExperienceLevel,
			EmploymentType:  raw.EmploymentType,
			CompanyID:       s.resolveField(domain.KindCompany, raw.CompanyRaw, misses),
			DepartmentID:    s.resolveField(domain.KindDepartment, raw.DepartmentRaw, misses),
			LocationID:      s.resolveField(domain.KindLocation, raw.LocationRaw, misses),
		}

		// The record was observed upstream: it counts as seen even if
		// its own write fails, so a transient store error cannot cause
		// a live posting to be deactivated.
		if _, dup := seenSet[posting.IdentityHash]; !dup {
			seenSet[posting.IdentityHash] = struct{}{}
			seen = append(seen, posting.IdentityHash)
		}

		result, err := s.postings.Upsert(ctx, posting, time.Now().UTC())
		if err != nil {
			report.Skipped = append(report.Skipped, domain.SkippedRecord{
				URL:    raw.URL,
				Title:  raw.Title,
				Reason: fmt.Sprintf("storing posting: %v", err),
			})
			log.Warn("storing posting failed",
				zap.String("url", raw.URL),
				zap.Error(err),
			)
			continue
		}

		if result == domain.UpsertCreated {
			report.Created++
		} else {
			report.Refreshed++
		}
	}

	// 2. Deactivate postings the page no longer lists. Only a complete
	// enumeration can prove absence; incomplete batches skip this step
	// entirely.
	var deactivateErr error
	if batch.Complete {
		n, err := s.postings.DeactivateMissing(ctx, batch.Scope, seen, time.Now().UTC())
		if err != nil {
			deactivateErr = fmt.Errorf("deactivating missing postings: %w", err)
			log.Error("deactivation failed", zap.Error(err))
		} else {
			report.Deactivated = n
			if n > 0 {
				log.Info("deactivated missing postings", zap.Int64("count", n))
			}
		}
	} else {
		log.Info("incomplete batch, deactivation skipped")
	}

	// 3. Persist the unresolved reference signal for curation. Losing
	// the signal is not batch-fatal.
	report.Unresolved = collectMisses(misses, time.Now().UTC())
	if len(report.Unresolved) > 0 && s.unresolved != nil {
		if err := s.unresolved.Record(ctx, report.Unresolved); err != nil {
			log.Warn("recording unresolved references failed", zap.Error(err))
		}
	}

	report.FinishedAt = time.Now().UTC()

	// 4. Record scope run state for operational visibility.
	if s.scopes != nil {
		state := domain.ScopeState{
			Scope:           batch.Scope,
			LastRunID:       report.RunID,
			LastIngestedAt:  report.FinishedAt,
			LastComplete:    batch.Complete,
			LastCreated:     report.Created,
			LastRefreshed:   report.Refreshed,
			LastDeactivated: report.Deactivated,
			LastSkipped:     len(report.Skipped),
		}
		if err := s.scopes.Record(ctx, state); err != nil {
			log.Warn("recording scope state failed", zap.Error(err))
		}
	}

	log.Info("ingestion complete",
		zap.Int("created", report.Created),
		zap.Int("refreshed", report.Refreshed),
		zap.Int64("deactivated", report.Deactivated),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("unresolved", len(report.Unresolved)),
	)

	return report, deactivateErr
}

// resolveField maps one raw reference to a canonical id. A miss on
// non-empty text is recorded as an unresolved observation; the catalog
// itself is never written.
func (s *IngestService) resolveField(
	kind domain.EntityKind,
	rawText string,
	misses map[string]domain.UnresolvedReference,
) *int64 {
	if strings.TrimSpace(rawText) == "" {
		return nil
	}
	if id, ok := s.catalog.Resolve(kind, rawText); ok {
		return &id
	}

	norm := domain.NormaliseReference(rawText)
	if norm == "" {
		return nil
	}
	// A modality term in a location field is not an unresolved place;
	// curation would refuse it anyway.
	if kind == domain.KindLocation && domain.IsWorkplaceModality(norm) {
		return nil
	}
	key := string(kind) + "\x00" + norm
	ref, ok := misses[key]
	if !ok {
		ref = domain.UnresolvedReference{Kind: kind, RawText: rawText, Normalised: norm}
	}
	ref.Occurrences++
	misses[key] = ref
	return nil
}

// collectMisses flattens the per-batch miss map into a report slice,
// stamping each reference with the batch observation time. Sorted by
// kind then normalised text so reports are stable across runs.
func collectMisses(misses map[string]domain.UnresolvedReference, observedAt time.Time) []domain.UnresolvedReference {
	if len(misses) == 0 {
		return nil
	}
	refs := make([]domain.UnresolvedReference, 0, len(misses))
	for _, ref := range misses {
		ref.FirstSeenAt = observedAt
		ref.LastSeenAt = observedAt
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Normalised < refs[j].Normalised
	})
	return refs
}
