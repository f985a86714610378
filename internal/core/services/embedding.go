package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobdex-labs/jobdex-cli/internal/core/domain"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driven"
	"github.com/jobdex-labs/jobdex-cli/internal/core/ports/driving"
)

// Ensure EmbeddingService implements the interface.
var _ driving.EmbeddingApplier = (*EmbeddingService)(nil)

// EmbeddingService bridges postings to an external embedding step.
// Backlog exports the texts still missing a vector, Apply stores the
// vectors computed elsewhere. Vector computation itself lives outside
// this process.
type EmbeddingService struct {
	postings   driven.PostingStore
	dimensions int
	log        *zap.Logger
}

// NewEmbeddingService creates a new embedding service. dimensions is
// the expected vector width, or 0 to accept any.
func NewEmbeddingService(postings driven.PostingStore, dimensions int, log *zap.Logger) *EmbeddingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmbeddingService{
		postings:   postings,
		dimensions: dimensions,
		log:        log,
	}
}

// Backlog returns embedding tasks for active postings without a vector.
func (s *EmbeddingService) Backlog(ctx context.Context, limit int) ([]domain.EmbeddingTask, error) {
	if s.postings == nil {
		return nil, fmt.Errorf("%w: posting store not configured", domain.ErrInvalidInput)
	}

	postings, err := s.postings.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing postings without embeddings: %w", err)
	}

	tasks := make([]domain.EmbeddingTask, 0, len(postings))
	for _, p := range postings {
		tasks = append(tasks, domain.EmbeddingTask{
			IdentityHash: p.IdentityHash,
			Text:         p.EmbeddingText(),
		})
	}
	return tasks, nil
}

// Apply stores computed vectors against their postings. A bad update
// is skipped and reported, the rest still land.
func (s *EmbeddingService) Apply(ctx context.Context, updates []domain.EmbeddingUpdate) (*domain.EmbeddingReport, error) {
	if s.postings == nil {
		return nil, fmt.Errorf("%w: posting store not configured", domain.ErrInvalidInput)
	}

	report := &domain.EmbeddingReport{}
	for _, update := range updates {
		if update.IdentityHash == "" {
			report.Skipped = append(report.Skipped, domain.SkippedRecord{
				Reason: "identity hash is required",
			})
			continue
		}
		if len(update.Vector) == 0 {
			report.Skipped = append(report.Skipped, domain.SkippedRecord{
				Title:  update.IdentityHash,
				Reason: "vector is empty",
			})
			continue
		}
		if s.dimensions > 0 && len(update.Vector) != s.dimensions {
			report.Skipped = append(report.Skipped, domain.SkippedRecord{
				Title:  update.IdentityHash,
				Reason: fmt.Sprintf("vector has %d dimensions, expected %d", len(update.Vector), s.dimensions),
			})
			continue
		}

		if err := s.postings.SetEmbedding(ctx, update.IdentityHash, update.Vector); err != nil {
			report.Skipped = append(report.Skipped, domain.SkippedRecord{
				Title:  update.IdentityHash,
				Reason: err.Error(),
			})
			s.log.Warn("storing embedding failed",
				zap.String("identity_hash", update.IdentityHash),
				zap.Error(err),
			)
			continue
		}
		report.Applied++
	}

	s.log.Info("embeddings applied",
		zap.Int("applied", report.Applied),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}
