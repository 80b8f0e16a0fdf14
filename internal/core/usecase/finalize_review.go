package usecase

import (
	"context"
	"fmt"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
)

// FinalizeReviewUseCase aggregates stored chunk comments for display and
// announces job completion on the notification channel. The published
// event is a hint: subscribers re-fetch authoritative state.
type FinalizeReviewUseCase struct {
	repo      ports.DocumentCacheRepository
	ledger    ports.ChunkResultStore
	publisher ports.EventPublisher
}

func NewFinalizeReviewUseCase(
	repo ports.DocumentCacheRepository,
	ledger ports.ChunkResultStore,
	publisher ports.EventPublisher,
) *FinalizeReviewUseCase {
	return &FinalizeReviewUseCase{repo: repo, ledger: ledger, publisher: publisher}
}

func (uc *FinalizeReviewUseCase) Finalize(ctx context.Context, reviewHistoryID string, status domain.ReviewStatus, errMessage string) error {
	switch status {
	case domain.ReviewSucceeded, domain.ReviewFailed, domain.ReviewCanceled:
	default:
		return domain.WrapError(domain.ErrInvalidInput, "finalize review",
			fmt.Errorf("unknown status %q", status))
	}

	uc.publisher.Publish(domain.ChannelReviewCompleted, domain.ReviewCompletion{
		ReviewHistoryID: reviewHistoryID,
		Status:          status,
		Error:           errMessage,
	})
	return nil
}

// Comments groups stored chunk rows by checklist item, keeping each
// comment's source-file provenance.
func (uc *FinalizeReviewUseCase) Comments(ctx context.Context, reviewHistoryID string) ([]domain.ChecklistComments, error) {
	results, err := uc.ledger.ListForReview(ctx, reviewHistoryID)
	if err != nil {
		return nil, fmt.Errorf("list chunk results: %w", err)
	}
	return domain.GroupByChecklist(results), nil
}

// Progress reports per-document chunk arrival for the polling backstop.
func (uc *FinalizeReviewUseCase) Progress(ctx context.Context, reviewHistoryID string) ([]domain.DocumentProgress, error) {
	caches, err := uc.repo.ListByReview(ctx, reviewHistoryID)
	if err != nil {
		return nil, fmt.Errorf("list document caches: %w", err)
	}

	out := make([]domain.DocumentProgress, 0, len(caches))
	for _, cache := range caches {
		declared, err := uc.ledger.MaxDeclaredTotal(ctx, cache.ID)
		if err != nil {
			return nil, fmt.Errorf("max declared total: %w", err)
		}
		if declared < 1 {
			declared = 1
		}
		count, err := uc.ledger.CountForDocument(ctx, cache.ID)
		if err != nil {
			return nil, fmt.Errorf("count chunk results: %w", err)
		}
		out = append(out, domain.DocumentProgress{
			DocumentID:  cache.DocumentID,
			StoredRows:  count,
			TotalChunks: declared,
			Complete:    count >= declared,
		})
	}
	return out, nil
}
