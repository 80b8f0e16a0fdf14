package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
)

// RecordChunkUseCase records partial review outcomes and answers the
// completeness questions callers poll with. Completion is never asserted
// by the ledger itself: callers compare stored row counts against the
// self-declared chunk total.
type RecordChunkUseCase struct {
	repo   ports.DocumentCacheRepository
	ledger ports.ChunkResultStore
}

func NewRecordChunkUseCase(repo ports.DocumentCacheRepository, ledger ports.ChunkResultStore) *RecordChunkUseCase {
	return &RecordChunkUseCase{repo: repo, ledger: ledger}
}

func (uc *RecordChunkUseCase) Record(ctx context.Context, result *domain.ChunkResult) error {
	if result.ReviewDocumentCacheID == "" || result.ReviewChecklistID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record chunk result",
			errors.New("document cache id and checklist id are required"))
	}
	if result.TotalChunks < 1 {
		return domain.WrapError(domain.ErrInvalidInput, "record chunk result",
			fmt.Errorf("totalChunks must be >= 1, got %d", result.TotalChunks))
	}
	if result.ChunkIndex < 0 {
		return domain.WrapError(domain.ErrInvalidInput, "record chunk result",
			fmt.Errorf("chunkIndex must be >= 0, got %d", result.ChunkIndex))
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	return uc.ledger.Append(ctx, result)
}

// MaxTotalChunks resolves the expected chunk count for one document.
// No document-cache row means the document was never split: 1. A row
// with no chunk results yet also reports 1. Otherwise the maximum
// totalChunks observed across stored rows wins.
func (uc *RecordChunkUseCase) MaxTotalChunks(ctx context.Context, reviewHistoryID, documentID string) (int, error) {
	cache, err := uc.repo.GetByReviewAndDocument(ctx, reviewHistoryID, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return 1, nil
		}
		return 0, err
	}

	declared, err := uc.ledger.MaxDeclaredTotal(ctx, cache.ID)
	if err != nil {
		return 0, err
	}
	if declared < 1 {
		return 1, nil
	}
	return declared, nil
}

// IsComplete compares the stored row count against MaxTotalChunks.
func (uc *RecordChunkUseCase) IsComplete(ctx context.Context, reviewHistoryID, documentID string) (bool, error) {
	cache, err := uc.repo.GetByReviewAndDocument(ctx, reviewHistoryID, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	total, err := uc.MaxTotalChunks(ctx, reviewHistoryID, documentID)
	if err != nil {
		return false, err
	}
	count, err := uc.ledger.CountForDocument(ctx, cache.ID)
	if err != nil {
		return false, err
	}
	return count >= total, nil
}
