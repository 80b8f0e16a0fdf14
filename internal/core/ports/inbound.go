package ports

import (
	"context"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

// DocumentPreparer extracts or rasterizes a source document and persists
// the artifact for a review job.
type DocumentPreparer interface {
	Prepare(ctx context.Context, job domain.ReviewJob) (*domain.DocumentCache, error)
}

// ChunkRecorder appends partial review outcomes and answers completeness
// questions about a document's chunks.
type ChunkRecorder interface {
	Record(ctx context.Context, result *domain.ChunkResult) error
	MaxTotalChunks(ctx context.Context, reviewHistoryID, documentID string) (int, error)
	IsComplete(ctx context.Context, reviewHistoryID, documentID string) (bool, error)
}

// ReviewFinalizer aggregates stored chunk comments and announces job
// completion to observers.
type ReviewFinalizer interface {
	Finalize(ctx context.Context, reviewHistoryID string, status domain.ReviewStatus, errMessage string) error
	Comments(ctx context.Context, reviewHistoryID string) ([]domain.ChecklistComments, error)
	Progress(ctx context.Context, reviewHistoryID string) ([]domain.DocumentProgress, error)
}
