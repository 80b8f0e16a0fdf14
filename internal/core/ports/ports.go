package ports

import (
	"context"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

// DocumentCacheRepository persists the metadata rows for prepared
// documents. The payload itself lives in the ArtifactStore.
type DocumentCacheRepository interface {
	Create(ctx context.Context, cache *domain.DocumentCache) error
	GetByReviewAndDocument(ctx context.Context, reviewHistoryID, documentID string) (*domain.DocumentCache, error)
	ListByReview(ctx context.Context, reviewHistoryID string) ([]domain.DocumentCache, error)
	DeleteByReview(ctx context.Context, reviewHistoryID string) error
}

// ChunkResultStore is the append-only ledger of partial review outcomes.
type ChunkResultStore interface {
	Append(ctx context.Context, result *domain.ChunkResult) error
	ListForReview(ctx context.Context, reviewHistoryID string) ([]domain.ChunkResult, error)
	// MaxDeclaredTotal returns the largest totalChunks value observed
	// across stored chunk rows for a document cache, or 0 when none exist.
	MaxDeclaredTotal(ctx context.Context, reviewDocumentCacheID string) (int, error)
	CountForDocument(ctx context.Context, reviewDocumentCacheID string) (int, error)
}

// ArtifactStore durably stores the prepared payload of one document for
// one review job.
type ArtifactStore interface {
	Save(ctx context.Context, reviewHistoryID, documentID string, mode domain.ProcessMode, payload domain.ArtifactPayload) (string, error)
	Load(ctx context.Context, cachePath string, mode domain.ProcessMode) (domain.ArtifactPayload, error)
	PurgeReview(ctx context.Context, reviewHistoryID string) error
}

// TextExtractor turns a file path into normalized text.
type TextExtractor interface {
	Extract(ctx context.Context, path string, opts *domain.ExtractOptions) (domain.Extraction, error)
}

// Rasterizer renders a PDF into base64-encoded page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([]string, error)
}

// DocumentConverter converts office documents through an external
// application, keyed by source document type.
type DocumentConverter interface {
	// ToPDF converts the document at path to a PDF and returns the output
	// path. The caller owns cleanup of the returned file.
	ToPDF(ctx context.Context, path string) (string, error)
	// Probe reports whether the backing application is usable. Invoked
	// once at startup.
	Probe(ctx context.Context) error
}

// ChunkPlanner splits extracted text into independently reviewable chunks.
type ChunkPlanner interface {
	Split(text string) []string
}

// ReviewAgent evaluates one chunk against one checklist item. The agent's
// reasoning lives in an external service; this core only transports it.
type ReviewAgent interface {
	Review(ctx context.Context, req domain.ReviewRequest) (string, error)
}

// EventPublisher hands an event to every sink registered on its channel.
type EventPublisher interface {
	Publish(channel string, payload any)
}

// EventRelay forwards published events across the process boundary to one
// specific subscriber session.
type EventRelay interface {
	Subscribe(channel string) (string, error)
	Unsubscribe(channel, subID string)
	Close()
}

// ReviewJobQueue transports review job requests to the worker.
type ReviewJobQueue interface {
	PublishReviewRequested(ctx context.Context, job domain.ReviewJob) error
	SubscribeReviewRequested(ctx context.Context, handler func(context.Context, domain.ReviewJob) error) error
}
