package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

type docRepoFake struct {
	rows      map[string]*domain.DocumentCache
	createErr error
}

func newDocRepoFake() *docRepoFake {
	return &docRepoFake{rows: make(map[string]*domain.DocumentCache)}
}

func docKey(reviewHistoryID, documentID string) string {
	return reviewHistoryID + "|" + documentID
}

func (f *docRepoFake) Create(_ context.Context, cache *domain.DocumentCache) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *cache
	f.rows[docKey(cache.ReviewHistoryID, cache.DocumentID)] = &copied
	return nil
}

func (f *docRepoFake) GetByReviewAndDocument(_ context.Context, reviewHistoryID, documentID string) (*domain.DocumentCache, error) {
	cache, ok := f.rows[docKey(reviewHistoryID, documentID)]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document cache",
			fmt.Errorf("review=%s document=%s", reviewHistoryID, documentID))
	}
	copied := *cache
	return &copied, nil
}

func (f *docRepoFake) ListByReview(_ context.Context, reviewHistoryID string) ([]domain.DocumentCache, error) {
	var out []domain.DocumentCache
	for _, cache := range f.rows {
		if cache.ReviewHistoryID == reviewHistoryID {
			out = append(out, *cache)
		}
	}
	return out, nil
}

func (f *docRepoFake) DeleteByReview(_ context.Context, reviewHistoryID string) error {
	for key, cache := range f.rows {
		if cache.ReviewHistoryID == reviewHistoryID {
			delete(f.rows, key)
		}
	}
	return nil
}

type ledgerFake struct {
	rows      []domain.ChunkResult
	reviewOf  map[string]string // document cache id -> review history id
	appendErr error
}

func newLedgerFake() *ledgerFake {
	return &ledgerFake{reviewOf: make(map[string]string)}
}

func (f *ledgerFake) Append(_ context.Context, result *domain.ChunkResult) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, *result)
	return nil
}

func (f *ledgerFake) ListForReview(_ context.Context, reviewHistoryID string) ([]domain.ChunkResult, error) {
	var out []domain.ChunkResult
	for _, row := range f.rows {
		if f.reviewOf[row.ReviewDocumentCacheID] == reviewHistoryID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *ledgerFake) MaxDeclaredTotal(_ context.Context, reviewDocumentCacheID string) (int, error) {
	max := 0
	for _, row := range f.rows {
		if row.ReviewDocumentCacheID == reviewDocumentCacheID && row.TotalChunks > max {
			max = row.TotalChunks
		}
	}
	return max, nil
}

func (f *ledgerFake) CountForDocument(_ context.Context, reviewDocumentCacheID string) (int, error) {
	count := 0
	for _, row := range f.rows {
		if row.ReviewDocumentCacheID == reviewDocumentCacheID {
			count++
		}
	}
	return count, nil
}

type artifactFake struct {
	saved   map[string]domain.ArtifactPayload
	saveErr error
	loadErr error
}

func newArtifactFake() *artifactFake {
	return &artifactFake{saved: make(map[string]domain.ArtifactPayload)}
}

func (f *artifactFake) Save(_ context.Context, reviewHistoryID, documentID string, _ domain.ProcessMode, payload domain.ArtifactPayload) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	path := "mem://" + reviewHistoryID + "/" + documentID
	f.saved[path] = payload
	return path, nil
}

func (f *artifactFake) Load(_ context.Context, cachePath string, _ domain.ProcessMode) (domain.ArtifactPayload, error) {
	if f.loadErr != nil {
		return domain.ArtifactPayload{}, f.loadErr
	}
	payload, ok := f.saved[cachePath]
	if !ok {
		return domain.ArtifactPayload{}, domain.WrapError(domain.ErrCacheRead, "load artifact",
			fmt.Errorf("missing %s", cachePath))
	}
	return payload, nil
}

func (f *artifactFake) PurgeReview(_ context.Context, reviewHistoryID string) error {
	for path := range f.saved {
		if strings.HasPrefix(path, "mem://"+reviewHistoryID+"/") {
			delete(f.saved, path)
		}
	}
	return nil
}

type extractorFake struct {
	content string
	err     error
	calls   int
}

func (f *extractorFake) Extract(_ context.Context, path string, _ *domain.ExtractOptions) (domain.Extraction, error) {
	f.calls++
	if f.err != nil {
		return domain.Extraction{}, f.err
	}
	return domain.Extraction{
		Content:  f.content,
		Metadata: domain.ExtractionMetadata{Path: path, FileType: "txt", Encoding: "utf-8"},
	}, nil
}

type rasterizerFake struct {
	pages []string
	err   error
	paths []string
}

func (f *rasterizerFake) Rasterize(_ context.Context, path string) ([]string, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type converterFake struct {
	out   string
	err   error
	calls int
}

func (f *converterFake) ToPDF(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func (f *converterFake) Probe(context.Context) error { return nil }

type plannerFake struct {
	chunks []string
}

func (f *plannerFake) Split(text string) []string {
	if f.chunks != nil {
		return f.chunks
	}
	if text == "" {
		return nil
	}
	return []string{text}
}

type agentFake struct {
	err      error
	requests []domain.ReviewRequest
}

func (f *agentFake) Review(_ context.Context, req domain.ReviewRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "comment on " + req.FileName + " for " + req.ChecklistID, nil
}

type publisherFake struct {
	channels []string
	payloads []any
}

func (f *publisherFake) Publish(channel string, payload any) {
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, payload)
}

var errBoom = errors.New("boom")
