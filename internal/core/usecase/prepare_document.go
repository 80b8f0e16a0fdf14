package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
)

// PrepareDocumentUseCase turns a source document into a persisted review
// artifact: normalized text in text mode, rasterized pages in image mode.
type PrepareDocumentUseCase struct {
	repo       ports.DocumentCacheRepository
	artifacts  ports.ArtifactStore
	extractor  ports.TextExtractor
	rasterizer ports.Rasterizer
	converter  ports.DocumentConverter
}

func NewPrepareDocumentUseCase(
	repo ports.DocumentCacheRepository,
	artifacts ports.ArtifactStore,
	extractor ports.TextExtractor,
	rasterizer ports.Rasterizer,
	converter ports.DocumentConverter,
) *PrepareDocumentUseCase {
	return &PrepareDocumentUseCase{
		repo:       repo,
		artifacts:  artifacts,
		extractor:  extractor,
		rasterizer: rasterizer,
		converter:  converter,
	}
}

func (uc *PrepareDocumentUseCase) Prepare(ctx context.Context, job domain.ReviewJob) (*domain.DocumentCache, error) {
	payload, err := uc.buildPayload(ctx, job)
	if err != nil {
		return nil, err
	}

	cachePath, err := uc.artifacts.Save(ctx, job.ReviewHistoryID, job.DocumentID, job.ProcessMode, payload)
	if err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	now := time.Now().UTC()
	cache := &domain.DocumentCache{
		ID:              uuid.NewString(),
		ReviewHistoryID: job.ReviewHistoryID,
		DocumentID:      job.DocumentID,
		FileName:        job.FileName,
		ProcessMode:     job.ProcessMode,
		CachePath:       cachePath,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.repo.Create(ctx, cache); err != nil {
		return nil, fmt.Errorf("create document cache row: %w", err)
	}
	return cache, nil
}

func (uc *PrepareDocumentUseCase) buildPayload(ctx context.Context, job domain.ReviewJob) (domain.ArtifactPayload, error) {
	switch job.ProcessMode {
	case domain.ModeText:
		extraction, err := uc.extractor.Extract(ctx, job.SourcePath, nil)
		if err != nil {
			return domain.ArtifactPayload{}, fmt.Errorf("extract text: %w", err)
		}
		return domain.ArtifactPayload{Text: extraction.Content}, nil
	case domain.ModeImage:
		pages, err := uc.rasterizePages(ctx, job.SourcePath)
		if err != nil {
			return domain.ArtifactPayload{}, err
		}
		return domain.ArtifactPayload{Pages: pages}, nil
	default:
		return domain.ArtifactPayload{}, domain.WrapError(domain.ErrInvalidInput, "prepare document",
			fmt.Errorf("unknown process mode %q", job.ProcessMode))
	}
}

// rasterizePages renders the document to page images. Office documents
// are converted to PDF first.
func (uc *PrepareDocumentUseCase) rasterizePages(ctx context.Context, sourcePath string) ([]string, error) {
	pdfPath := sourcePath
	if needsPDFConversion(sourcePath) {
		if uc.converter == nil {
			return nil, domain.WrapError(domain.ErrConversion, "rasterize document",
				fmt.Errorf("no converter configured for %s", filepath.Ext(sourcePath)))
		}
		converted, err := uc.converter.ToPDF(ctx, sourcePath)
		if err != nil {
			return nil, fmt.Errorf("convert to pdf: %w", err)
		}
		defer os.Remove(converted)
		pdfPath = converted
	}

	pages, err := uc.rasterizer.Rasterize(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("rasterize pdf: %w", err)
	}
	return pages, nil
}

// Load reads a prepared payload back. A cache-read failure is surfaced
// as-is: a metadata row without a readable artifact is an inconsistency
// the caller must decide about, not something to paper over.
func (uc *PrepareDocumentUseCase) Load(ctx context.Context, cache *domain.DocumentCache) (domain.ArtifactPayload, error) {
	return uc.artifacts.Load(ctx, cache.CachePath, cache.ProcessMode)
}

func needsPDFConversion(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return false
	default:
		return true
	}
}
