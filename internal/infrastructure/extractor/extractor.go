// Package extractor turns heterogeneous source documents into normalized
// text, backed by a metadata-validated on-disk cache.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
)

type Service struct {
	cache        *DiskCache
	converter    ports.DocumentConverter
	policy       domain.NormalizePolicy
	cacheEnabled bool
	logger       *slog.Logger

	group singleflight.Group
}

type Options struct {
	Cache        *DiskCache
	Converter    ports.DocumentConverter
	Policy       domain.NormalizePolicy
	CacheEnabled bool
	Logger       *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:        opts.Cache,
		converter:    opts.Converter,
		policy:       opts.Policy,
		cacheEnabled: opts.CacheEnabled && opts.Cache != nil,
		logger:       logger,
	}
}

var plainTextExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".log": true,
}

var legacyOfficeExts = map[string]bool{
	".doc": true, ".xls": true, ".ppt": true,
}

// cacheable reports whether extractions of this type are persisted. Plain
// text is included: the read itself is cheap but normalization is not free,
// and a cached entry keeps repeated reviews of the same file from touching
// the source at all.
func cacheable(ext string) bool {
	switch ext {
	case ".pdf", ".docx", ".pptx", ".xlsx":
		return true
	}
	return plainTextExts[ext] || legacyOfficeExts[ext]
}

// Extract returns the normalized text of the file at path. Concurrent
// calls for the same uncached file share a single extraction.
func (s *Service) Extract(ctx context.Context, path string, opts *domain.ExtractOptions) (domain.Extraction, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "resolve path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "stat source file", err)
	}

	policy := s.policy
	useCache := s.cacheEnabled
	if opts != nil {
		if opts.Normalize != nil {
			policy = *opts.Normalize
		}
		if opts.DisableCache {
			useCache = false
		}
	}
	ext := strings.ToLower(filepath.Ext(abs))
	useCache = useCache && cacheable(ext)

	if useCache {
		if entry, ok := s.cache.Get(abs, info); ok {
			return domain.Extraction{Content: entry.Content, Metadata: entry.Metadata}, nil
		}
	}

	v, err, _ := s.group.Do(Key(abs), func() (any, error) {
		return s.extractFresh(ctx, abs, ext, info, policy, useCache)
	})
	if err != nil {
		return domain.Extraction{}, err
	}
	return v.(domain.Extraction), nil
}

func (s *Service) extractFresh(
	ctx context.Context,
	abs, ext string,
	info fs.FileInfo,
	policy domain.NormalizePolicy,
	writeCache bool,
) (domain.Extraction, error) {
	raw, err := s.extractRaw(ctx, abs, ext)
	if err != nil {
		if domain.IsKind(err, domain.ErrConversion) {
			return domain.Extraction{}, err
		}
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "extract "+ext, err)
	}

	extraction := domain.Extraction{
		Content: Normalize(raw, policy),
		Metadata: domain.ExtractionMetadata{
			FileType: strings.TrimPrefix(ext, "."),
			Size:     info.Size(),
			Path:     abs,
			Encoding: "utf-8",
		},
	}

	if writeCache {
		if err := s.cache.Put(abs, info, extraction); err != nil {
			// Best effort: losing a cache write only costs a re-extraction.
			s.logger.Warn("extraction cache write failed", "path", abs, "error", err)
		}
	}
	return extraction, nil
}

func (s *Service) extractRaw(ctx context.Context, abs, ext string) (string, error) {
	switch {
	case plainTextExts[ext]:
		return readPlainText(abs)
	case ext == ".pdf":
		return extractPDF(abs)
	case ext == ".docx":
		return extractDocx(abs)
	case ext == ".pptx":
		return extractPptx(abs)
	case ext == ".xlsx":
		return extractXlsx(abs)
	case legacyOfficeExts[ext]:
		return s.extractViaConversion(ctx, abs)
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}

// extractViaConversion handles the legacy binary office formats by
// converting them to PDF through the external application first.
func (s *Service) extractViaConversion(ctx context.Context, abs string) (string, error) {
	if s.converter == nil {
		return "", domain.WrapError(domain.ErrConversion, "convert "+abs,
			errors.New("no document converter configured"))
	}
	pdfPath, err := s.converter.ToPDF(ctx, abs)
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(pdfPath); rmErr != nil {
			s.logger.Warn("remove converted file failed", "path", pdfPath, "error", rmErr)
		}
	}()
	return extractPDF(pdfPath)
}

// Invalidate drops the cache entry for one source path.
func (s *Service) Invalidate(path string) error {
	if s.cache == nil {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return s.cache.Invalidate(abs)
}

func readPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid UTF-8")
	}
	return string(raw), nil
}
