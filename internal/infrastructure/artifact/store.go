// Package artifact persists prepared document payloads (extracted text
// or rasterized pages) on the filesystem, one artifact per
// (review job, document) pair.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

const fileCacheDir = "file_cache"

type Store struct {
	basePath string
}

// New roots the store at <basePath>/review_cache.
func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data"
	}
	root := filepath.Join(basePath, "review_cache")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{basePath: root}, nil
}

// Save writes the payload and returns the cache path recorded in the
// document-cache row. Text mode produces <docID>.txt; image mode a
// directory of page_<n>.b64 files.
func (s *Store) Save(_ context.Context, reviewHistoryID, documentID string, mode domain.ProcessMode, payload domain.ArtifactPayload) (string, error) {
	dir := filepath.Join(s.basePath, reviewHistoryID, fileCacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create file cache dir: %w", err)
	}

	switch mode {
	case domain.ModeText:
		path := filepath.Join(dir, documentID+".txt")
		if err := os.WriteFile(path, []byte(payload.Text), 0o644); err != nil {
			return "", fmt.Errorf("write text artifact: %w", err)
		}
		return path, nil
	case domain.ModeImage:
		pageDir := filepath.Join(dir, documentID)
		if err := os.MkdirAll(pageDir, 0o755); err != nil {
			return "", fmt.Errorf("create page dir: %w", err)
		}
		for n, page := range payload.Pages {
			path := filepath.Join(pageDir, fmt.Sprintf("page_%d.b64", n))
			if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
				return "", fmt.Errorf("write page %d: %w", n, err)
			}
		}
		return pageDir, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "save artifact",
			fmt.Errorf("unknown process mode %q", mode))
	}
}

var pageFilePattern = regexp.MustCompile(`^page_(\d+)\.b64$`)

// Load reads the payload back. A missing or unreadable artifact is a
// cache-read error so callers can regenerate instead of failing hard.
func (s *Store) Load(_ context.Context, cachePath string, mode domain.ProcessMode) (domain.ArtifactPayload, error) {
	switch mode {
	case domain.ModeText:
		raw, err := os.ReadFile(cachePath)
		if err != nil {
			return domain.ArtifactPayload{}, domain.WrapError(domain.ErrCacheRead, "read text artifact", err)
		}
		return domain.ArtifactPayload{Text: string(raw)}, nil
	case domain.ModeImage:
		return s.loadPages(cachePath)
	default:
		return domain.ArtifactPayload{}, domain.WrapError(domain.ErrInvalidInput, "load artifact",
			fmt.Errorf("unknown process mode %q", mode))
	}
}

// loadPages reconstructs page order from the numeric index in each
// filename; directory listing order is lexical and puts page_10 before
// page_2.
func (s *Store) loadPages(dir string) (domain.ArtifactPayload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.ArtifactPayload{}, domain.WrapError(domain.ErrCacheRead, "list page dir", err)
	}

	type page struct {
		index int
		name  string
	}
	pages := make([]page, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{index: n, name: e.Name()})
	}
	if len(pages) == 0 {
		return domain.ArtifactPayload{}, domain.WrapError(domain.ErrCacheRead, "list page dir",
			fmt.Errorf("no page files in %s", dir))
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })

	payload := domain.ArtifactPayload{Pages: make([]string, 0, len(pages))}
	for _, p := range pages {
		raw, err := os.ReadFile(filepath.Join(dir, p.name))
		if err != nil {
			return domain.ArtifactPayload{}, domain.WrapError(domain.ErrCacheRead, "read "+p.name, err)
		}
		payload.Pages = append(payload.Pages, string(raw))
	}
	return payload, nil
}

// PurgeReview drops every artifact stored for one review job.
func (s *Store) PurgeReview(_ context.Context, reviewHistoryID string) error {
	if err := os.RemoveAll(filepath.Join(s.basePath, reviewHistoryID)); err != nil {
		return fmt.Errorf("purge review artifacts: %w", err)
	}
	return nil
}
