package extractor

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(Options{
		Cache:        newTestCache(t),
		Policy:       domain.DefaultNormalizePolicy(),
		CacheEnabled: true,
	})
}

func writeTestDocx(t *testing.T, dir, text string) string {
	t.Helper()
	path := writeZip(t, "doc.docx", map[string]string{
		"word/document.xml": docxBody(`<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`),
	})
	if dir != "" {
		dst := filepath.Join(dir, "doc.docx")
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read docx: %v", err)
		}
		if err := os.WriteFile(dst, raw, 0o644); err != nil {
			t.Fatalf("copy docx: %v", err)
		}
		return dst
	}
	return path
}

func TestExtractPlainTextNormalized(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello   world\r\nnext"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Content != "hello world\nnext" {
		t.Fatalf("Content = %q", got.Content)
	}
	if got.Metadata.FileType != "txt" || got.Metadata.Encoding != "utf-8" {
		t.Fatalf("Metadata = %+v", got.Metadata)
	}
}

func TestExtractServesCacheWithoutReinvokingStrategy(t *testing.T) {
	svc := newTestService(t)
	path := writeTestDocx(t, "", "cached content")

	first, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}

	// Clobber the file with unparseable bytes of identical length and
	// restore the mtime. The stat check still passes, so a second call
	// must come from the cache; re-running the docx strategy would fail.
	info, _ := os.Stat(path)
	raw, _ := os.ReadFile(path)
	for i := range raw {
		raw[i] = 'x'
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("clobber: %v", err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if second.Content != first.Content {
		t.Fatalf("cache returned %q, want %q", second.Content, first.Content)
	}
}

func TestExtractPlainTextIsCached(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("first body"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}

	// Rewrite the file with same-size content and restore the mtime;
	// a second call must serve the cached text, not re-read the source.
	info, _ := os.Stat(path)
	if err := os.WriteFile(path, []byte("other body"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if second.Content != first.Content {
		t.Fatalf("got %q, want cached %q", second.Content, first.Content)
	}
}

func TestExtractRedoesWorkAfterSourceChange(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	path := writeTestDocx(t, dir, "version one")

	first, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}

	// Rewriting the document changes mtime and size; the cached entry
	// must not be reused.
	time.Sleep(5 * time.Millisecond)
	path2 := writeTestDocx(t, dir, "version two with different size")
	if path2 != path {
		t.Fatalf("rewrite landed at %s", path2)
	}

	second, err := svc.Extract(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if second.Content == first.Content {
		t.Fatalf("stale cached content served after source change")
	}
	if second.Content != "version two with different size" {
		t.Fatalf("Content = %q", second.Content)
	}
}

func TestExtractDisableCacheSkipsWrites(t *testing.T) {
	cache := newTestCache(t)
	svc := New(Options{Cache: cache, Policy: domain.DefaultNormalizePolicy(), CacheEnabled: true})
	path := writeTestDocx(t, "", "no cache")

	_, err := svc.Extract(context.Background(), path, &domain.ExtractOptions{DisableCache: true})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	abs, _ := filepath.Abs(path)
	if _, statErr := os.Stat(cache.entryPath(abs)); !os.IsNotExist(statErr) {
		t.Fatalf("cache entry written despite DisableCache")
	}
}

func TestExtractNonexistentPathPreservesCause(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Extract(context.Background(), "/does/not/exist.pdf", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("filesystem cause not preserved: %v", err)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := svc.Extract(context.Background(), path, nil)
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractLegacyFormatWithoutConverter(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(t.TempDir(), "old.doc")
	if err := os.WriteFile(path, []byte("binary"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := svc.Extract(context.Background(), path, nil)
	if !domain.IsKind(err, domain.ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
}

func TestExtractConcurrentCallsShareResult(t *testing.T) {
	svc := newTestService(t)
	path := writeTestDocx(t, "", "shared work")

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			extraction, err := svc.Extract(context.Background(), path, nil)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = extraction.Content
		}(i)
	}
	wg.Wait()
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d saw %q, caller 0 saw %q", i, results[i], results[0])
		}
	}
}
