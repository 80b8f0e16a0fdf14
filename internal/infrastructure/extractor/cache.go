package extractor

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

const cacheSchemaFormat = 2

// CacheDirName is the directory under the data root that holds cached
// extractions.
const CacheDirName = "document_caches"

// DiskCache persists extractions under <dir>/<md5(absolute path)>.json.
// An entry is valid only while the recorded mtime and size still match
// the live source file; a stale entry is discarded on lookup.
type DiskCache struct {
	dir string
}

func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		dir = filepath.Join("./data", CacheDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Key hashes the absolute source path, not the file contents.
func Key(absPath string) string {
	sum := md5.Sum([]byte(absPath))
	return hex.EncodeToString(sum[:])
}

func (c *DiskCache) entryPath(absPath string) string {
	return filepath.Join(c.dir, Key(absPath)+".json")
}

// Get returns the cached extraction for absPath when the entry is still
// valid against info. Stale or corrupt entries are removed and reported
// as a miss.
func (c *DiskCache) Get(absPath string, info fs.FileInfo) (*domain.CacheEntry, bool) {
	raw, err := os.ReadFile(c.entryPath(absPath))
	if err != nil {
		return nil, false
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(c.entryPath(absPath))
		return nil, false
	}
	if entry.SchemaFormat != cacheSchemaFormat ||
		entry.SourceMTime != info.ModTime().UnixMilli() ||
		entry.SourceSize != info.Size() {
		_ = os.Remove(c.entryPath(absPath))
		return nil, false
	}
	return &entry, true
}

// Put persists one extraction. Callers treat failures as best-effort: a
// cache write error never fails the extraction that produced the content.
func (c *DiskCache) Put(absPath string, info fs.FileInfo, extraction domain.Extraction) error {
	entry := domain.CacheEntry{
		Content:      extraction.Content,
		Metadata:     extraction.Metadata,
		SourceMTime:  info.ModTime().UnixMilli(),
		SourceSize:   info.Size(),
		ExtractedAt:  time.Now().UTC(),
		SchemaFormat: cacheSchemaFormat,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	tmp := c.entryPath(absPath) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, c.entryPath(absPath)); err != nil {
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// Invalidate drops the entry for one source path. A missing entry is not
// an error.
func (c *DiskCache) Invalidate(absPath string) error {
	err := os.Remove(c.entryPath(absPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// Purge drops every stored entry.
func (c *DiskCache) Purge() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("list cache dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("remove cache entry %s: %w", e.Name(), err)
		}
	}
	return nil
}
