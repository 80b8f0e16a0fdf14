package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

type DocumentCacheRepository struct {
	db *sql.DB
}

func NewDocumentCacheRepository(db *sql.DB) *DocumentCacheRepository {
	return &DocumentCacheRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentCacheRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS review_document_cache (
	id TEXT PRIMARY KEY,
	review_history_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	process_mode TEXT NOT NULL,
	cache_path TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (review_history_id, document_id)
);

CREATE TABLE IF NOT EXISTS review_largedocument_result_cache (
	id TEXT PRIMARY KEY,
	review_document_cache_id TEXT NOT NULL REFERENCES review_document_cache(id),
	review_checklist_id TEXT NOT NULL,
	comment TEXT NOT NULL,
	total_chunks INTEGER NOT NULL,
	chunk_index INTEGER NOT NULL,
	individual_file_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_document_cache_review
	ON review_document_cache(review_history_id);
CREATE INDEX IF NOT EXISTS idx_largedocument_result_doc
	ON review_largedocument_result_cache(review_document_cache_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentCacheRepository) Create(ctx context.Context, cache *domain.DocumentCache) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO review_document_cache (
	id, review_history_id, document_id, file_name, process_mode, cache_path, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (review_history_id, document_id) DO UPDATE SET
	file_name = EXCLUDED.file_name,
	process_mode = EXCLUDED.process_mode,
	cache_path = EXCLUDED.cache_path,
	updated_at = EXCLUDED.updated_at
`,
		cache.ID, cache.ReviewHistoryID, cache.DocumentID, cache.FileName,
		string(cache.ProcessMode), cache.CachePath, cache.CreatedAt, cache.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, "insert document cache", err)
	}
	return nil
}

func (r *DocumentCacheRepository) GetByReviewAndDocument(ctx context.Context, reviewHistoryID, documentID string) (*domain.DocumentCache, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, review_history_id, document_id, file_name, process_mode, cache_path, created_at, updated_at
FROM review_document_cache
WHERE review_history_id = $1 AND document_id = $2
`, reviewHistoryID, documentID)

	cache, err := scanDocumentCache(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document cache",
				fmt.Errorf("review=%s document=%s", reviewHistoryID, documentID))
		}
		return nil, domain.WrapError(domain.ErrPersistence, "get document cache", err)
	}
	return cache, nil
}

func (r *DocumentCacheRepository) ListByReview(ctx context.Context, reviewHistoryID string) ([]domain.DocumentCache, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, review_history_id, document_id, file_name, process_mode, cache_path, created_at, updated_at
FROM review_document_cache
WHERE review_history_id = $1
ORDER BY created_at
`, reviewHistoryID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "list document caches", err)
	}
	defer rows.Close()

	var out []domain.DocumentCache
	for rows.Next() {
		cache, err := scanDocumentCache(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "scan document cache", err)
		}
		out = append(out, *cache)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "iterate document caches", err)
	}
	return out, nil
}

func (r *DocumentCacheRepository) DeleteByReview(ctx context.Context, reviewHistoryID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, "begin delete tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM review_largedocument_result_cache
WHERE review_document_cache_id IN (
	SELECT id FROM review_document_cache WHERE review_history_id = $1
)
`, reviewHistoryID); err != nil {
		return domain.WrapError(domain.ErrPersistence, "delete chunk rows", err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM review_document_cache WHERE review_history_id = $1
`, reviewHistoryID); err != nil {
		return domain.WrapError(domain.ErrPersistence, "delete document caches", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrPersistence, "commit delete tx", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocumentCache(row rowScanner) (*domain.DocumentCache, error) {
	var cache domain.DocumentCache
	var mode string
	err := row.Scan(
		&cache.ID, &cache.ReviewHistoryID, &cache.DocumentID, &cache.FileName,
		&mode, &cache.CachePath, &cache.CreatedAt, &cache.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cache.ProcessMode = domain.ProcessMode(mode)
	return &cache, nil
}
