package postgres

import (
	"context"
	"database/sql"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

// ChunkResultRepository is the append-only ledger of partial review
// outcomes. Rows are never updated in place; there is deliberately no
// uniqueness constraint on (document cache, checklist, chunk index), so a
// retried submission stores a second row and counts toward completeness.
type ChunkResultRepository struct {
	db *sql.DB
}

func NewChunkResultRepository(db *sql.DB) *ChunkResultRepository {
	return &ChunkResultRepository{db: db}
}

func (r *ChunkResultRepository) Append(ctx context.Context, result *domain.ChunkResult) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO review_largedocument_result_cache (
	id, review_document_cache_id, review_checklist_id, comment, total_chunks, chunk_index, individual_file_name, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		result.ID, result.ReviewDocumentCacheID, result.ReviewChecklistID, result.Comment,
		result.TotalChunks, result.ChunkIndex, result.IndividualFileName, result.CreatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrPersistence, "append chunk result", err)
	}
	return nil
}

func (r *ChunkResultRepository) ListForReview(ctx context.Context, reviewHistoryID string) ([]domain.ChunkResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.review_document_cache_id, c.review_checklist_id, c.comment, c.total_chunks, c.chunk_index, c.individual_file_name, c.created_at
FROM review_largedocument_result_cache c
JOIN review_document_cache d ON d.id = c.review_document_cache_id
WHERE d.review_history_id = $1
ORDER BY c.review_checklist_id, c.chunk_index, c.created_at
`, reviewHistoryID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "list chunk results", err)
	}
	defer rows.Close()

	var out []domain.ChunkResult
	for rows.Next() {
		var result domain.ChunkResult
		if err := rows.Scan(
			&result.ID, &result.ReviewDocumentCacheID, &result.ReviewChecklistID, &result.Comment,
			&result.TotalChunks, &result.ChunkIndex, &result.IndividualFileName, &result.CreatedAt,
		); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "scan chunk result", err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "iterate chunk results", err)
	}
	return out, nil
}

// MaxDeclaredTotal returns the largest self-declared totalChunks across
// stored rows for a document cache, or 0 when no rows exist yet.
func (r *ChunkResultRepository) MaxDeclaredTotal(ctx context.Context, reviewDocumentCacheID string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
SELECT MAX(total_chunks)
FROM review_largedocument_result_cache
WHERE review_document_cache_id = $1
`, reviewDocumentCacheID).Scan(&max)
	if err != nil {
		return 0, domain.WrapError(domain.ErrPersistence, "max declared total", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

func (r *ChunkResultRepository) CountForDocument(ctx context.Context, reviewDocumentCacheID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM review_largedocument_result_cache
WHERE review_document_cache_id = $1
`, reviewDocumentCacheID).Scan(&count)
	if err != nil {
		return 0, domain.WrapError(domain.ErrPersistence, "count chunk results", err)
	}
	return count, nil
}
