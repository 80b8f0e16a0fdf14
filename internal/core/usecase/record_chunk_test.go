package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
)

func seedDocumentCache(t *testing.T, repo *docRepoFake, reviewHistoryID, documentID string) *domain.DocumentCache {
	t.Helper()
	cache := &domain.DocumentCache{
		ID:              "cache-" + documentID,
		ReviewHistoryID: reviewHistoryID,
		DocumentID:      documentID,
		FileName:        documentID + ".txt",
		ProcessMode:     domain.ModeText,
		CachePath:       "mem://" + reviewHistoryID + "/" + documentID,
	}
	if err := repo.Create(context.Background(), cache); err != nil {
		t.Fatalf("seed document cache: %v", err)
	}
	return cache
}

func TestRecordRejectsMissingIdentifiers(t *testing.T) {
	uc := NewRecordChunkUseCase(newDocRepoFake(), newLedgerFake())

	err := uc.Record(context.Background(), &domain.ChunkResult{
		ReviewChecklistID: "cl-1",
		TotalChunks:       1,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRecordRejectsBadChunkNumbers(t *testing.T) {
	uc := NewRecordChunkUseCase(newDocRepoFake(), newLedgerFake())

	err := uc.Record(context.Background(), &domain.ChunkResult{
		ReviewDocumentCacheID: "cache-1",
		ReviewChecklistID:     "cl-1",
		TotalChunks:           0,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for totalChunks=0, got %v", err)
	}

	err = uc.Record(context.Background(), &domain.ChunkResult{
		ReviewDocumentCacheID: "cache-1",
		ReviewChecklistID:     "cl-1",
		TotalChunks:           2,
		ChunkIndex:            -1,
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for negative chunkIndex, got %v", err)
	}
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	ledger := newLedgerFake()
	uc := NewRecordChunkUseCase(newDocRepoFake(), ledger)

	result := &domain.ChunkResult{
		ReviewDocumentCacheID: "cache-1",
		ReviewChecklistID:     "cl-1",
		Comment:               "looks fine",
		TotalChunks:           2,
		ChunkIndex:            1,
	}
	if err := uc.Record(context.Background(), result); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(ledger.rows))
	}
	stored := ledger.rows[0]
	if stored.ID == "" {
		t.Fatal("expected generated id")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}
	if time.Since(stored.CreatedAt) > time.Minute {
		t.Fatalf("timestamp not recent: %v", stored.CreatedAt)
	}
}

func TestRecordAllowsDuplicateChunkRows(t *testing.T) {
	ledger := newLedgerFake()
	uc := NewRecordChunkUseCase(newDocRepoFake(), ledger)

	for i := 0; i < 2; i++ {
		err := uc.Record(context.Background(), &domain.ChunkResult{
			ReviewDocumentCacheID: "cache-1",
			ReviewChecklistID:     "cl-1",
			TotalChunks:           3,
			ChunkIndex:            0,
		})
		if err != nil {
			t.Fatalf("record attempt %d: %v", i, err)
		}
	}
	if len(ledger.rows) != 2 {
		t.Fatalf("expected both rows appended, got %d", len(ledger.rows))
	}
}

func TestMaxTotalChunksWithoutCacheRow(t *testing.T) {
	uc := NewRecordChunkUseCase(newDocRepoFake(), newLedgerFake())

	total, err := uc.MaxTotalChunks(context.Background(), "rh-1", "doc-1")
	if err != nil {
		t.Fatalf("max total chunks: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 for missing cache row, got %d", total)
	}
}

func TestMaxTotalChunksWithoutChunkRows(t *testing.T) {
	repo := newDocRepoFake()
	seedDocumentCache(t, repo, "rh-1", "doc-1")
	uc := NewRecordChunkUseCase(repo, newLedgerFake())

	total, err := uc.MaxTotalChunks(context.Background(), "rh-1", "doc-1")
	if err != nil {
		t.Fatalf("max total chunks: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 for empty ledger, got %d", total)
	}
}

func TestMaxTotalChunksUsesDeclaredTotal(t *testing.T) {
	repo := newDocRepoFake()
	cache := seedDocumentCache(t, repo, "rh-1", "doc-1")
	ledger := newLedgerFake()
	uc := NewRecordChunkUseCase(repo, ledger)

	for i := 0; i < 2; i++ {
		err := uc.Record(context.Background(), &domain.ChunkResult{
			ReviewDocumentCacheID: cache.ID,
			ReviewChecklistID:     "cl-1",
			TotalChunks:           3,
			ChunkIndex:            i,
		})
		if err != nil {
			t.Fatalf("record chunk %d: %v", i, err)
		}
	}

	total, err := uc.MaxTotalChunks(context.Background(), "rh-1", "doc-1")
	if err != nil {
		t.Fatalf("max total chunks: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected declared total 3, got %d", total)
	}
}

func TestIsComplete(t *testing.T) {
	repo := newDocRepoFake()
	cache := seedDocumentCache(t, repo, "rh-1", "doc-1")
	ledger := newLedgerFake()
	uc := NewRecordChunkUseCase(repo, ledger)

	// Arrival order does not matter; record the last chunk first.
	for _, index := range []int{2, 0, 1} {
		err := uc.Record(context.Background(), &domain.ChunkResult{
			ReviewDocumentCacheID: cache.ID,
			ReviewChecklistID:     "cl-1",
			TotalChunks:           3,
			ChunkIndex:            index,
		})
		if err != nil {
			t.Fatalf("record chunk %d: %v", index, err)
		}

		complete, err := uc.IsComplete(context.Background(), "rh-1", "doc-1")
		if err != nil {
			t.Fatalf("is complete after chunk %d: %v", index, err)
		}
		want := len(ledger.rows) == 3
		if complete != want {
			t.Fatalf("after %d rows: complete=%v, want %v", len(ledger.rows), complete, want)
		}
	}
}

func TestIsCompleteWithoutCacheRow(t *testing.T) {
	uc := NewRecordChunkUseCase(newDocRepoFake(), newLedgerFake())

	complete, err := uc.IsComplete(context.Background(), "rh-1", "doc-unknown")
	if err != nil {
		t.Fatalf("is complete: %v", err)
	}
	if complete {
		t.Fatal("expected incomplete for unknown document")
	}
}
