package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
)

// ProcessReviewUseCase runs one review job end to end: prepare the
// artifact, split text into chunks, review each (chunk, checklist) pair
// through the external agent, record the partial outcomes, and publish
// the completion event once the ledger shows every chunk present.
type ProcessReviewUseCase struct {
	preparer  *PrepareDocumentUseCase
	recorder  *RecordChunkUseCase
	finalizer *FinalizeReviewUseCase
	planner   ports.ChunkPlanner
	agent     ports.ReviewAgent
	logger    *slog.Logger
}

func NewProcessReviewUseCase(
	preparer *PrepareDocumentUseCase,
	recorder *RecordChunkUseCase,
	finalizer *FinalizeReviewUseCase,
	planner ports.ChunkPlanner,
	agent ports.ReviewAgent,
	logger *slog.Logger,
) *ProcessReviewUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessReviewUseCase{
		preparer:  preparer,
		recorder:  recorder,
		finalizer: finalizer,
		planner:   planner,
		agent:     agent,
		logger:    logger,
	}
}

// ProcessJob drives the pipeline and always publishes a terminal event:
// success, failed, or canceled. Cancellation leaves any partial chunk
// rows in place; nothing cleans them up.
func (uc *ProcessReviewUseCase) ProcessJob(ctx context.Context, job domain.ReviewJob) error {
	start := time.Now()
	err := uc.run(ctx, job)
	switch {
	case err == nil:
		uc.logger.Info("review job finished",
			"review_history_id", job.ReviewHistoryID,
			"document_id", job.DocumentID,
			"duration_ms", time.Since(start).Milliseconds())
		return uc.finalizer.Finalize(ctx, job.ReviewHistoryID, domain.ReviewSucceeded, "")
	case errors.Is(err, context.Canceled):
		// Publish on a fresh context; the job context is already dead.
		return uc.finalizer.Finalize(context.WithoutCancel(ctx), job.ReviewHistoryID, domain.ReviewCanceled, "")
	default:
		if finErr := uc.finalizer.Finalize(context.WithoutCancel(ctx), job.ReviewHistoryID, domain.ReviewFailed, err.Error()); finErr != nil {
			return fmt.Errorf("%w; publish failure event: %w", err, finErr)
		}
		return err
	}
}

func (uc *ProcessReviewUseCase) run(ctx context.Context, job domain.ReviewJob) error {
	cache, err := uc.preparer.Prepare(ctx, job)
	if err != nil {
		return fmt.Errorf("prepare document: %w", err)
	}

	payload, err := uc.preparer.Load(ctx, cache)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}

	requests := uc.planRequests(job, payload)
	for _, planned := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		comment, err := uc.agent.Review(ctx, planned.request)
		if err != nil {
			return fmt.Errorf("review chunk %d for checklist %s: %w",
				planned.chunkIndex, planned.request.ChecklistID, err)
		}
		result := &domain.ChunkResult{
			ReviewDocumentCacheID: cache.ID,
			ReviewChecklistID:     planned.request.ChecklistID,
			Comment:               comment,
			TotalChunks:           planned.totalChunks,
			ChunkIndex:            planned.chunkIndex,
			IndividualFileName:    planned.request.FileName,
		}
		if err := uc.recorder.Record(ctx, result); err != nil {
			return fmt.Errorf("record chunk result: %w", err)
		}
	}

	complete, err := uc.recorder.IsComplete(ctx, job.ReviewHistoryID, job.DocumentID)
	if err != nil {
		return fmt.Errorf("check completeness: %w", err)
	}
	if !complete {
		return fmt.Errorf("ledger incomplete after recording all chunks for document %s", job.DocumentID)
	}
	return nil
}

type plannedRequest struct {
	request     domain.ReviewRequest
	chunkIndex  int
	totalChunks int
}

// planRequests expands the job into (chunk, checklist) work units. Image
// mode is never split: the whole page set reviews as one chunk.
func (uc *ProcessReviewUseCase) planRequests(job domain.ReviewJob, payload domain.ArtifactPayload) []plannedRequest {
	if job.ProcessMode == domain.ModeImage {
		out := make([]plannedRequest, 0, len(job.ChecklistIDs))
		for _, checklistID := range job.ChecklistIDs {
			out = append(out, plannedRequest{
				request: domain.ReviewRequest{
					ChecklistID: checklistID,
					FileName:    job.FileName,
					Pages:       payload.Pages,
				},
				chunkIndex:  0,
				totalChunks: 1,
			})
		}
		return out
	}

	chunks := uc.planner.Split(payload.Text)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	out := make([]plannedRequest, 0, len(chunks)*len(job.ChecklistIDs))
	for i, chunk := range chunks {
		fileName := job.FileName
		if len(chunks) > 1 {
			fileName = fmt.Sprintf("%s_part%d", job.FileName, i)
		}
		for _, checklistID := range job.ChecklistIDs {
			out = append(out, plannedRequest{
				request: domain.ReviewRequest{
					ChecklistID: checklistID,
					FileName:    fileName,
					Text:        chunk,
				},
				chunkIndex:  i,
				totalChunks: len(chunks),
			})
		}
	}
	return out
}
