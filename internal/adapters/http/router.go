package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/usecase"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/notify"
	"github.com/shuyossy/ai-notebook-sub000/internal/observability/metrics"
)

// maxWaitDuration bounds one long-poll request; clients re-issue the wait
// until the review resolves.
const maxWaitDuration = 60 * time.Second

type Router struct {
	finalizerUC *usecase.FinalizeReviewUseCase
	queue       ports.ReviewJobQueue
	relay       ports.EventRelay
	broker      *notify.Broker
	poller      *notify.Poller
	metrics     *metrics.HTTPServerMetrics
}

func NewRouter(
	finalizerUC *usecase.FinalizeReviewUseCase,
	queue ports.ReviewJobQueue,
	relay ports.EventRelay,
	broker *notify.Broker,
	poller *notify.Poller,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		finalizerUC: finalizerUC,
		queue:       queue,
		relay:       relay,
		broker:      broker,
		poller:      poller,
		metrics:     m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/reviews", rt.submitReview)
	mux.HandleFunc("/v1/reviews/", rt.reviewSubresource)
	mux.HandleFunc("/v1/notifications/subscribe", rt.subscribe)
	mux.HandleFunc("/v1/notifications/unsubscribe", rt.unsubscribe)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware("api", mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitReviewRequest struct {
	ReviewHistoryID string              `json:"review_history_id"`
	ChecklistIDs    []string            `json:"checklist_ids"`
	Documents       []submittedDocument `json:"documents"`
}

type submittedDocument struct {
	DocumentID  string `json:"document_id"`
	FileName    string `json:"file_name"`
	SourcePath  string `json:"source_path"`
	ProcessMode string `json:"process_mode"`
}

// submitReview fans one request out into one queued job per document.
// Each document reviews independently; its completion event carries the
// shared review history id.
func (rt *Router) submitReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.ReviewHistoryID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "review_history_id is required"})
		return
	}
	if len(req.ChecklistIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "checklist_ids must not be empty"})
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "documents must not be empty"})
		return
	}

	jobs := make([]domain.ReviewJob, 0, len(req.Documents))
	for _, doc := range req.Documents {
		mode := domain.ProcessMode(doc.ProcessMode)
		if mode != domain.ModeText && mode != domain.ModeImage {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "process_mode must be \"text\" or \"image\"",
			})
			return
		}
		if doc.DocumentID == "" || doc.SourcePath == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "document_id and source_path are required",
			})
			return
		}
		jobs = append(jobs, domain.ReviewJob{
			ReviewHistoryID: req.ReviewHistoryID,
			DocumentID:      doc.DocumentID,
			FileName:        doc.FileName,
			SourcePath:      doc.SourcePath,
			ProcessMode:     mode,
			ChecklistIDs:    req.ChecklistIDs,
			SubmittedAt:     time.Now().UTC(),
		})
	}

	for _, job := range jobs {
		if err := rt.queue.PublishReviewRequested(r.Context(), job); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"review_history_id": req.ReviewHistoryID,
		"queued_documents":  len(jobs),
	})
}

func (rt *Router) reviewSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/reviews/")
	reviewHistoryID, resource, _ := strings.Cut(rest, "/")
	if reviewHistoryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "review history id is required"})
		return
	}

	switch resource {
	case "comments":
		rt.reviewComments(w, r, reviewHistoryID)
	case "progress":
		rt.reviewProgress(w, r, reviewHistoryID)
	case "wait":
		rt.waitForReview(w, r, reviewHistoryID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

// waitForReview long-polls one review to completion. The in-process push
// event resolves failed and canceled jobs immediately; the poller
// backstop resolves successful jobs even when the push was dropped.
func (rt *Router) waitForReview(w http.ResponseWriter, r *http.Request, reviewHistoryID string) {
	if rt.broker == nil || rt.poller == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "waiting is not enabled"})
		return
	}

	var lastPush atomic.Pointer[domain.ReviewCompletion]
	push := make(chan domain.PushEvent, 1)
	detach := rt.broker.Attach(domain.ChannelReviewCompleted, notify.SinkFunc(func(event domain.PushEvent) error {
		completion, ok := event.Payload.(domain.ReviewCompletion)
		if !ok || completion.ReviewHistoryID != reviewHistoryID {
			return nil
		}
		lastPush.Store(&completion)
		select {
		case push <- event:
		default:
		}
		return nil
	}))
	defer detach()

	// A failed or canceled job never completes in the store, so the fetch
	// only ever resolves success.
	fetch := func(ctx context.Context) (domain.ReviewCompletion, bool, error) {
		progress, err := rt.finalizerUC.Progress(ctx, reviewHistoryID)
		if err != nil {
			return domain.ReviewCompletion{}, false, err
		}
		if len(progress) == 0 {
			return domain.ReviewCompletion{}, false, nil
		}
		for _, p := range progress {
			if !p.Complete {
				return domain.ReviewCompletion{}, false, nil
			}
		}
		return domain.ReviewCompletion{
			ReviewHistoryID: reviewHistoryID,
			Status:          domain.ReviewSucceeded,
		}, true, nil
	}

	waitCtx, cancel := context.WithTimeout(r.Context(), maxWaitDuration)
	defer cancel()

	completion, err := rt.poller.Await(waitCtx, fetch, push)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeJSON(w, http.StatusOK, map[string]any{
				"review_history_id": reviewHistoryID,
				"done":              false,
			})
			return
		}
		writeError(w, err)
		return
	}
	if completion.Status == "" {
		if pushed := lastPush.Load(); pushed != nil {
			completion = *pushed
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"review_history_id": reviewHistoryID,
		"done":              true,
		"status":            completion.Status,
		"error":             completion.Error,
	})
}

func (rt *Router) reviewComments(w http.ResponseWriter, r *http.Request, reviewHistoryID string) {
	groups, err := rt.finalizerUC.Comments(r.Context(), reviewHistoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"review_history_id": reviewHistoryID,
		"checklists":        groups,
	})
}

// reviewProgress is the polling backstop for clients whose push
// subscription dropped.
func (rt *Router) reviewProgress(w http.ResponseWriter, r *http.Request, reviewHistoryID string) {
	if rt.metrics != nil {
		rt.metrics.RecordProgressPoll("api")
	}
	progress, err := rt.finalizerUC.Progress(r.Context(), reviewHistoryID)
	if err != nil {
		writeError(w, err)
		return
	}

	done := len(progress) > 0
	for _, p := range progress {
		if !p.Complete {
			done = false
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"review_history_id": reviewHistoryID,
		"documents":         progress,
		"done":              done,
	})
}

type subscribeRequest struct {
	Channel string `json:"channel"`
	SubID   string `json:"sub_id,omitempty"`
}

func (rt *Router) subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Channel == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel is required"})
		return
	}

	subID, err := rt.relay.Subscribe(req.Channel)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.SubscriptionOpened("api", req.Channel)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"channel": req.Channel,
		"sub_id":  subID,
	})
}

func (rt *Router) unsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Channel == "" || req.SubID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel and sub_id are required"})
		return
	}

	rt.relay.Unsubscribe(req.Channel, req.SubID)
	if rt.metrics != nil {
		rt.metrics.SubscriptionClosed("api", req.Channel)
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
