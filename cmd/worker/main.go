package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shuyossy/ai-notebook-sub000/internal/bootstrap"
	"github.com/shuyossy/ai-notebook-sub000/internal/config"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/usecase"
	"github.com/shuyossy/ai-notebook-sub000/internal/observability/logging"
	"github.com/shuyossy/ai-notebook-sub000/internal/observability/metrics"
)

const jobTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetricsHandler(workerMetrics),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// Rebuild the pipeline around an agent that counts per-chunk reviews.
	agent := &instrumentedAgent{agent: app.Agent, metrics: workerMetrics}
	processUC := usecase.NewProcessReviewUseCase(
		app.PreparerUC, app.RecorderUC, app.FinalizerUC, app.Planner, agent, logger)

	logger.Info("worker subscribed", "subject", cfg.NATSJobsSubject)
	err = app.Queue.SubscribeReviewRequested(ctx, func(handlerCtx context.Context, job domain.ReviewJob) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		if !job.SubmittedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(job.SubmittedAt))
		}

		workerMetrics.StartJob()
		start := time.Now()
		processErr := processUC.ProcessJob(jobCtx, job)
		workerMetrics.FinishJob("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// instrumentedAgent counts every chunk review by outcome on its way to the
// external agent.
type instrumentedAgent struct {
	agent   ports.ReviewAgent
	metrics *metrics.WorkerMetrics
}

func (a *instrumentedAgent) Review(ctx context.Context, req domain.ReviewRequest) (string, error) {
	comment, err := a.agent.Review(ctx, req)
	a.metrics.RecordChunkReview("worker", err)
	return comment, err
}

func workerMetricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
