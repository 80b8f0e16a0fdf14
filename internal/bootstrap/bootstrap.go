package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shuyossy/ai-notebook-sub000/internal/config"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/ports"
	"github.com/shuyossy/ai-notebook-sub000/internal/core/usecase"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/agent/httpagent"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/artifact"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/chunking"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/convert"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/extractor"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/notify"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/queue/nats"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/rasterize"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/repository/postgres"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue  ports.ReviewJobQueue
	Repo   ports.DocumentCacheRepository
	Ledger ports.ChunkResultStore

	Broker *notify.Broker
	Relay  *notify.Relay
	Poller *notify.Poller

	// Agent and Planner are exposed so cmd/worker can rebuild the process
	// pipeline around an instrumented agent.
	Agent   ports.ReviewAgent
	Planner ports.ChunkPlanner

	PreparerUC  *usecase.PrepareDocumentUseCase
	RecorderUC  *usecase.RecordChunkUseCase
	FinalizerUC *usecase.FinalizeReviewUseCase
	ProcessUC   *usecase.ProcessReviewUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentCacheRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	ledger := postgres.NewChunkResultRepository(db)

	artifacts, err := artifact.New(cfg.DataDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	converter := convert.New(convert.Options{
		Binary:             cfg.ConverterBinary,
		Timeout:            cfg.ConvertTimeout,
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	// A missing converter only disables office formats; text and pdf
	// extraction keep working.
	if err := converter.Probe(ctx); err != nil {
		logger.Warn("document converter unavailable", "error", err)
	}

	diskCache, err := extractor.NewDiskCache(filepath.Join(cfg.DataDir, extractor.CacheDirName))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init extraction cache: %w", err)
	}

	policy := domain.DefaultNormalizePolicy()
	policy.MaxBlankLines = cfg.MaxBlankLines
	policy.PreserveIndent = cfg.PreserveIndent

	extractorSvc := extractor.New(extractor.Options{
		Cache:        diskCache,
		Converter:    converter,
		Policy:       policy,
		CacheEnabled: cfg.ExtractionCache,
		Logger:       logger,
	})

	rasterizer := rasterize.New(0)

	broker := notify.NewBroker(logger)
	relay, err := notify.NewRelay(broker, cfg.NATSURL, cfg.NATSPushPrefix, notify.RelayOptions{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init push relay: %w", err)
	}
	if err := relay.StartBridge(); err != nil {
		relay.Close()
		_ = db.Close()
		return nil, fmt.Errorf("start push bridge: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSJobsSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		relay.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	planner := chunking.NewPlanner(cfg.ChunkSize, cfg.ChunkOverlap)
	agent := httpagent.New(cfg.AgentURL, cfg.AgentTimeout)

	preparerUC := usecase.NewPrepareDocumentUseCase(repo, artifacts, extractorSvc, rasterizer, converter)
	recorderUC := usecase.NewRecordChunkUseCase(repo, ledger)
	// Completions go through the relay's broadcast path so the event
	// published by the worker reaches sinks attached in the api process.
	finalizerUC := usecase.NewFinalizeReviewUseCase(repo, ledger, relay)
	processUC := usecase.NewProcessReviewUseCase(preparerUC, recorderUC, finalizerUC, planner, agent, logger)

	return &App{
		Config: cfg,

		Queue:  queue,
		Repo:   repo,
		Ledger: ledger,

		Broker: broker,
		Relay:  relay,
		Poller: notify.NewPoller(cfg.PollInterval),

		Agent:   agent,
		Planner: planner,

		PreparerUC:  preparerUC,
		RecorderUC:  recorderUC,
		FinalizerUC: finalizerUC,
		ProcessUC:   processUC,

		closeFn: func() {
			relay.Close()
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
