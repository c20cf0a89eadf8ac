package bootstrap

import (
	"context"
	"fmt"

	"github.com/ledgerscan/intake/internal/config"
	"github.com/ledgerscan/intake/internal/core/ports"
	"github.com/ledgerscan/intake/internal/core/usecase"
	"github.com/ledgerscan/intake/internal/infrastructure/dispatch"
	"github.com/ledgerscan/intake/internal/infrastructure/llm/gemini"
	"github.com/ledgerscan/intake/internal/infrastructure/queue/nats"
	"github.com/ledgerscan/intake/internal/infrastructure/reader/plaintext"
	"github.com/ledgerscan/intake/internal/infrastructure/repository/postgres"
	"github.com/ledgerscan/intake/internal/infrastructure/resilience"
	"github.com/ledgerscan/intake/internal/infrastructure/storage/localfs"
	"github.com/ledgerscan/intake/internal/observability/metrics"
)

// App wires the upload API: storage, database, queue publisher and the
// inbound use cases behind the HTTP adapter.
type App struct {
	Config config.Config

	Queue    ports.EventQueue
	Repo     ports.DocumentRepository
	UploadUC ports.DocumentUploader
	ReaderUC ports.DocumentReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.DocumentSubject, cfg.AudioSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event queue: %w", err)
	}

	uploadUC := usecase.NewUploadUseCase(repo, storage, queue)

	return &App{
		Config:   cfg,
		Queue:    queue,
		Repo:     repo,
		UploadUC: uploadUC,
		ReaderUC: repo,

		closeFn: func() {
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

// Worker wires the background side: queue consumer, extraction clients and
// the dispatcher that enforces the per-kind throughput ceilings.
type Worker struct {
	Config config.Config

	Queue      ports.EventQueue
	Dispatcher *dispatch.Dispatcher
	Metrics    *metrics.WorkerMetrics

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// Missing credentials must stop the worker here, not surface as a failed
	// job after the first upload.
	llm, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, storage)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.DocumentSubject, cfg.AudioSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event queue: %w", err)
	}

	reader := plaintext.NewReader(storage)
	processUC := usecase.NewProcessUseCase(repo, reader, llm, llm)

	workerMetrics := metrics.NewWorkerMetrics("intake-worker")
	dispatcher := dispatch.New(
		processUC,
		workerMetrics,
		"intake-worker",
		cfg.DocJobsPerMinute,
		cfg.AudioJobsPerMinute,
	)

	return &Worker{
		Config:     cfg,
		Queue:      queue,
		Dispatcher: dispatcher,
		Metrics:    workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}
