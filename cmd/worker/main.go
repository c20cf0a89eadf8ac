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

	"github.com/ledgerscan/intake/internal/bootstrap"
	"github.com/ledgerscan/intake/internal/config"
	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/observability/logging"
)

const jobTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("intake-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer worker.Close()

	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     worker.Metrics.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()

	slog.Info("worker_subscribed",
		"document_subject", cfg.DocumentSubject,
		"audio_subject", cfg.AudioSubject,
	)
	err = worker.Queue.Subscribe(ctx,
		withTimeout(worker.Dispatcher.HandleDocumentUploaded),
		withTimeout(worker.Dispatcher.HandleAudioUploaded),
	)
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func withTimeout(handle func(ctx context.Context, evt domain.UploadEvent) error) func(context.Context, domain.UploadEvent) error {
	return func(ctx context.Context, evt domain.UploadEvent) error {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		return handle(jobCtx, evt)
	}
}
