package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
	"github.com/ledgerscan/intake/internal/observability/metrics"
)

// Dispatcher hands upload events to the processing use case, enforcing the
// per-kind call ceiling toward the model API. Events beyond the ceiling wait
// in arrival order; nothing is dropped and nothing runs over capacity.
type Dispatcher struct {
	processor ports.DocumentProcessor
	metrics   *metrics.WorkerMetrics
	service   string

	documentLimiter *rate.Limiter
	audioLimiter    *rate.Limiter
}

func New(processor ports.DocumentProcessor, workerMetrics *metrics.WorkerMetrics, service string, docPerMinute, audioPerMinute int) *Dispatcher {
	return &Dispatcher{
		processor:       processor,
		metrics:         workerMetrics,
		service:         service,
		documentLimiter: newLimiter(docPerMinute),
		audioLimiter:    newLimiter(audioPerMinute),
	}
}

// newLimiter shapes traffic to at most perMinute events in any rolling
// minute. Burst stays at 1: admissions are paced a full interval apart, so a
// quiet period never banks extra capacity that would let a burst exceed the
// ceiling inside one window.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func (d *Dispatcher) HandleDocumentUploaded(ctx context.Context, evt domain.UploadEvent) error {
	return d.dispatch(ctx, string(domain.MediaKindDocument), d.documentLimiter, evt, d.processor.ProcessDocument)
}

func (d *Dispatcher) HandleAudioUploaded(ctx context.Context, evt domain.UploadEvent) error {
	return d.dispatch(ctx, string(domain.MediaKindAudio), d.audioLimiter, evt, d.processor.ProcessAudio)
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	kind string,
	limiter *rate.Limiter,
	evt domain.UploadEvent,
	run func(context.Context, domain.UploadEvent) error,
) error {
	waitStart := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.ObserveRateWait(d.service, kind, time.Since(waitStart))
		d.metrics.StartJob()
	}

	start := time.Now()
	err := run(ctx, evt)
	duration := time.Since(start)

	if d.metrics != nil {
		d.metrics.FinishJob(d.service, kind, duration, err)
	}

	logAttrs := []any{
		"kind", kind,
		"document_id", evt.DocumentID,
		"duration_ms", float64(duration.Microseconds()) / 1000.0,
	}
	if err != nil {
		slog.Error("processing_job_failed", append(logAttrs, "error", err)...)
		return err
	}
	slog.Info("processing_job_completed", logAttrs...)
	return nil
}
