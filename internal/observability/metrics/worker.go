package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks processing-job outcomes per media kind.
type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	rateWait        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Total processed upload events by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Processing duration in seconds by kind and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of in-flight processing jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rateWait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "rate_wait_seconds",
			Help:      "Time an event waited for the per-kind rate ceiling.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 12, 30, 60, 120},
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, rateWait)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		rateWait:        rateWait,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service, kind string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "completed"
	if err != nil {
		status = "failed"
	}
	m.processTotal.WithLabelValues(service, kind, status).Inc()
	m.processDuration.WithLabelValues(service, kind, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveRateWait(service, kind string, wait time.Duration) {
	if wait < 0 {
		return
	}
	m.rateWait.WithLabelValues(service, kind).Observe(wait.Seconds())
}
