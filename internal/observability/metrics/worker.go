package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics instruments the review worker: whole-job accounting, the
// per-chunk agent calls, and how long jobs sat in the queue first.
type WorkerMetrics struct {
	registry *prometheus.Registry

	reviewTotal    *prometheus.CounterVec
	reviewDuration *prometheus.HistogramVec
	reviewInFlight prometheus.Gauge
	chunkTotal     *prometheus.CounterVec
	queueLag       *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	reviewTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notebook",
			Subsystem: "worker",
			Name:      "review_jobs_total",
			Help:      "Total processed review jobs by terminal status.",
		},
		[]string{"service", "status"},
	)
	reviewDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notebook",
			Subsystem: "worker",
			Name:      "review_job_duration_seconds",
			Help:      "Review job duration in seconds by terminal status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	reviewInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "notebook",
			Subsystem: "worker",
			Name:      "review_jobs_in_flight",
			Help:      "Number of review jobs currently processing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunkTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notebook",
			Subsystem: "worker",
			Name:      "chunk_reviews_total",
			Help:      "Total per-chunk agent reviews by status.",
		},
		[]string{"service", "status"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notebook",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		reviewTotal,
		reviewDuration,
		reviewInFlight,
		chunkTotal,
		queueLag,
	)

	return &WorkerMetrics{
		registry:       registry,
		reviewTotal:    reviewTotal,
		reviewDuration: reviewDuration,
		reviewInFlight: reviewInFlight,
		chunkTotal:     chunkTotal,
		queueLag:       queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.reviewInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.reviewInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.reviewTotal.WithLabelValues(service, status).Inc()
	m.reviewDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordChunkReview(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.chunkTotal.WithLabelValues(service, status).Inc()
}

// ObserveQueueLag records the delay between a job's enqueue stamp and the
// moment the worker picked it up. Negative lag (clock skew) is dropped.
func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
