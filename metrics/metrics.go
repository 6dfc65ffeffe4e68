package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// RunsTotal counts pipeline runs by terminal outcome (complete, error, canceled).
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of generation runs, labeled by terminal outcome.",
	}, []string{"outcome"})

	// RunDurationSeconds is end-to-end time per run.
	RunDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "End-to-end time of one generation run.",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{1, 2, 5, 10, 20, 60, 120, 300, 600},
	}, []string{"outcome"})

	// PhotosProcessedTotal counts photos that went through the full analysis.
	PhotosProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "photos_processed_total",
		Help:      "Total number of photos fully analyzed across all runs.",
	})

	// PhotosSkippedTotal counts photos skipped by the incremental filter.
	PhotosSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "photos_skipped_total",
		Help:      "Total number of photos skipped because their content hash was unchanged.",
	})

	// WarningsTotal counts degraded-but-tolerated failures inside runs.
	WarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "warnings_total",
		Help:      "Total number of warnings accumulated by generation runs.",
	})

	// InferenceCallsTotal counts upstream inference calls by source and result.
	InferenceCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photointel",
		Subsystem: "inference",
		Name:      "calls_total",
		Help:      "Total number of inference calls, labeled by provider and result.",
	}, []string{"provider", "result"})

	// RabbitMQConnected is 1 when the subscriber considers itself connected.
	RabbitMQConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "rabbitmq_connected",
		Help:      "Whether the photo-event RabbitMQ subscriber is currently connected (best-effort).",
	})

	// RabbitMQLastDeliverySeconds is a unix timestamp (seconds) of last observed delivery.
	RabbitMQLastDeliverySeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "photointel",
		Subsystem: "pipeline",
		Name:      "rabbitmq_last_delivery_timestamp_seconds",
		Help:      "Unix timestamp (seconds) of the last RabbitMQ delivery observed by the subscriber (best-effort).",
	})
)

// Register registers pipeline metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RunsTotal,
			RunDurationSeconds,
			PhotosProcessedTotal,
			PhotosSkippedTotal,
			WarningsTotal,
			InferenceCallsTotal,
			RabbitMQConnected,
			RabbitMQLastDeliverySeconds,
		)
	})
}

func NowUnixSeconds() float64 {
	return float64(time.Now().Unix())
}
