package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the projection pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Projection metrics.
	ProjectionRows      prometheus.Histogram
	ProjectionsByAlarm  *prometheus.CounterVec // labels: level={unknown,low,medium,high}
	OverwhelmEstimates  *prometheus.CounterVec // labels: outcome={none,interpolated,degenerate}
	ProjectionCache     *prometheus.CounterVec // labels: result={hit,miss}
	ProjectionCacheSize prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ProjectionRows,
		m.ProjectionsByAlarm,
		m.OverwhelmEstimates,
		m.ProjectionCache,
		m.ProjectionCacheSize,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "projection_etl",
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "projection_etl",
			Name:      "messages_produced_total",
			Help:      "Total summaries written to the sink.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "projection_etl",
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "projection_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projection_etl",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projection_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ProjectionRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "projection_etl",
			Name:      "projection_rows",
			Help:      "Number of observation rows per projection.",
			Buckets:   []float64{1, 10, 25, 50, 75, 100, 150, 200},
		}),
		ProjectionsByAlarm: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projection_etl",
			Name:      "projections_total",
			Help:      "Projections built, by alarm level.",
		}, []string{"level"}),
		OverwhelmEstimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projection_etl",
			Name:      "overwhelm_estimates_total",
			Help:      "Hospital overwhelm estimates by outcome.",
		}, []string{"outcome"}),
		ProjectionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projection_etl",
			Name:      "projection_cache_total",
			Help:      "Projection cache lookups by result.",
		}, []string{"result"}),
		ProjectionCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "projection_etl",
			Name:      "projection_cache_entries",
			Help:      "Entries currently held in the projection cache.",
		}),
	}
}
