package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// balance service.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Balance metrics.
	BalanceDuration  prometheus.Histogram
	FieldsCalculated *prometheus.CounterVec // labels: outcome={success,error}

	// Deposition raster metrics.
	RasterRequests        *prometheus.CounterVec   // labels: kind={header,block}, outcome={success,error}
	RasterRequestDuration *prometheus.HistogramVec // labels: kind={header,block}
	RasterCache           *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbalance",
			Name:      "messages_consumed_total",
			Help:      "Total balance requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbalance",
			Name:      "messages_produced_total",
			Help:      "Total balance results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbalance",
			Name:      "transform_errors_total",
			Help:      "Total requests that could not be parsed or calculated.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nbalance",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nbalance",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nbalance",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-calculate-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		BalanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nbalance",
			Name:      "balance_duration_seconds",
			Help:      "Duration of a single farm balance calculation.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		FieldsCalculated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbalance",
			Name:      "fields_calculated_total",
			Help:      "Field balances by outcome.",
		}, []string{"outcome"}),
		RasterRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbalance",
			Name:      "raster_requests_total",
			Help:      "Deposition raster range requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RasterRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nbalance",
			Name:      "raster_request_duration_seconds",
			Help:      "Deposition raster range request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		RasterCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbalance",
			Name:      "raster_cache_total",
			Help:      "Deposition raster cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.BalanceDuration,
		m.FieldsCalculated,
		m.RasterRequests,
		m.RasterRequestDuration,
		m.RasterCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "nbalance", Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "nbalance", Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "nbalance", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "nbalance", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "nbalance", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "nbalance", Name: "batch_processing_duration_seconds"}),
		BalanceDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "nbalance", Name: "balance_duration_seconds"}),
		FieldsCalculated:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "nbalance", Name: "fields_calculated_total"}, []string{"outcome"}),
		RasterRequests:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "nbalance", Name: "raster_requests_total"}, []string{"kind", "outcome"}),
		RasterRequestDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "nbalance", Name: "raster_request_duration_seconds"}, []string{"kind"}),
		RasterCache:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "nbalance", Name: "raster_cache_total"}, []string{"result"}),
	}
}
