package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/visorax/visorax-go/internal/errors"
)

// GlareMetrics contains Prometheus metrics for glare analysis and the
// object detector. It implements Recorder.
type GlareMetrics struct {
	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	CompositeScore    prometheus.Histogram
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	ModelLoadedGauge  prometheus.Gauge
	ActiveAnalyses    prometheus.Gauge

	registry *prometheus.Registry
}

// NewGlareMetrics creates GlareMetrics and registers them with registry
func NewGlareMetrics(registry *prometheus.Registry) (*GlareMetrics, error) {
	m := &GlareMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register glare metrics: %w", err)
	}
	return m, nil
}

func (m *GlareMetrics) initMetrics() {
	m.AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visorax_analyses_total",
			Help: "Total number of completed glare analyses partitioned by alert level.",
		},
		[]string{"alert_level"},
	)

	m.AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visorax_analysis_duration_seconds",
		Help:    "Time taken to analyse one frame, detector included",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})

	m.CompositeScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visorax_glare_composite_score",
		Help:    "Distribution of composite glare scores",
		Buckets: prometheus.LinearBuckets(BucketCompositeWidth, BucketCompositeWidth, BucketCompositeCount),
	})

	m.OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visorax_operations_total",
			Help: "Total number of pipeline operations partitioned by status",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visorax_operation_duration_seconds",
			Help:    "Time taken by pipeline operations such as detector calls",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visorax_operation_errors_total",
			Help: "Total number of pipeline errors partitioned by error type",
		},
		[]string{"operation", "error_type"},
	)

	m.ModelLoadedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visorax_model_loaded",
		Help: "Whether the object detector is loaded (1) or not (0)",
	})

	m.ActiveAnalyses = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visorax_active_analyses",
		Help: "Number of analyses currently running",
	})
}

// RecordAnalysis records a completed analysis
func (m *GlareMetrics) RecordAnalysis(alertLevel string, composite, seconds float64) {
	m.AnalysesTotal.WithLabelValues(alertLevel).Inc()
	m.CompositeScore.Observe(composite)
	m.AnalysisDuration.Observe(seconds)
}

// RecordOperation implements Recorder.
func (m *GlareMetrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *GlareMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *GlareMetrics) RecordError(operation, errorType string) {
	m.ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordModelLoad records the outcome of loading the detector model
func (m *GlareMetrics) RecordModelLoad(err error) {
	if err != nil {
		m.RecordOperation(OpModelLoad, StatusError)
		m.RecordError(OpModelLoad, CategorizeError(err))
		m.ModelLoadedGauge.Set(0)
		return
	}
	m.RecordOperation(OpModelLoad, StatusSuccess)
	m.ModelLoadedGauge.Set(1)
}

// SetModelLoaded sets the model loaded gauge
func (m *GlareMetrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoadedGauge.Set(1)
	} else {
		m.ModelLoadedGauge.Set(0)
	}
}

// CategorizeError returns the error type label for err
func CategorizeError(err error) string {
	if err == nil {
		return "none"
	}
	return string(errors.CategoryOf(err))
}

// Describe implements the prometheus.Collector interface.
func (m *GlareMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AnalysesTotal.Describe(ch)
	ch <- m.AnalysisDuration.Desc()
	ch <- m.CompositeScore.Desc()
	m.OperationsTotal.Describe(ch)
	m.OperationDuration.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	ch <- m.ModelLoadedGauge.Desc()
	ch <- m.ActiveAnalyses.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *GlareMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AnalysesTotal.Collect(ch)
	ch <- m.AnalysisDuration
	ch <- m.CompositeScore
	m.OperationsTotal.Collect(ch)
	m.OperationDuration.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	ch <- m.ModelLoadedGauge
	ch <- m.ActiveAnalyses
}
