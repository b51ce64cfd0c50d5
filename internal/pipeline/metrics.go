package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lessons/internal/history"
	"github.com/fyrsmithlabs/lessons/internal/lesson"
	"github.com/fyrsmithlabs/lessons/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/lessons/internal/pipeline"

const (
	namespace = "lessons"
	subsystem = "pipeline"
)

// Outcome labels.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics records pipeline activity to a Prometheus registry and, when
// telemetry is enabled, to an OpenTelemetry meter.
type Metrics struct {
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	documentDuration prometheus.Histogram
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastRunTimestamp prometheus.Gauge
	lessons          *prometheus.GaugeVec
	averageScore     *prometheus.GaugeVec
	storeFailures    *prometheus.CounterVec

	otelDocuments   metric.Int64Counter
	otelDocDuration metric.Float64Histogram
	otelRuns        metric.Int64Counter
	otelRunDuration metric.Float64Histogram
}

// NewMetrics registers the pipeline collectors on reg. A nil reg creates a
// private registry. meter may be nil.
func NewMetrics(reg *prometheus.Registry, meter metric.Meter, logger *logging.Logger) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		documentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "documents_total",
				Help:      "Lesson documents processed, by result",
			},
			[]string{"result"},
		),
		documentDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "document_duration_seconds",
				Help:      "Time to read and analyze one lesson document",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Pipeline runs, by result",
			},
			[]string{"result"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a pipeline run",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		lastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
		lessons: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lessons",
				Help:      "Lessons in the last run, by validation status",
			},
			[]string{"status"},
		),
		averageScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "average_score",
				Help:      "Average score of the last snapshot, by analysis kind",
			},
			[]string{"kind"},
		),
		storeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "store_write_failures_total",
				Help:      "Failed history store writes, by analysis kind",
			},
			[]string{"kind"},
		),
	}

	if meter != nil {
		m.initOTEL(meter, logger)
	}
	return m
}

func (m *Metrics) initOTEL(meter metric.Meter, logger *logging.Logger) {
	ctx := context.Background()
	var err error

	m.otelDocuments, err = meter.Int64Counter(
		"lessons.pipeline.documents",
		metric.WithDescription("Lesson documents processed"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create documents counter", zap.Error(err))
	}

	m.otelDocDuration, err = meter.Float64Histogram(
		"lessons.pipeline.document.duration",
		metric.WithDescription("Time to read and analyze one lesson document"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create document duration histogram", zap.Error(err))
	}

	m.otelRuns, err = meter.Int64Counter(
		"lessons.pipeline.runs",
		metric.WithDescription("Pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create runs counter", zap.Error(err))
	}

	m.otelRunDuration, err = meter.Float64Histogram(
		"lessons.pipeline.run.duration",
		metric.WithDescription("Wall time of a pipeline run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create run duration histogram", zap.Error(err))
	}
}

// Registry returns the Prometheus registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDocument records one processed document.
func (m *Metrics) RecordDocument(ctx context.Context, ok bool, d time.Duration) {
	result := resultLabel(ok)
	m.documentsTotal.WithLabelValues(result).Inc()
	m.documentDuration.Observe(d.Seconds())

	attrs := metric.WithAttributes(attribute.String("result", result))
	if m.otelDocuments != nil {
		m.otelDocuments.Add(ctx, 1, attrs)
	}
	if m.otelDocDuration != nil {
		m.otelDocDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordSnapshot records the aggregate of an appended snapshot.
func (m *Metrics) RecordSnapshot(kind lesson.Kind, snap history.Snapshot) {
	m.averageScore.WithLabelValues(string(kind)).Set(snap.AggregateStats[history.StatAverageScore])
}

// RecordStoreFailure records a failed history store write.
func (m *Metrics) RecordStoreFailure(kind lesson.Kind) {
	m.storeFailures.WithLabelValues(string(kind)).Inc()
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, r Result, finished time.Time) {
	result := resultLabel(r.Success)
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(r.Duration.Seconds())
	m.lastRunTimestamp.Set(float64(finished.Unix()))
	if r.Success {
		m.lessons.WithLabelValues("valid").Set(float64(r.Valid))
		m.lessons.WithLabelValues("invalid").Set(float64(r.Invalid))
	}

	attrs := metric.WithAttributes(attribute.String("result", result))
	if m.otelRuns != nil {
		m.otelRuns.Add(ctx, 1, attrs)
	}
	if m.otelRunDuration != nil {
		m.otelRunDuration.Record(ctx, r.Duration.Seconds(), attrs)
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func resultLabel(ok bool) string {
	if ok {
		return resultSuccess
	}
	return resultFailure
}
