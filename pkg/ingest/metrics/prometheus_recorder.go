package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
)

// PrometheusRecorder is a Prometheus implementation of the Recorder
// interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	recordsRead     *prometheus.CounterVec
	recordsSkipped  *prometheus.CounterVec
	recordsFailed   *prometheus.CounterVec
	recordsInserted *prometheus.CounterVec
	recordsSent     *prometheus.CounterVec

	batchDurationSeconds *prometheus.HistogramVec
	runDurationSeconds   *prometheus.HistogramVec
	runStatusCounter     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder backed
// by its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		recordsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_read_total",
			Help: "Total raw records read from the source.",
		}, []string{"table"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_skipped_total",
			Help: "Total records discarded during mapping.",
		}, []string{"table"}),
		recordsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_failed_total",
			Help: "Total records that failed persistence or delivery.",
		}, []string{"table"}),
		recordsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_inserted_total",
			Help: "Total records committed to the destination table.",
		}, []string{"table"}),
		recordsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_sent_total",
			Help: "Total records whose metadata reached the remote API.",
		}, []string{"table"}),
		batchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "Duration of one persist-and-deliver batch cycle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table"}),
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Duration of ingestion runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_run_status_total",
			Help: "Total ingestion runs by outcome.",
		}, []string{"table", "status"}),
	}

	registry.MustRegister(
		r.recordsRead,
		r.recordsSkipped,
		r.recordsFailed,
		r.recordsInserted,
		r.recordsSent,
		r.batchDurationSeconds,
		r.runDurationSeconds,
		r.runStatusCounter,
	)
	return r
}

// Registry exposes the underlying registry, for serving /metrics.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordRead(table string) {
	r.recordsRead.WithLabelValues(table).Inc()
}

func (r *PrometheusRecorder) RecordSkipped(table string) {
	r.recordsSkipped.WithLabelValues(table).Inc()
}

func (r *PrometheusRecorder) RecordFailed(table string, n int) {
	r.recordsFailed.WithLabelValues(table).Add(float64(n))
}

func (r *PrometheusRecorder) RecordInserted(table string, n int) {
	r.recordsInserted.WithLabelValues(table).Add(float64(n))
}

func (r *PrometheusRecorder) RecordSent(table string, n int) {
	r.recordsSent.WithLabelValues(table).Add(float64(n))
}

func (r *PrometheusRecorder) RecordBatch(table string, d time.Duration) {
	r.batchDurationSeconds.WithLabelValues(table).Observe(d.Seconds())
}

func (r *PrometheusRecorder) RecordRunCompleted(table string, summary model.IngestionSummary, d time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}
	r.runStatusCounter.WithLabelValues(table, status).Inc()
	r.runDurationSeconds.WithLabelValues(table, status).Observe(d.Seconds())
}

// Verify interfaces
var _ Recorder = (*PrometheusRecorder)(nil)
