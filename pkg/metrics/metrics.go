package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Codec engine metrics
var (
	EngineInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_engine_invocations_total",
			Help: "Total number of codec engine invocations",
		},
		[]string{"kind", "status"},
	)

	EngineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcode_engine_duration_seconds",
			Help:    "Codec engine invocation duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	EngineInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcode_engine_in_flight",
			Help: "Number of codec engine processes currently running",
		},
	)

	EngineSlotWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcode_engine_slot_wait_seconds",
			Help:    "Time spent waiting for a free engine slot",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcode_pipeline_duration_seconds",
			Help:    "Wall time of a full pipeline run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)

	RecordFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_record_failures_total",
			Help: "Total number of metadata record failures",
		},
		[]string{"reason"},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_uploads_total",
			Help: "Total number of uploads by result",
		},
		[]string{"result"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transcode_upload_bytes_total",
			Help: "Total bytes accepted from uploads",
		},
	)
)
