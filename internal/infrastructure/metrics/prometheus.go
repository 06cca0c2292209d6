// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clipforge"

var (
	// UploadsTotal tracks video uploads.
	// Labels:
	//   - status: accepted, rejected
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of video upload attempts",
		},
		[]string{"status"},
	)

	// ProcessingJobsTotal tracks finished FFmpeg processing jobs.
	// Labels:
	//   - result: ready, failed, skipped
	ProcessingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_jobs_total",
			Help:      "Total number of completed processing jobs",
		},
		[]string{"result"},
	)

	// ProcessingDurationSeconds observes wall time of FFmpeg jobs.
	ProcessingDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Wall-clock duration of video processing jobs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// SSEActiveEmitters gauges currently connected SSE emitters.
	SSEActiveEmitters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_active_emitters",
			Help:      "Number of live SSE emitters",
		},
	)

	// SSEEventsSentTotal tracks SSE frames delivered to emitters.
	// Labels:
	//   - event: videoStatusUpdate, heartbeat
	SSEEventsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_sent_total",
			Help:      "Total number of SSE events delivered",
		},
		[]string{"event"},
	)

	// CacheOperationsTotal tracks cache operations.
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Processing result constants.
const (
	ProcessingResultReady   = "ready"
	ProcessingResultFailed  = "failed"
	ProcessingResultSkipped = "skipped"
)

// Upload status constants.
const (
	UploadAccepted = "accepted"
	UploadRejected = "rejected"
)

// SSE event name constants.
const (
	SSEEventStatusUpdate = "videoStatusUpdate"
	SSEEventHeartbeat    = "heartbeat"
)
