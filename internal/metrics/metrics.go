// Package metrics exposes Prometheus instrumentation for the pose pipeline.
// All collectors live in a private registry so tests can create isolated
// instances.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "vinyasa"
	subsystem = "engine"
)

// Detection outcomes recorded per processed frame.
const (
	OutcomePose    = "pose"
	OutcomeNoPose  = "no_pose"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	frames         prometheus.Counter
	detections     *prometheus.CounterVec
	detectDuration prometheus.Histogram
	queueDepth     prometheus.Gauge
	sessions       prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_total",
			Help:      "Frames submitted for pose detection.",
		}),
		detections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detections_total",
			Help:      "Detection results by outcome.",
		}, []string{"outcome"}),
		detectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "detect_duration_seconds",
			Help:      "Wall time of a single detector call.",
			Buckets:   prometheus.DefBuckets,
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Tasks waiting for the detection worker.",
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Open streaming sessions.",
		}),
	}
}

// IncFrames counts one submitted frame.
func (m *Metrics) IncFrames() {
	m.frames.Inc()
}

// IncDetection counts one detection result.
func (m *Metrics) IncDetection(outcome string) {
	m.detections.WithLabelValues(outcome).Inc()
}

// ObserveDetectDuration records how long a completed detector call took.
func (m *Metrics) ObserveDetectDuration(d time.Duration) {
	m.detectDuration.Observe(d.Seconds())
}

// SetQueueDepth records the current worker backlog.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// IncSessions records a session opening.
func (m *Metrics) IncSessions() {
	m.sessions.Inc()
}

// DecSessions records a session closing.
func (m *Metrics) DecSessions() {
	m.sessions.Dec()
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
