// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_voice_bridge"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Call metrics
	CallsTotal     prometheus.Counter
	CallsActive    prometheus.Gauge
	CallsCompleted *prometheus.CounterVec
	CallDuration   prometheus.Histogram

	// Telephony frame metrics
	FramesReceived     prometheus.Counter
	FramesSent         prometheus.Counter
	FrameBytesSent     prometheus.Counter
	AudioBytesReceived prometheus.Counter

	// AI leg metrics
	AIEvents      *prometheus.CounterVec
	AILegFailures prometheus.Counter

	// Synthesis metrics
	SynthesisRuns      prometheus.Counter
	SynthesisDropped   prometheus.Counter
	SynthesisCancelled prometheus.Counter
	SynthesisErrors    prometheus.Counter

	// Recording metrics
	RecordingBytes    prometheus.Counter
	RecordingFailures prometheus.Counter

	// Collaborator metrics
	ResolverFailures prometheus.Counter
	CallLogUpserts   *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of telephony sessions accepted",
		}),
		CallsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of currently active telephony sessions",
		}),
		CallsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_completed_total",
			Help:      "Total number of completed sessions by final status",
		}, []string{"status"}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of telephony sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telephony_frames_received_total",
			Help:      "Total inbound telephony media frames",
		}),
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telephony_frames_sent_total",
			Help:      "Total outbound telephony media frames paced out",
		}),
		FrameBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telephony_frame_bytes_sent_total",
			Help:      "Total outbound telephony payload bytes",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total inbound telephony audio bytes",
		}),

		AIEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_events_total",
			Help:      "Total inbound AI-leg events by type",
		}, []string{"type"}),
		AILegFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_leg_failures_total",
			Help:      "Total AI-leg connection failures",
		}),

		SynthesisRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_runs_total",
			Help:      "Total speech synthesis operations started",
		}),
		SynthesisDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_dropped_total",
			Help:      "Total synthesis triggers dropped because one was in flight",
		}),
		SynthesisCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_cancelled_total",
			Help:      "Total synthesis operations cancelled mid-flight",
		}),
		SynthesisErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_errors_total",
			Help:      "Total synthesis provider errors",
		}),

		RecordingBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_bytes_total",
			Help:      "Total PCM bytes written to call recordings",
		}),
		RecordingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_failures_total",
			Help:      "Total recordings that could not be opened or finalized",
		}),

		ResolverFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_failures_total",
			Help:      "Total agent/customer resolution failures (non-fatal)",
		}),
		CallLogUpserts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calllog_upserts_total",
			Help:      "Total call-log upserts by result",
		}, []string{"result"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordCallStart records a new session starting.
func (m *Metrics) RecordCallStart() {
	m.CallsTotal.Inc()
	m.CallsActive.Inc()
}

// RecordCallEnd records a session ending with its final status.
func (m *Metrics) RecordCallEnd(status string, durationSeconds float64) {
	m.CallsActive.Dec()
	m.CallDuration.Observe(durationSeconds)
	m.CallsCompleted.WithLabelValues(status).Inc()
}

// RecordFrameReceived records one inbound telephony frame.
func (m *Metrics) RecordFrameReceived(bytes int) {
	m.FramesReceived.Inc()
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordFrameSent records one outbound telephony frame.
func (m *Metrics) RecordFrameSent(bytes int) {
	m.FramesSent.Inc()
	m.FrameBytesSent.Add(float64(bytes))
}

// RecordAIEvent records one inbound AI-leg event.
func (m *Metrics) RecordAIEvent(eventType string) {
	m.AIEvents.WithLabelValues(eventType).Inc()
}

// RecordCallLogUpsert records a call-log upsert attempt.
func (m *Metrics) RecordCallLogUpsert(err error) {
	if err != nil {
		m.CallLogUpserts.WithLabelValues("error").Inc()
		return
	}
	m.CallLogUpserts.WithLabelValues("ok").Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
