package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NoteEditsTotal counts edit operations by outcome.
	NoteEditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_note_edits_total",
		Help: "Total number of note edit operations by result",
	}, []string{"result"})

	// FanoutStepFailures counts best-effort fan-out steps that failed.
	FanoutStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_fanout_step_failures_total",
		Help: "Total number of failed fan-out sub-tasks by step",
	}, []string{"step"})

	// QueueEnqueuesTotal counts jobs pushed into redis-backed queues.
	QueueEnqueuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_queue_enqueues_total",
		Help: "Total number of jobs enqueued by queue name",
	}, []string{"queue"})

	// StreamPublishesTotal counts events published to the real-time stream.
	StreamPublishesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_stream_publishes_total",
		Help: "Total number of events published to the real-time stream",
	})

	// MentionLookupFailures counts remote mention resolutions that were dropped.
	MentionLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_mention_lookup_failures_total",
		Help: "Total number of remote mention lookups that failed and were dropped",
	})

	// WebSocketConnections is the gauge of active stream connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_websocket_connections",
		Help: "Number of active WebSocket stream connections",
	})
)
