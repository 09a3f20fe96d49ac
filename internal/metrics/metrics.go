package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homehub_mutations_total",
			Help: "Device apply calls by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	FanoutEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homehub_fanout_events_total",
			Help: "Events enqueued for observers",
		},
	)

	Observers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homehub_observers",
			Help: "Currently registered observers",
		},
	)

	DroppedObservers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homehub_dropped_observers_total",
			Help: "Observers removed by the hub",
		},
		[]string{"reason"},
	)

	VoiceCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homehub_voice_commands_total",
			Help: "Executed voice commands by path",
		},
		[]string{"path"},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homehub_session_transitions_total",
			Help: "Speech session state transitions",
		},
		[]string{"to"},
	)

	EchoSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homehub_echo_suppressed_events_total",
			Help: "Recognition events ignored while the system was speaking",
		},
	)
)
