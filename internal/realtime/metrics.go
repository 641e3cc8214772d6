package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "realtime",
			Name:      "messages_received_total",
			Help:      "Push messages received, by type",
		},
		[]string{"type"},
	)

	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Feed reconnect attempts after a disconnect",
		},
	)
)
