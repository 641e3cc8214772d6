package rides

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rideAccruedSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scooter",
			Subsystem: "ride",
			Name:      "accrued_seconds",
			Help:      "Locally accrued duration of the active ride",
		},
	)

	rideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "ride",
			Name:      "transitions_total",
			Help:      "Ride start and end attempts, by operation and outcome",
		},
		[]string{"operation", "result"},
	)

	rideReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "ride",
			Name:      "reconciliations_total",
			Help:      "Completed rides, by which final figures came from the backend",
		},
		[]string{"source"},
	)
)

const (
	sourceServer        = "server"
	sourceLocalDuration = "local_duration"
	sourceLocalCost     = "local_cost"
	sourceLocalFallback = "local_fallback"
)
