package zones

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	zoneChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "zones",
			Name:      "checks_total",
			Help:      "Zone checks issued, by outcome",
		},
		[]string{"result"},
	)

	zoneChecksThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "zones",
			Name:      "checks_throttled_total",
			Help:      "Location updates dropped by the throttle window or an in-flight check",
		},
	)

	zoneChecksStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scooter",
			Subsystem: "zones",
			Name:      "checks_stale_total",
			Help:      "Zone check responses discarded because a newer check was already applied",
		},
	)

	zoneCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scooter",
			Subsystem: "zones",
			Name:      "check_duration_seconds",
			Help:      "Zone check round-trip time",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
