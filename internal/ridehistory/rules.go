package ridehistory

import "github.com/richxcame/scooter-ride/internal/payload"

// fieldRule is one place a field may live in a backend record.
type fieldRule struct {
	path string
	// scale converts a numeric value to the canonical unit; zero means 1.
	scale float64
}

// fieldRules are tried in order; the first present value wins.
type fieldRules []fieldRule

func paths(ps ...string) fieldRules {
	rules := make(fieldRules, len(ps))
	for i, p := range ps {
		rules[i] = fieldRule{path: p}
	}
	return rules
}

func (rs fieldRules) first(obj map[string]interface{}) (interface{}, fieldRule, bool) {
	for _, r := range rs {
		if v, ok := payload.Lookup(obj, r.path); ok {
			return v, r, true
		}
	}
	return nil, fieldRule{}, false
}

func (r fieldRule) factor() float64 {
	if r.scale == 0 {
		return 1
	}
	return r.scale
}

// Extraction tables, most specific first.
var (
	idRules = paths("id", "tripId", "trip_id", "_id", "rideId", "ride_id", "rentalId")

	// Direct fields first, then one level of nesting.
	scooterRules = paths(
		"scooterId", "scooter_id", "vehicleId", "vehicle_id",
		"scooter.id", "scooter._id", "vehicle.id", "vehicle._id",
	)

	userRules = paths("userId", "user_id", "customerId", "user.id", "user._id")

	statusRules = paths("status", "state", "rideStatus")

	startRules = paths("startTime", "start_time", "startedAt", "started_at", "start", "createdAt")

	endRules = paths("endTime", "end_time", "endedAt", "ended_at", "end", "completedAt")

	costRules = paths("cost", "totalCost", "total_cost", "price", "amount", "fare", "totalPrice")

	durationRules = fieldRules{
		{path: "durationSeconds"},
		{path: "duration_seconds"},
		{path: "duration"},
		{path: "durationMinutes", scale: 60},
		{path: "duration_minutes", scale: 60},
	}
)
