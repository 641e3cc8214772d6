package eventbus

import "time"

// RideStartedData is emitted when the backend confirms a ride start.
type RideStartedData struct {
	RideID    string    `json:"ride_id"`
	ScooterID string    `json:"scooter_id"`
	UserID    string    `json:"user_id,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// RideCompletedData is emitted after a ride is reconciled.
type RideCompletedData struct {
	RideID          string    `json:"ride_id"`
	ScooterID       string    `json:"scooter_id"`
	Cost            float64   `json:"cost"`
	Currency        string    `json:"currency"`
	DurationSeconds int       `json:"duration_seconds"`
	LocalDuration   bool      `json:"local_duration"`
	CompletedAt     time.Time `json:"completed_at"`
}

// ZoneRuleChangedData is emitted when the rule in force changes type.
type ZoneRuleChangedData struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Priority  int       `json:"priority"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ChangedAt time.Time `json:"changed_at"`
}
