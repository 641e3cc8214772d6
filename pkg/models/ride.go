package models

import (
	"time"
)

// RideStatus represents the status of a ride
type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// ParseRideStatus matches s case-insensitively against the known statuses.
func ParseRideStatus(s string) (RideStatus, bool) {
	switch RideStatus(lowerASCII(s)) {
	case RideStatusActive:
		return RideStatusActive, true
	case RideStatusCompleted:
		return RideStatusCompleted, true
	case RideStatusCancelled:
		return RideStatusCancelled, true
	}
	return "", false
}

// IsTerminal reports whether a ride in this status can no longer change.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// Ride is a scooter rental. An active ride never has an EndTime; a finished
// one has it unless the backend gave neither an end nor a start.
type Ride struct {
	ID              string     `json:"id"`
	ScooterID       string     `json:"scooter_id"`
	UserID          string     `json:"user_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Status          RideStatus `json:"status"`
	Cost            float64    `json:"cost"`
	DurationSeconds int        `json:"duration_seconds"`
}

// IsActive reports whether the ride is still running.
func (r *Ride) IsActive() bool {
	return r.Status == RideStatusActive
}

// Clone returns a deep copy so snapshots never alias session state.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	cp := *r
	if r.EndTime != nil {
		end := *r.EndTime
		cp.EndTime = &end
	}
	return &cp
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
