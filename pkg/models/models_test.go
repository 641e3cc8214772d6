package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRideStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   RideStatus
		wantOK bool
	}{
		{"active", RideStatusActive, true},
		{"COMPLETED", RideStatusCompleted, true},
		{"Cancelled", RideStatusCancelled, true},
		{"finished", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRideStatus(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRideCloneDoesNotAlias(t *testing.T) {
	end := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ride := &Ride{ID: "r1", Status: RideStatusCompleted, EndTime: &end}

	cp := ride.Clone()
	*cp.EndTime = cp.EndTime.Add(time.Hour)
	cp.Cost = 99

	assert.Equal(t, end, *ride.EndTime)
	assert.Zero(t, ride.Cost)
	assert.True(t, RideStatusCancelled.IsTerminal())
	assert.False(t, RideStatusActive.IsTerminal())

	var nilRide *Ride
	assert.Nil(t, nilRide.Clone())
}
