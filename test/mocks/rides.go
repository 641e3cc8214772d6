package mocks

import (
	"context"

	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRideAPI is a mock of the rental backend used by a ride session
type MockRideAPI struct {
	mock.Mock
}

// StartRide mocks POST /rent/start/{scooterId}
func (m *MockRideAPI) StartRide(ctx context.Context, scooterID string) (*models.Ride, error) {
	args := m.Called(ctx, scooterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

// StopRide mocks POST /rent/stop/{scooterId}
func (m *MockRideAPI) StopRide(ctx context.Context, active *models.Ride, idempotencyKey string) (*ridehistory.StopRecord, error) {
	args := m.Called(ctx, active.ScooterID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ridehistory.StopRecord), args.Error(1)
}

// ActiveRide mocks GET /rent/history?status=active&limit=1
func (m *MockRideAPI) ActiveRide(ctx context.Context) (*models.Ride, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

// MockZoneChecker is a mock of the zone rule client
type MockZoneChecker struct {
	mock.Mock
}

// Check mocks GET /zones/check
func (m *MockZoneChecker) Check(ctx context.Context, coord models.Coordinate, city string) (*models.ZoneCheckResult, error) {
	args := m.Called(ctx, coord, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ZoneCheckResult), args.Error(1)
}
