package mocks

import (
	"context"

	"github.com/richxcame/scooter-ride/pkg/eventbus"
	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of eventbus.Publisher
type MockPublisher struct {
	mock.Mock
}

var _ eventbus.Publisher = (*MockPublisher)(nil)

// Publish mocks publishing an event
func (m *MockPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}
