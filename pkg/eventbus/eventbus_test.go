package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Success(t *testing.T) {
	data := map[string]string{"ride_id": "abc"}

	event, err := NewEvent(SubjectRideStarted, "scooter-ride", data)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, SubjectRideStarted, event.Type)
	assert.Equal(t, "scooter-ride", event.Source)
	assert.False(t, event.Timestamp.IsZero())

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, "abc", decoded["ride_id"])
}

func TestNewEvent_NilData(t *testing.T) {
	event, err := NewEvent("test.event", "test-source", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), event.Data)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("test.event", "test-source", make(chan int))
	assert.Error(t, err)
}

func TestNewEvent_RideCompletedRoundTrip(t *testing.T) {
	data := RideCompletedData{
		RideID:          "r-1",
		ScooterID:       "SCOOT-123",
		Cost:            52,
		Currency:        "SEK",
		DurationSeconds: 1800,
		LocalDuration:   true,
		CompletedAt:     time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	event, err := NewEvent(SubjectRideCompleted, "scooter-ride", data)
	require.NoError(t, err)

	var decoded RideCompletedData
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, data, decoded)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a, err := NewEvent("x", "y", nil)
	require.NoError(t, err)
	b, err := NewEvent("x", "y", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), SubjectZoneRuleChanged, ZoneRuleChangedData{To: "no-go"}))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "SCOOTER", cfg.StreamName)
	assert.NotEmpty(t, cfg.URL)
}
