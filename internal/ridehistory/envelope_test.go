package ridehistory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const record = `{"id": "r1", "scooterId": "SCOOT-1", "startTime": "2024-03-01T10:00:00Z"}`

func TestDecodeEnvelopes(t *testing.T) {
	tests := map[string]string{
		"array":        `[` + record + `]`,
		"trips":        `{"trips": [` + record + `]}`,
		"rides":        `{"rides": [` + record + `]}`,
		"history":      `{"history": [` + record + `]}`,
		"data":         `{"data": [` + record + `]}`,
		"data.trips":   `{"data": {"trips": [` + record + `]}}`,
		"data.rides":   `{"data": {"rides": [` + record + `]}}`,
		"data.history": `{"data": {"history": [` + record + `]}}`,
		"data.items":   `{"data": {"items": [` + record + `]}}`,
		"results":      `{"count": 1, "next": null, "results": [` + record + `]}`,
	}

	for envelope, body := range tests {
		t.Run(envelope, func(t *testing.T) {
			rides, report := Decode([]byte(body))
			assert.True(t, report.Recognized)
			assert.Equal(t, envelope, report.Envelope)
			if assert.Len(t, rides, 1) {
				assert.Equal(t, "r1", rides[0].ID)
			}
		})
	}
}

func TestDecodeTopLevelItemsIsNotRecognized(t *testing.T) {
	rides, report := Decode([]byte(`{"items": [` + record + `]}`))

	assert.NotNil(t, rides)
	assert.Empty(t, rides)
	assert.False(t, report.Recognized)
}

func TestDecodeSkipsBadRecords(t *testing.T) {
	body := `[` + record + `, {"id": "r2"}, "garbage", {"id": "r3", "scooterId": "S", "cost": "12,00"}]`

	rides, report := Decode([]byte(body))

	assert.Len(t, rides, 2)
	assert.Equal(t, "r1", rides[0].ID)
	assert.Equal(t, "r3", rides[1].ID)
	if assert.Len(t, report.Skipped, 2) {
		assert.Equal(t, 1, report.Skipped[0].Index)
		assert.Equal(t, 2, report.Skipped[1].Index)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	rides, report := Decode([]byte(`not json`))

	assert.Empty(t, rides)
	assert.False(t, report.Recognized)
}
