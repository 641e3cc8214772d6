package rides

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hc := httpclient.NewClient(server.URL, time.Second)
	history := ridehistory.NewService(ridehistory.NewRepository(hc), 20)
	client := NewClient(hc, history)
	client.now = func() time.Time { return t0 }
	return client
}

func TestStartRideParsesWrappedRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rent/start/SCOOT-900", r.URL.Path)
		_, _ = w.Write([]byte(`{"ride": {"id": "r-900", "scooterId": "SCOOT-900", "startTime": "2024-03-01T09:59:00Z"}}`))
	})

	ride, err := client.StartRide(context.Background(), "SCOOT-900")
	require.NoError(t, err)
	assert.Equal(t, "r-900", ride.ID)
	assert.Equal(t, models.RideStatusActive, ride.Status)
	assert.Equal(t, t0.Add(-time.Minute), ride.StartTime)
	assert.Nil(t, ride.EndTime)
}

func TestStartRideWithBareIDBuildsLocalRide(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rideId": "r-1", "message": "unlocked"}`))
	})

	ride, err := client.StartRide(context.Background(), "SCOOT-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", ride.ID)
	assert.Equal(t, "SCOOT-1", ride.ScooterID)
	assert.Equal(t, t0, ride.StartTime)
	assert.True(t, ride.IsActive())
}

func TestStartRideWithoutIDIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	})

	_, err := client.StartRide(context.Background(), "SCOOT-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedRecord))
}

func TestStartRideInsufficientBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "INSUFFICIENT funds"}`))
	})

	_, err := client.StartRide(context.Background(), "SCOOT-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInsufficientBalance))
	assert.Equal(t, common.MsgStartInsufficientBalance, common.UserMessage(err))
}

func TestStartRideOtherBadRequestIsGenericFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "scooter offline"}`))
	})

	_, err := client.StartRide(context.Background(), "SCOOT-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrInsufficientBalance))
	assert.Equal(t, common.MsgStartFailed, common.UserMessage(err))
}

func TestStopRideSendsIdempotencyKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rent/stop/SCOOT-7", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get(httpclient.IdempotencyKeyHeader))
		_, _ = w.Write([]byte(`{"data": {"id": "r1", "scooterId": "SCOOT-7", "status": "completed", "durationSeconds": 0, "cost": 52}}`))
	})

	rec, err := client.StopRide(context.Background(), activeRide("r1", "SCOOT-7", t0), "key-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.CostKnown)
	assert.Equal(t, 0, rec.Ride.DurationSeconds)
	assert.Equal(t, 52.0, rec.Ride.Cost)
}

func TestStopRideUnusableRecordReturnsNil(t *testing.T) {
	for _, body := range []string{`{"ok": true}`, `[1, 2]`, `{"cost": "free"}`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		rec, err := client.StopRide(context.Background(), activeRide("r1", "SCOOT-7", t0), "key-1")
		require.NoError(t, err, body)
		assert.Nil(t, rec, body)
	}
}

// endRideAgainst runs a 30 minute ride through a real client whose stop
// endpoint answers with stopBody.
func endRideAgainst(t *testing.T, stopBody string) (*models.Ride, *Session) {
	t.Helper()
	start := t0.Add(-30 * time.Minute)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rent/history":
			_, _ = w.Write([]byte(`{"rides": [{"id": "r-1", "scooterId": "SCOOT-1", "status": "active", "startTime": "` + start.Format(time.RFC3339) + `"}]}`))
		case "/rent/stop/SCOOT-1":
			_, _ = w.Write([]byte(stopBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	s, _ := newTestSession(t, client)

	_, err := s.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1800, s.State().DurationSeconds)
	require.InDelta(t, 85.0, s.State().CurrentCost, 1e-9)

	final, err := s.EndRide(context.Background())
	require.NoError(t, err)
	require.NotNil(t, final)
	return final, s
}

func TestEndRideTrustsBareStopFigures(t *testing.T) {
	for name, body := range map[string]string{
		"figures only":    `{"durationSeconds": 0, "cost": 52}`,
		"without scooter": `{"id": "r-1", "status": "completed", "durationSeconds": 0, "cost": 52}`,
	} {
		t.Run(name, func(t *testing.T) {
			final, s := endRideAgainst(t, body)

			assert.Equal(t, 52.0, final.Cost)
			assert.Equal(t, 1800, final.DurationSeconds)
			assert.Equal(t, "r-1", final.ID)
			assert.Equal(t, "SCOOT-1", final.ScooterID)
			assert.Equal(t, models.RideStatusCompleted, final.Status)
			require.NotNil(t, final.EndTime)
			assert.Equal(t, t0, *final.EndTime)
			assert.Equal(t, final, s.State().LastCompleted)
		})
	}
}

func TestEndRideStopRecordWithoutStartKeepsRideTimes(t *testing.T) {
	final, _ := endRideAgainst(t, `{"id":"r-1","scooterId":"SCOOT-1","status":"completed","durationSeconds":600,"cost":30}`)

	assert.Equal(t, t0.Add(-30*time.Minute), final.StartTime)
	require.NotNil(t, final.EndTime)
	assert.Equal(t, t0, *final.EndTime)
	assert.False(t, final.EndTime.Before(final.StartTime))
	assert.Equal(t, 600, final.DurationSeconds)
	assert.Equal(t, 30.0, final.Cost)
}

func TestEndRideStopRecordWithoutCostKeepsLocalCost(t *testing.T) {
	final, _ := endRideAgainst(t, `{"id":"r-1","scooterId":"SCOOT-1","durationSeconds":1790}`)

	assert.InDelta(t, 85.0, final.Cost, 1e-9, "an omitted cost is not a free ride")
	assert.Equal(t, 1790, final.DurationSeconds)
}

func TestEndRideInsufficientBalanceEndToEnd(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rent/start/SCOOT-123":
			_, _ = w.Write([]byte(`{"id": "r-123", "scooterId": "SCOOT-123"}`))
		case "/rent/stop/SCOOT-123":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Balance is insufficient"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	s, _ := newTestSession(t, client)

	_, err := s.StartRide(context.Background(), "SCOOT-123")
	require.NoError(t, err)

	_, err = s.EndRide(context.Background())
	require.Error(t, err)
	assert.Equal(t, common.MsgEndInsufficientBalance, common.UserMessage(err))
	assert.True(t, s.State().IsRiding)
	assert.Equal(t, "r-123", s.State().Ride.ID)
}

func TestActiveRideUsesHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rent/history", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.WriteHeader(http.StatusForbidden)
	})

	ride, err := client.ActiveRide(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ride)
}
