package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/internal/rides"
	"github.com/richxcame/scooter-ride/internal/zones"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/tracing"
)

// MockSession is a mock implementation of RideSession
type MockSession struct {
	mock.Mock
}

func (m *MockSession) StartRide(ctx context.Context, scooterID string) (*models.Ride, error) {
	args := m.Called(ctx, scooterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockSession) EndRide(ctx context.Context) (*models.Ride, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ride), args.Error(1)
}

func (m *MockSession) ClearLastCompleted() {
	m.Called()
}

func (m *MockSession) State() rides.SessionState {
	return m.Called().Get(0).(rides.SessionState)
}

type fakeTracker struct {
	state   zones.TrackerState
	refresh bool
	fixes   []models.Coordinate
}

func (f *fakeTracker) State() zones.TrackerState { return f.state }
func (f *fakeTracker) ForceRefresh() bool        { return f.refresh }
func (f *fakeTracker) OnLocationUpdate(coord models.Coordinate) {
	f.fixes = append(f.fixes, coord)
}

type fakeHistory struct {
	filter ridehistory.Filter
	rides  []models.Ride
	err    error
}

func (f *fakeHistory) Fetch(_ context.Context, filter ridehistory.Filter) ([]models.Ride, error) {
	f.filter = filter
	return f.rides, f.err
}

func setupTestRouter(session RideSession, tracker ZoneTracker, history HistoryFetcher, catalog *zones.Catalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(session, tracker, history, catalog).RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_StartRide(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		session := new(MockSession)
		start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		session.On("StartRide", mock.Anything, "SCOOT-123").Return(&models.Ride{
			ID: "r-1", ScooterID: "SCOOT-123", StartTime: start, Status: models.RideStatusActive,
		}, nil)

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/start/SCOOT-123", nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "r-1", data["id"])
		session.AssertExpectations(t)
	})

	t.Run("insufficient balance shows the fixed message", func(t *testing.T) {
		session := new(MockSession)
		session.On("StartRide", mock.Anything, "SCOOT-1").Return(nil,
			common.NewInsufficientBalanceError(common.MsgStartInsufficientBalance, errors.New("400")))

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/start/SCOOT-1", nil)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		errInfo := decodeResponse(t, w)["error"].(map[string]interface{})
		assert.Equal(t, common.MsgStartInsufficientBalance, errInfo["message"])
		assert.Equal(t, common.CodeInsufficientBalance, errInfo["error_code"])
	})

	t.Run("overlapping operation is a conflict", func(t *testing.T) {
		session := new(MockSession)
		session.On("StartRide", mock.Anything, "SCOOT-1").Return(nil,
			common.NewAlreadyActiveError(common.MsgRideInProgress))

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/start/SCOOT-1", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("blank scooter id", func(t *testing.T) {
		session := new(MockSession)
		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/start/%20", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		session.AssertNotCalled(t, "StartRide", mock.Anything, mock.Anything)
	})

	t.Run("unexpected error falls back to generic message", func(t *testing.T) {
		session := new(MockSession)
		session.On("StartRide", mock.Anything, "SCOOT-1").Return(nil, errors.New("boom"))

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/start/SCOOT-1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		errInfo := decodeResponse(t, w)["error"].(map[string]interface{})
		assert.Equal(t, common.MsgStartFailed, errInfo["message"])
	})
}

func TestHandler_EndRide(t *testing.T) {
	t.Run("completed ride", func(t *testing.T) {
		session := new(MockSession)
		end := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
		session.On("EndRide", mock.Anything).Return(&models.Ride{
			ID: "r-1", Status: models.RideStatusCompleted, EndTime: &end, Cost: 52, DurationSeconds: 1800,
		}, nil)

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/end", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w)["data"].(map[string]interface{})
		assert.Equal(t, float64(52), data["cost"])
		assert.Equal(t, float64(1800), data["duration_seconds"])
	})

	t.Run("no active ride", func(t *testing.T) {
		session := new(MockSession)
		session.On("EndRide", mock.Anything).Return(nil, nil)

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/end", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("network failure", func(t *testing.T) {
		session := new(MockSession)
		session.On("EndRide", mock.Anything).Return(nil,
			common.NewNetworkError(common.MsgEndFailed, errors.New("timeout")))

		router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/ride/end", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		errInfo := decodeResponse(t, w)["error"].(map[string]interface{})
		assert.Equal(t, common.MsgEndFailed, errInfo["message"])
	})
}

func TestHandler_EndRideAnnotatesRequestSpan(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	ctx, span := provider.Tracer("console-test").Start(context.Background(), "POST /api/v1/ride/end")

	session := new(MockSession)
	end := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	session.On("EndRide", mock.Anything).Return(&models.Ride{
		ID: "r-1", ScooterID: "SCOOT-1", Status: models.RideStatusCompleted, EndTime: &end, Cost: 52, DurationSeconds: 1800,
	}, nil)

	router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ride/end", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	span.End()

	require.Equal(t, http.StatusOK, w.Code)
	ended := spans.Ended()
	require.Len(t, ended, 1)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "r-1", attrs[tracing.RideIDKey].AsString())
	assert.Equal(t, "SCOOT-1", attrs[tracing.ScooterIDKey].AsString())
	assert.Equal(t, 52.0, attrs[tracing.FareAmountKey].AsFloat64())
	assert.Equal(t, int64(1800), attrs[tracing.DurationKey].AsInt64())
}

func TestHandler_GetRideAndClear(t *testing.T) {
	session := new(MockSession)
	session.On("State").Return(rides.SessionState{
		Phase: rides.PhaseActive, IsRiding: true, DurationSeconds: 65, CurrentCost: 15, Currency: "SEK",
	})
	session.On("ClearLastCompleted").Return()

	router := setupTestRouter(session, &fakeTracker{}, &fakeHistory{}, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/ride", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "active", data["phase"])
	assert.Equal(t, float64(15), data["current_cost"])

	w = doRequest(router, http.MethodDelete, "/api/v1/ride/last", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	session.AssertCalled(t, "ClearLastCompleted")
}

func TestHandler_Zones(t *testing.T) {
	ring := []models.Coordinate{
		{Latitude: 59.330, Longitude: 18.060},
		{Latitude: 59.330, Longitude: 18.062},
		{Latitude: 59.332, Longitude: 18.062},
		{Latitude: 59.332, Longitude: 18.060},
	}
	catalog := zones.NewCatalog([]models.PolygonZone{
		{ID: "nogo", Type: models.ZoneTypeNoGo, Priority: 10, Rings: [][]models.Coordinate{ring}},
	})
	inside := models.Coordinate{Latitude: 59.331, Longitude: 18.061}

	t.Run("state with local zone", func(t *testing.T) {
		tracker := &fakeTracker{state: zones.TrackerState{
			Rule:      &models.ZoneRuleMatch{Type: models.ZoneTypeNoGo, Priority: 10},
			LastKnown: &inside,
		}}
		router := setupTestRouter(new(MockSession), tracker, &fakeHistory{}, catalog)

		w := doRequest(router, http.MethodGet, "/api/v1/zones", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "no-go", data["rule"].(map[string]interface{})["type"])
		assert.Equal(t, "nogo", data["local_zone"].(map[string]interface{})["id"])
	})

	t.Run("refresh without location", func(t *testing.T) {
		router := setupTestRouter(new(MockSession), &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/zones/refresh", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("refresh accepted", func(t *testing.T) {
		router := setupTestRouter(new(MockSession), &fakeTracker{refresh: true}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodPost, "/api/v1/zones/refresh", nil)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("manual location", func(t *testing.T) {
		tracker := &fakeTracker{}
		router := setupTestRouter(new(MockSession), tracker, &fakeHistory{}, nil)

		w := doRequest(router, http.MethodPost, "/api/v1/zones/location", []byte(`{"latitude":59.331,"longitude":18.061}`))
		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, tracker.fixes, 1)
		assert.Equal(t, inside, tracker.fixes[0])

		w = doRequest(router, http.MethodPost, "/api/v1/zones/location", []byte(`{"latitude":120,"longitude":18}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Len(t, tracker.fixes, 1)
	})
}

func TestHandler_History(t *testing.T) {
	t.Run("filters are forwarded", func(t *testing.T) {
		history := &fakeHistory{rides: []models.Ride{{ID: "a"}, {ID: "b"}}}
		router := setupTestRouter(new(MockSession), &fakeTracker{}, history, nil)

		w := doRequest(router, http.MethodGet, "/api/v1/history?status=Completed&limit=5", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, ridehistory.Filter{Status: models.RideStatusCompleted, Limit: 5}, history.filter)
		resp := decodeResponse(t, w)
		assert.Len(t, resp["data"], 2)
		assert.Equal(t, float64(2), resp["meta"].(map[string]interface{})["total"])
	})

	t.Run("bad status", func(t *testing.T) {
		router := setupTestRouter(new(MockSession), &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodGet, "/api/v1/history?status=paused", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		router := setupTestRouter(new(MockSession), &fakeTracker{}, &fakeHistory{}, nil)
		w := doRequest(router, http.MethodGet, "/api/v1/history?limit=-2", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty list is still a list", func(t *testing.T) {
		history := &fakeHistory{rides: []models.Ride{}}
		router := setupTestRouter(new(MockSession), &fakeTracker{}, history, nil)

		w := doRequest(router, http.MethodGet, "/api/v1/history", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{}, decodeResponse(t, w)["data"])
	})

	t.Run("upstream failure", func(t *testing.T) {
		history := &fakeHistory{err: common.NewNetworkError("failed to fetch ride history", errors.New("down"))}
		router := setupTestRouter(new(MockSession), &fakeTracker{}, history, nil)

		w := doRequest(router, http.MethodGet, "/api/v1/history", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	session := new(MockSession)
	session.On("State").Return(rides.SessionState{Phase: rides.PhaseIdle})
	router := setupTestRouter(session, &fakeTracker{state: zones.TrackerState{Watching: true}}, &fakeHistory{}, nil)

	w := doRequest(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeResponse(t, w)
	assert.Equal(t, "idle", body["phase"])
	assert.Equal(t, true, body["watching"])

	w = doRequest(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
