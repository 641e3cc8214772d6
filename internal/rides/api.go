package rides

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/scooter-ride/internal/payload"
	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/resilience"
)

const (
	startPath = "/rent/start/"
	stopPath  = "/rent/stop/"
)

// API is the rental backend as seen by a ride session.
type API interface {
	StartRide(ctx context.Context, scooterID string) (*models.Ride, error)
	// StopRide returns (nil, nil) when the backend confirmed the stop but sent
	// no usable ride figures.
	StopRide(ctx context.Context, active *models.Ride, idempotencyKey string) (*ridehistory.StopRecord, error)
	ActiveRide(ctx context.Context) (*models.Ride, error)
}

// Client talks to the /rent endpoints.
type Client struct {
	start   *httpclient.Client
	stop    *httpclient.Client
	history *ridehistory.Service
	breaker *resilience.CircuitBreaker
	now     func() time.Time
}

var _ API = (*Client)(nil)

// NewClient creates a rent client. Starting a ride is not idempotent and is
// attempted once; stopping carries an idempotency key and is retried.
func NewClient(client *httpclient.Client, history *ridehistory.Service) *Client {
	return &Client{
		start:   client.WithOptions(httpclient.WithRetry(resilience.NoRetryConfig())),
		stop:    client.WithOptions(httpclient.WithRetry(resilience.DefaultRetryConfig())),
		history: history,
		now:     time.Now,
	}
}

// SetCircuitBreaker sets the breaker shared by the rent endpoints.
func (c *Client) SetCircuitBreaker(cb *resilience.CircuitBreaker) {
	c.breaker = cb
}

// StartRide calls POST /rent/start/{scooterId}.
func (c *Client) StartRide(ctx context.Context, scooterID string) (*models.Ride, error) {
	body, err := c.post(ctx, c.start, startPath+url.PathEscape(scooterID), "")
	if err != nil {
		return nil, mapRentError(err, common.MsgStartInsufficientBalance, common.MsgStartFailed)
	}

	obj := recordObject(body)
	ride, err := ridehistory.Normalize(obj)
	if err != nil {
		// The ride exists server-side as long as we learned its id.
		id, ok := payload.String(firstValue(obj, "id", "rideId", "tripId", "_id"))
		if !ok {
			return nil, common.NewMalformedRecordError(common.MsgStartFailed, err)
		}
		logger.WithContext(ctx).Warn("start response without a usable ride record",
			zap.String("ride_id", id), zap.Error(err))
		ride = &models.Ride{ID: id}
	}

	if ride.ScooterID == "" {
		ride.ScooterID = scooterID
	}
	if ride.StartTime.IsZero() {
		ride.StartTime = c.now().UTC()
	}
	ride.Status = models.RideStatusActive
	ride.EndTime = nil
	ride.Cost = 0
	ride.DurationSeconds = 0
	return ride, nil
}

// StopRide calls POST /rent/stop/{scooterId} with idempotencyKey. The body
// is read against active, so a response carrying only the final figures
// still counts.
func (c *Client) StopRide(ctx context.Context, active *models.Ride, idempotencyKey string) (*ridehistory.StopRecord, error) {
	body, err := c.post(ctx, c.stop, stopPath+url.PathEscape(active.ScooterID), idempotencyKey)
	if err != nil {
		return nil, mapRentError(err, common.MsgEndInsufficientBalance, common.MsgEndFailed)
	}

	rec, err := ridehistory.NormalizeStop(recordObject(body), active)
	if err != nil {
		logger.WithContext(ctx).Warn("stop response without a usable ride record", zap.Error(err))
		return nil, nil
	}
	if rec == nil {
		logger.WithContext(ctx).Warn("stop response carried no ride figures")
	}
	return rec, nil
}

// ActiveRide returns the backend's active ride for the user, if any.
func (c *Client) ActiveRide(ctx context.Context) (*models.Ride, error) {
	return c.history.Active(ctx)
}

func (c *Client) post(ctx context.Context, client *httpclient.Client, path, idempotencyKey string) ([]byte, error) {
	result, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		if idempotencyKey != "" {
			return client.PostWithIdempotency(ctx, path, nil, nil, idempotencyKey)
		}
		return client.Post(ctx, path, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// mapRentError turns a transport error into the session's error taxonomy.
// A 400 whose body mentions "insufficient" is a balance rejection.
func mapRentError(err error, balanceMsg, failedMsg string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(httpErr.Body), "insufficient") {
		return common.NewInsufficientBalanceError(balanceMsg, err)
	}
	return common.NewNetworkError(failedMsg, err)
}

// recordObject unwraps the ride record from a start/stop response.
func recordObject(body []byte) map[string]interface{} {
	doc, err := payload.Decode(body)
	if err != nil {
		return nil
	}
	obj, ok := payload.Object(doc)
	if !ok {
		return nil
	}
	for _, path := range []string{"ride", "trip", "rental", "data.ride", "data.trip", "data"} {
		if v, found := payload.Lookup(obj, path); found {
			if inner, ok := payload.Object(v); ok {
				return inner
			}
		}
	}
	return obj
}

func firstValue(obj map[string]interface{}, paths ...string) interface{} {
	if obj == nil {
		return nil
	}
	v, _, _ := payload.First(obj, paths...)
	return v
}
