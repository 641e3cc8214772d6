package zones

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/resilience"
	"github.com/richxcame/scooter-ride/pkg/validation"
)

const checkPath = "/zones/check"

// Checker resolves the zone rule in force at a coordinate.
type Checker interface {
	Check(ctx context.Context, coord models.Coordinate, city string) (*models.ZoneCheckResult, error)
}

// Client calls GET /zones/check. It holds no state between calls.
type Client struct {
	http    *httpclient.Client
	breaker *resilience.CircuitBreaker
}

// NewClient creates a zone rule client. Zone checks are never retried; the
// next location update is the retry path.
func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// SetCircuitBreaker sets the circuit breaker for zone checks.
func (c *Client) SetCircuitBreaker(cb *resilience.CircuitBreaker) {
	c.breaker = cb
}

// Check implements Checker.
func (c *Client) Check(ctx context.Context, coord models.Coordinate, city string) (*models.ZoneCheckResult, error) {
	if err := validation.ValidateCoordinate(coord); err != nil {
		return nil, common.NewInvalidInputError(err.Error())
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', 6, 64))
	query.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', 6, 64))
	if city != "" {
		query.Set("city", city)
	}

	result, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.http.Get(ctx, checkPath, query, nil)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, common.NewNetworkError(common.MsgZoneCheckFailed, err)
	}

	body, _ := result.([]byte)
	checked, err := DecodeCheckResult(body, coord)
	if err != nil {
		return nil, common.NewMalformedRecordError(common.MsgZoneCheckFailed, err)
	}
	return checked, nil
}

var _ Checker = (*Client)(nil)
