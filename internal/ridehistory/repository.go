package ridehistory

import (
	"context"
	"net/url"
	"strconv"

	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/resilience"
)

const historyPath = "/rent/history"

// Repository reads raw ride history from the rental backend.
type Repository struct {
	http    *httpclient.Client
	breaker *resilience.CircuitBreaker
}

// NewRepository creates a history repository. History reads are idempotent
// and therefore retried with the default backoff.
func NewRepository(client *httpclient.Client) *Repository {
	return &Repository{
		http: client.WithOptions(httpclient.WithRetry(resilience.DefaultRetryConfig())),
	}
}

// SetCircuitBreaker sets the breaker shared with the other rent endpoints.
func (r *Repository) SetCircuitBreaker(cb *resilience.CircuitBreaker) {
	r.breaker = cb
}

// FetchRaw returns the undecoded history body for filter.
func (r *Repository) FetchRaw(ctx context.Context, filter Filter) ([]byte, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	result, err := r.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return r.http.Get(ctx, historyPath, query, nil)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
