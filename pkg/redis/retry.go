package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/richxcame/scooter-ride/pkg/resilience"
)

// RetryableOperation executes a Redis operation with retry logic for transient failures
func RetryableOperation[T any](ctx context.Context, operation func(context.Context) (T, error), operationName string) (T, error) {
	config := resilience.DefaultRetryConfig()
	config.MaxAttempts = 3
	config.InitialBackoff = 50 * time.Millisecond
	config.MaxBackoff = 1 * time.Second
	config.RetryableChecker = isRedisRetryable

	result, err := resilience.RetryWithName(ctx, config, func(ctx context.Context) (interface{}, error) {
		return operation(ctx)
	}, operationName)

	if err != nil {
		return *new(T), err
	}

	return result.(T), nil
}

// RetryableSet sets a key-value pair with retry logic
func (c *Client) RetryableSet(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_, err := RetryableOperation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.SetWithExpiration(ctx, key, value, expiration)
	}, "redis.set")
	return err
}

// RetryableGet gets a value by key with retry logic
func (c *Client) RetryableGet(ctx context.Context, key string) (string, error) {
	return RetryableOperation(ctx, c.getter(key), "redis.get")
}

func (c *Client) getter(key string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return c.GetString(ctx, key)
	}
}

// isRedisRetryable treats connection-level failures as transient; a missing
// key or a script error is final.
func isRedisRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "i/o timeout", "broken pipe", "eof", "loading", "tryagain"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
