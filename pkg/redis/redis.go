package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/scooter-ride/pkg/config"
	"github.com/richxcame/scooter-ride/pkg/tracing"
)

const tracerName = "redis"

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("redis: key not found")

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// Wrap adapts an existing go-redis client, e.g. one returned by redismock.
func Wrap(client *redis.Client) *Client {
	return &Client{Client: client}
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return tracing.TraceRedisCommand(ctx, tracerName, "set", key, func(ctx context.Context) error {
		return c.Set(ctx, key, value, expiration).Err()
	})
}

// GetString gets a string value by key. A missing key yields ErrNotFound.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	var value string
	err := tracing.TraceRedisCommand(ctx, tracerName, "get", key, func(ctx context.Context) error {
		v, err := c.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		value = v
		return err
	})
	return value, err
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	key := ""
	if len(keys) > 0 {
		key = keys[0]
	}
	return tracing.TraceRedisCommand(ctx, tracerName, "del", key, func(ctx context.Context) error {
		return c.Del(ctx, keys...).Err()
	})
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}
