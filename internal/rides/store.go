package rides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redisClient "github.com/richxcame/scooter-ride/pkg/redis"
	"github.com/richxcame/scooter-ride/pkg/models"
)

const (
	activeRideKey = "scooter:ride:active"
	activeRideTTL = 24 * time.Hour
)

// Store keeps the active ride across process restarts so a session can be
// resumed while the backend is unreachable.
type Store interface {
	Save(ctx context.Context, ride *models.Ride) error
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*models.Ride, error)
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	ride *models.Ride
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, ride *models.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ride = ride.Clone()
	return nil
}

func (s *MemoryStore) Load(context.Context) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ride.Clone(), nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ride = nil
	return nil
}

// RedisStore persists the active ride as JSON under a single key.
type RedisStore struct {
	client redisClient.ClientInterface
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a store on client. An empty key uses the default.
func NewRedisStore(client redisClient.ClientInterface, key string) *RedisStore {
	if key == "" {
		key = activeRideKey
	}
	return &RedisStore{client: client, key: key, ttl: activeRideTTL}
}

func (s *RedisStore) Save(ctx context.Context, ride *models.Ride) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("failed to marshal ride snapshot: %w", err)
	}
	return s.client.SetWithExpiration(ctx, s.key, string(data), s.ttl)
}

func (s *RedisStore) Load(ctx context.Context) (*models.Ride, error) {
	data, err := s.client.GetString(ctx, s.key)
	if err != nil {
		if errors.Is(err, redisClient.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var ride models.Ride
	if err := json.Unmarshal([]byte(data), &ride); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ride snapshot: %w", err)
	}
	return &ride, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Delete(ctx, s.key)
}
