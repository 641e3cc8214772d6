package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/models"
	"go.uber.org/zap"
)

// ErrSourceClosed is returned by Watch after the source has been shut down.
var ErrSourceClosed = errors.New("geo: source closed")

const subscriberBuffer = 16

// Fix is one update from a location stream: a coordinate or a per-update error.
type Fix struct {
	Coordinate models.Coordinate
	Err        error
	At         time.Time
}

// Source is a cancelable stream of device location updates. Canceling ctx
// releases the subscription and closes the returned channel.
type Source interface {
	Watch(ctx context.Context) (<-chan Fix, error)
}

// ChannelSource is a push-fed Source. Each Watch call gets its own channel;
// a slow subscriber loses updates rather than blocking the producer.
type ChannelSource struct {
	mu     sync.Mutex
	subs   map[int]chan Fix
	nextID int
	closed bool
	now    func() time.Time
}

// NewChannelSource creates an empty push source.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{
		subs: make(map[int]chan Fix),
		now:  time.Now,
	}
}

// Watch implements Source.
func (s *ChannelSource) Watch(ctx context.Context) (<-chan Fix, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	id := s.nextID
	s.nextID++
	ch := make(chan Fix, subscriberBuffer)
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

// Push delivers a coordinate to every live subscriber.
func (s *ChannelSource) Push(coord models.Coordinate) {
	s.publish(Fix{Coordinate: coord, At: s.now()})
}

// PushError delivers a per-update failure to every live subscriber.
func (s *ChannelSource) PushError(err error) {
	s.publish(Fix{Err: err, At: s.now()})
}

func (s *ChannelSource) publish(fix Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- fix:
		default:
			logger.Debug("geo subscriber lagging, update dropped", zap.Int("subscriber", id))
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (s *ChannelSource) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close ends every subscription and rejects new ones.
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

var _ Source = (*ChannelSource)(nil)
