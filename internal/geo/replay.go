package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/richxcame/scooter-ride/pkg/models"
	"golang.org/x/time/rate"
)

// DefaultReplayInterval matches the cadence of a typical phone GPS.
const DefaultReplayInterval = time.Second

// ReplaySource plays back a recorded track at a fixed pace.
type ReplaySource struct {
	track    []models.Coordinate
	interval time.Duration
	loop     bool
	now      func() time.Time
}

// ReplayOption configures a ReplaySource.
type ReplayOption func(*ReplaySource)

// WithInterval sets the delay between fixes.
func WithInterval(d time.Duration) ReplayOption {
	return func(r *ReplaySource) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLoop restarts the track from the beginning when it ends.
func WithLoop() ReplayOption {
	return func(r *ReplaySource) { r.loop = true }
}

// NewReplaySource creates a source over track.
func NewReplaySource(track []models.Coordinate, opts ...ReplayOption) *ReplaySource {
	r := &ReplaySource{
		track:    append([]models.Coordinate(nil), track...),
		interval: DefaultReplayInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadTrack reads a JSON array of {latitude, longitude} objects.
func LoadTrack(r io.Reader) ([]models.Coordinate, error) {
	var track []models.Coordinate
	if err := json.NewDecoder(r).Decode(&track); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	return track, nil
}

// LoadTrackFile reads a track from path.
func LoadTrackFile(path string) ([]models.Coordinate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTrack(f)
}

// Watch implements Source. The channel closes when the track ends (unless
// looping) or ctx is canceled.
func (r *ReplaySource) Watch(ctx context.Context) (<-chan Fix, error) {
	if len(r.track) == 0 {
		return nil, fmt.Errorf("replay track is empty")
	}

	limiter := rate.NewLimiter(rate.Every(r.interval), 1)
	ch := make(chan Fix)

	go func() {
		defer close(ch)
		for {
			for _, coord := range r.track {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				select {
				case ch <- Fix{Coordinate: coord, At: r.now()}:
				case <-ctx.Done():
					return
				}
			}
			if !r.loop {
				return
			}
		}
	}()

	return ch, nil
}

var _ Source = (*ReplaySource)(nil)
