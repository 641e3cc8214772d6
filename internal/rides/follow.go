package rides

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/richxcame/scooter-ride/pkg/logger"
)

// ZoneTracker is the part of the zone tracker a session drives.
type ZoneTracker interface {
	Start(ctx context.Context, enabled bool) error
}

// FollowRiding keeps tracker running exactly while s is riding. The current
// state is applied immediately; later changes are applied as the session
// reports them. A failed start is retried on the next state change. Call the
// returned func to detach.
func FollowRiding(ctx context.Context, s *Session, tracker ZoneTracker) func() {
	var mu sync.Mutex
	tracking := false

	// Snapshots may be delivered out of order, so every notification
	// re-reads the session instead of trusting its argument.
	apply := func() {
		mu.Lock()
		defer mu.Unlock()

		riding := s.State().IsRiding
		if riding == tracking {
			return
		}
		if err := tracker.Start(ctx, riding); err != nil {
			logger.WithContext(ctx).Warn("failed to switch zone tracking",
				zap.Bool("riding", riding), zap.Error(err))
			return
		}
		tracking = riding
	}

	unsubscribe := s.Subscribe(func(SessionState) { apply() })
	apply()
	return unsubscribe
}
