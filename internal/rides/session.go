package rides

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/eventbus"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/validation"
)

// Phase is the session's position in the ride lifecycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseActive   Phase = "active"
	PhaseEnding   Phase = "ending"
)

// SessionState is a snapshot of the session for UI consumers.
type SessionState struct {
	Phase Phase `json:"phase"`
	// IsRiding stays true while an end is pending; the ride only stops on a
	// confirmed end.
	IsRiding        bool         `json:"is_riding"`
	IsLoading       bool         `json:"is_loading"`
	Ride            *models.Ride `json:"ride,omitempty"`
	DurationSeconds int          `json:"duration_seconds"`
	CurrentCost     float64      `json:"current_cost"`
	Currency        string       `json:"currency"`
	LastCompleted   *models.Ride `json:"last_completed,omitempty"`
}

// Ticker delivers accrual ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the wall-clock TickerFactory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionClock overrides the clock used for timestamps and restores.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTickerFactory overrides the accrual ticker.
func WithTickerFactory(f TickerFactory) SessionOption {
	return func(s *Session) { s.newTicker = f }
}

// WithStore persists the active ride.
func WithStore(store Store) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithSessionPublisher publishes rides.started and rides.completed events.
func WithSessionPublisher(p eventbus.Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithLogger overrides the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// Session owns at most one active ride, its one-second accrual counter and
// the running cost estimate.
//
// Starting, ending and restoring all pass through a pending phase that
// rejects any overlapping start, end or restore with AlreadyActive. The
// session only leaves Active on a confirmed end; a failed end leaves the ride
// running so the end can be retried with the same idempotency key.
type Session struct {
	api       API
	pricing   Pricing
	now       func() time.Time
	newTicker TickerFactory
	store     Store
	publisher eventbus.Publisher
	log       *zap.Logger

	wg sync.WaitGroup

	mu            sync.Mutex
	phase         Phase
	ride          *models.Ride
	duration      int
	lastCompleted *models.Ride
	endKey        string
	accrualStop   chan struct{}
	subscribers   []subscriber
	nextSubID     int
}

type subscriber struct {
	id int
	fn func(SessionState)
}

// NewSession creates an idle session.
func NewSession(api API, pricing Pricing, opts ...SessionOption) *Session {
	s := &Session{
		api:       api,
		pricing:   pricing,
		now:       time.Now,
		newTicker: NewTimeTicker,
		store:     NewMemoryStore(),
		publisher: eventbus.NopPublisher{},
		log:       logger.Named("ride-session"),
		phase:     PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRide unlocks scooterID and begins accrual from zero.
func (s *Session) StartRide(ctx context.Context, scooterID string) (*models.Ride, error) {
	scooterID = strings.TrimSpace(scooterID)
	if err := validation.ValidateScooterID(scooterID); err != nil {
		return nil, common.NewInvalidInputError("scooter id is required")
	}
	if err := s.enter(PhaseStarting); err != nil {
		return nil, err
	}
	s.notify()

	ride, err := s.api.StartRide(ctx, scooterID)
	if err != nil {
		s.setPhase(PhaseIdle)
		rideTransitionsTotal.WithLabelValues("start", "failure").Inc()
		s.log.Warn("ride start failed", zap.String("scooter_id", scooterID), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.activateLocked(ride, 0)
	snapshot := s.ride.Clone()
	s.mu.Unlock()

	rideTransitionsTotal.WithLabelValues("start", "success").Inc()
	ctx = logger.ContextWithRideID(ctx, snapshot.ID)
	logger.WithContext(ctx).Info("ride started", zap.String("scooter_id", snapshot.ScooterID))

	s.saveSnapshot(ctx, snapshot)
	s.publish(ctx, eventbus.SubjectRideStarted, eventbus.RideStartedData{
		RideID:    snapshot.ID,
		ScooterID: snapshot.ScooterID,
		UserID:    snapshot.UserID,
		StartedAt: snapshot.StartTime,
	})
	s.notify()
	return snapshot, nil
}

// EndRide stops the active ride and returns the reconciled record. With no
// active ride it does nothing and returns nil, nil.
func (s *Session) EndRide(ctx context.Context) (*models.Ride, error) {
	s.mu.Lock()
	switch s.phase {
	case PhaseIdle:
		s.mu.Unlock()
		return nil, nil
	case PhaseStarting, PhaseEnding:
		s.mu.Unlock()
		return nil, common.NewAlreadyActiveError(common.MsgRideInProgress)
	}
	s.phase = PhaseEnding
	if s.endKey == "" {
		s.endKey = uuid.New().String()
	}
	key := s.endKey
	ride := s.ride.Clone()
	fallback := s.fallbackLocked()
	s.mu.Unlock()
	s.notify()

	ctx = logger.ContextWithRideID(ctx, ride.ID)
	server, err := s.api.StopRide(ctx, ride, key)
	if err != nil {
		s.mu.Lock()
		if s.phase == PhaseEnding {
			s.phase = PhaseActive
		}
		s.mu.Unlock()
		s.notify()
		rideTransitionsTotal.WithLabelValues("end", "failure").Inc()
		logger.WithContext(ctx).Warn("ride end failed; ride stays active", zap.Error(err))
		return nil, err
	}

	final, source := reconcile(server, fallback)
	rideReconciliationsTotal.WithLabelValues(source).Inc()

	s.mu.Lock()
	s.stopAccrualLocked()
	s.ride = nil
	s.duration = 0
	s.endKey = ""
	s.lastCompleted = final.Clone()
	s.phase = PhaseIdle
	rideAccruedSeconds.Set(0)
	s.mu.Unlock()

	rideTransitionsTotal.WithLabelValues("end", "success").Inc()
	logger.WithContext(ctx).Info("ride completed",
		zap.Int("duration_seconds", final.DurationSeconds),
		zap.Float64("cost", final.Cost),
		zap.String("source", source),
	)

	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn("failed to clear stored ride", zap.Error(err))
	}
	s.publish(ctx, eventbus.SubjectRideCompleted, eventbus.RideCompletedData{
		RideID:          final.ID,
		ScooterID:       final.ScooterID,
		Cost:            final.Cost,
		Currency:        s.pricing.Currency,
		DurationSeconds: final.DurationSeconds,
		LocalDuration:   source == sourceLocalDuration || source == sourceLocalFallback,
		CompletedAt:     *final.EndTime,
	})
	s.notify()
	return final, nil
}

// Restore resumes a ride the backend still considers active, with accrual
// continuing from the ride's start time. When the backend cannot be reached
// the stored snapshot is resumed instead.
func (s *Session) Restore(ctx context.Context) (*models.Ride, error) {
	if err := s.enter(PhaseStarting); err != nil {
		return nil, err
	}
	s.notify()

	ride, err := s.api.ActiveRide(ctx)
	if err != nil {
		stored, loadErr := s.store.Load(ctx)
		if loadErr != nil || stored == nil {
			s.setPhase(PhaseIdle)
			if loadErr != nil {
				s.log.Warn("failed to load stored ride", zap.Error(loadErr))
			}
			return nil, err
		}
		s.log.Warn("backend unreachable; resuming stored ride",
			zap.String("ride_id", stored.ID), zap.Error(err))
		ride = stored
	} else if ride == nil {
		if err := s.store.Clear(ctx); err != nil {
			s.log.Warn("failed to clear stored ride", zap.Error(err))
		}
		s.setPhase(PhaseIdle)
		return nil, nil
	}

	s.mu.Lock()
	s.activateLocked(ride, s.elapsed(ride))
	snapshot := s.ride.Clone()
	s.mu.Unlock()

	logger.WithContext(logger.ContextWithRideID(ctx, snapshot.ID)).Info("ride restored",
		zap.Int("duration_seconds", s.State().DurationSeconds))
	s.saveSnapshot(ctx, snapshot)
	s.notify()
	return snapshot, nil
}

// ClearLastCompleted drops the completed-ride summary.
func (s *Session) ClearLastCompleted() {
	s.mu.Lock()
	s.lastCompleted = nil
	s.mu.Unlock()
	s.notify()
}

// Close stops accrual and waits for the accrual goroutine. The ride itself is
// left as is; a later Restore picks it up again.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopAccrualLocked()
	s.mu.Unlock()
	s.wg.Wait()
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	riding := s.phase == PhaseActive || s.phase == PhaseEnding
	state := SessionState{
		Phase:         s.phase,
		IsRiding:      riding,
		IsLoading:     s.phase == PhaseStarting || s.phase == PhaseEnding,
		Ride:          s.ride.Clone(),
		Currency:      s.pricing.Currency,
		LastCompleted: s.lastCompleted.Clone(),
	}
	if riding {
		state.DurationSeconds = s.duration
		state.CurrentCost = s.pricing.Cost(s.duration)
	}
	return state
}

// Subscribe registers fn to receive a snapshot after every state change,
// including each accrual tick. Call the returned func to unsubscribe.
func (s *Session) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	state := s.stateLocked()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
}

// enter moves an idle session into a pending phase.
func (s *Session) enter(pending Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return common.NewAlreadyActiveError(common.MsgRideInProgress)
	}
	s.phase = pending
	return nil
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.notify()
}

func (s *Session) activateLocked(ride *models.Ride, duration int) {
	s.ride = ride.Clone()
	s.ride.Status = models.RideStatusActive
	s.ride.EndTime = nil
	s.duration = duration
	s.endKey = ""
	s.phase = PhaseActive
	rideAccruedSeconds.Set(float64(duration))
	s.startAccrualLocked()
}

// elapsed is the accrued time of a resumed ride.
func (s *Session) elapsed(ride *models.Ride) int {
	if ride.StartTime.IsZero() {
		return ride.DurationSeconds
	}
	d := int(s.now().Sub(ride.StartTime) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) startAccrualLocked() {
	s.stopAccrualLocked()
	stop := make(chan struct{})
	s.accrualStop = stop
	ticker := s.newTicker(time.Second)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				s.tick(stop)
			}
		}
	}()
}

func (s *Session) stopAccrualLocked() {
	if s.accrualStop != nil {
		close(s.accrualStop)
		s.accrualStop = nil
	}
}

func (s *Session) tick(stop chan struct{}) {
	s.mu.Lock()
	if s.accrualStop != stop {
		s.mu.Unlock()
		return
	}
	s.duration++
	rideAccruedSeconds.Set(float64(s.duration))
	s.mu.Unlock()
	s.notify()
}

// fallbackLocked is the completed ride as known locally.
func (s *Session) fallbackLocked() *models.Ride {
	now := s.now().UTC()
	ride := s.ride.Clone()
	ride.Status = models.RideStatusCompleted
	ride.EndTime = &now
	ride.DurationSeconds = s.duration
	ride.Cost = s.pricing.Cost(s.duration)
	return ride
}

// reconcile merges the backend's stop record with the local snapshot. A cost
// the backend sent always wins; an absent cost or a zero duration is
// replaced by the local figure.
func reconcile(server *ridehistory.StopRecord, fallback *models.Ride) (*models.Ride, string) {
	if server == nil || server.Ride == nil {
		return fallback.Clone(), sourceLocalFallback
	}

	final := server.Ride.Clone()
	source := sourceServer
	if final.ID == "" {
		final.ID = fallback.ID
	}
	if final.ScooterID == "" {
		final.ScooterID = fallback.ScooterID
	}
	if final.UserID == "" {
		final.UserID = fallback.UserID
	}
	if final.StartTime.IsZero() {
		final.StartTime = fallback.StartTime
	}
	if !server.CostKnown {
		final.Cost = fallback.Cost
		source = sourceLocalCost
	}
	if final.DurationSeconds == 0 {
		final.DurationSeconds = fallback.DurationSeconds
		if source == sourceLocalCost {
			source = sourceLocalFallback
		} else {
			source = sourceLocalDuration
		}
	}
	if !final.Status.IsTerminal() {
		final.Status = models.RideStatusCompleted
	}
	if final.EndTime == nil || final.EndTime.IsZero() || final.EndTime.Before(final.StartTime) {
		end := *fallback.EndTime
		final.EndTime = &end
	}
	return final, source
}

func (s *Session) saveSnapshot(ctx context.Context, ride *models.Ride) {
	if err := s.store.Save(ctx, ride); err != nil {
		s.log.Warn("failed to store active ride", zap.String("ride_id", ride.ID), zap.Error(err))
	}
}

func (s *Session) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.log.Warn("failed to publish ride event", zap.String("subject", subject), zap.Error(err))
	}
}
