package zones

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/richxcame/scooter-ride/internal/geo"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/eventbus"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/tracing"
	"github.com/richxcame/scooter-ride/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMinFetchInterval is the minimum gap between organic zone checks.
const DefaultMinFetchInterval = 8000 * time.Millisecond

const tracerName = "zones"

// TrackerState is a snapshot of what the tracker knows.
type TrackerState struct {
	Rule           *models.ZoneRuleMatch `json:"rule"`
	NearestParking *models.ParkingHint   `json:"nearest_parking"`
	IsChecking     bool                  `json:"is_checking"`
	Error          string                `json:"error,omitempty"`
	LastUpdated    *time.Time            `json:"last_updated,omitempty"`
	LastKnown      *models.Coordinate    `json:"last_known,omitempty"`
	Watching       bool                  `json:"watching"`
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMinFetchInterval overrides the throttle window.
func WithMinFetchInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d >= 0 {
			t.minInterval = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithPublisher publishes zones.rule_changed events.
func WithPublisher(p eventbus.Publisher) TrackerOption {
	return func(t *Tracker) { t.publisher = p }
}

// WithCity sets the city sent with every check.
func WithCity(city string) TrackerOption {
	return func(t *Tracker) { t.city = city }
}

// Tracker turns a location stream into throttled zone checks and keeps the
// latest rule, parking hint and error.
//
// Organic updates are dropped (never queued) while inside the throttle window
// or while another organic check is in flight. Forced refreshes bypass both.
// Every check carries a sequence number and a response older than the last
// applied one is discarded, so a slow reply can never overwrite newer data.
type Tracker struct {
	client      Checker
	source      geo.Source
	minInterval time.Duration
	now         func() time.Time
	publisher   eventbus.Publisher
	log         *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex
	city            string
	lastKnown       *models.Coordinate
	lastCheckStart  time.Time
	hasChecked      bool
	inFlight        int
	organicInFlight bool
	nextSeq         uint64
	lastApplied     uint64
	rule            *models.ZoneRuleMatch
	parking         *models.ParkingHint
	errMsg          string
	lastUpdated     *time.Time
	stopWatch       context.CancelFunc
	watchDone       chan struct{}
	subscribers     []subscriber
	nextSubID       int
}

type subscriber struct {
	id int
	fn func(TrackerState)
}

// NewTracker creates a tracker fed by source.
func NewTracker(client Checker, source geo.Source, opts ...TrackerOption) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		client:      client,
		source:      source,
		minInterval: DefaultMinFetchInterval,
		now:         time.Now,
		publisher:   eventbus.NopPublisher{},
		log:         logger.Named("zone-tracker"),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins observing the location stream when enabled is true and stops
// it when false. Starting an already running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context, enabled bool) error {
	if !enabled {
		t.Stop()
		return nil
	}

	t.mu.Lock()
	if t.stopWatch != nil {
		t.mu.Unlock()
		return nil
	}

	watchCtx, stop := context.WithCancel(ctx)
	fixes, err := t.source.Watch(watchCtx)
	if err != nil {
		t.mu.Unlock()
		stop()
		return err
	}
	done := make(chan struct{})
	t.stopWatch = stop
	t.watchDone = done
	t.mu.Unlock()

	go t.consume(fixes, done)
	t.notify()

	t.log.Info("zone tracking started")
	return nil
}

func (t *Tracker) consume(fixes <-chan geo.Fix, done chan struct{}) {
	for fix := range fixes {
		if fix.Err != nil {
			// The next fix retriggers the check.
			t.log.Warn("location update failed", zap.Error(fix.Err))
			continue
		}
		t.onLocationUpdate(fix.Coordinate)
	}

	// The source may end the stream on its own; a later Start must be able
	// to subscribe again.
	t.mu.Lock()
	var stop context.CancelFunc
	if t.watchDone == done {
		stop = t.stopWatch
		t.stopWatch, t.watchDone = nil, nil
	}
	t.mu.Unlock()
	close(done)

	if stop != nil {
		stop()
		t.notify()
		t.log.Info("location stream ended; zone tracking stopped")
	}
}

// Stop releases the location subscription. In-flight checks still complete.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, done := t.stopWatch, t.watchDone
	t.stopWatch, t.watchDone = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
	t.notify()
	t.log.Info("zone tracking stopped")
}

// Close stops tracking, cancels in-flight checks and waits for them.
func (t *Tracker) Close() {
	t.Stop()
	t.cancel()
	t.wg.Wait()
}

// Wait blocks until every in-flight check has settled.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// SetCity changes the city sent with subsequent checks.
func (t *Tracker) SetCity(city string) {
	t.mu.Lock()
	t.city = city
	t.mu.Unlock()
}

// ForceRefresh checks the last known coordinate immediately, ignoring the
// throttle. It reports false when no coordinate has been observed yet.
func (t *Tracker) ForceRefresh() bool {
	t.mu.Lock()
	last := t.lastKnown
	t.mu.Unlock()

	if last == nil {
		return false
	}
	return t.requestCheck(*last, true)
}

// OnLocationUpdate feeds a coordinate as if it came from the source.
func (t *Tracker) OnLocationUpdate(coord models.Coordinate) {
	t.onLocationUpdate(coord)
}

func (t *Tracker) onLocationUpdate(coord models.Coordinate) {
	if err := validation.ValidateCoordinate(coord); err != nil {
		t.log.Debug("dropping invalid coordinate", zap.Error(err))
		return
	}

	t.mu.Lock()
	c := coord
	t.lastKnown = &c
	t.mu.Unlock()

	t.requestCheck(coord, false)
}

// requestCheck starts a check unless an organic request is throttled. It
// reports whether a check was issued.
func (t *Tracker) requestCheck(coord models.Coordinate, force bool) bool {
	t.mu.Lock()
	now := t.now()
	if !force {
		if t.organicInFlight || (t.hasChecked && now.Sub(t.lastCheckStart) < t.minInterval) {
			t.mu.Unlock()
			zoneChecksThrottled.Inc()
			return false
		}
		t.organicInFlight = true
	}
	t.lastCheckStart = now
	t.hasChecked = true
	t.nextSeq++
	seq := t.nextSeq
	t.inFlight++
	city := t.city
	t.mu.Unlock()

	t.notify()

	t.wg.Add(1)
	go t.runCheck(seq, coord, city, force)
	return true
}

func (t *Tracker) runCheck(seq uint64, coord models.Coordinate, city string, force bool) {
	defer t.wg.Done()

	ctx, span := tracing.StartSpan(t.ctx, tracerName, "zones.check")
	defer span.End()
	span.SetAttributes(tracing.ZoneCheckSeqKey.Int64(int64(seq)), attribute.Bool("zone.forced", force))
	span.SetAttributes(tracing.LocationAttributes(coord.Latitude, coord.Longitude)...)

	started := time.Now()
	result, err := t.client.Check(ctx, coord, city)
	zoneCheckDuration.Observe(time.Since(started).Seconds())

	var changed *eventbus.ZoneRuleChangedData

	t.mu.Lock()
	t.inFlight--
	if !force {
		t.organicInFlight = false
	}

	switch {
	case seq < t.lastApplied:
		zoneChecksStale.Inc()
		t.log.Debug("discarding stale zone check", zap.Uint64("seq", seq), zap.Uint64("last_applied", t.lastApplied))
	case err != nil:
		t.lastApplied = seq
		zoneChecksTotal.WithLabelValues(resultFailure).Inc()
		if !errors.Is(err, context.Canceled) {
			// Keep the last rule and parking hint: stale zone data is safer than none.
			t.errMsg = common.MsgZoneCheckFailed
			tracing.RecordError(ctx, err)
			t.log.Warn("zone check failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	default:
		t.lastApplied = seq
		zoneChecksTotal.WithLabelValues(resultSuccess).Inc()
		from, to := ruleType(t.rule), ruleType(result.Rule)
		t.rule = result.Rule
		t.parking = result.NearestParking
		t.errMsg = ""
		now := t.now()
		t.lastUpdated = &now
		if from != to {
			changed = &eventbus.ZoneRuleChangedData{
				From:      from,
				To:        to,
				Latitude:  coord.Latitude,
				Longitude: coord.Longitude,
				ChangedAt: now,
			}
			if result.Rule != nil {
				changed.Priority = result.Rule.Priority
				span.SetAttributes(tracing.ZoneTypeKey.String(to))
			}
		}
	}
	t.mu.Unlock()

	t.notify()

	if changed != nil {
		if err := t.publisher.Publish(t.ctx, eventbus.SubjectZoneRuleChanged, changed); err != nil {
			t.log.Warn("failed to publish zone rule change", zap.Error(err))
		}
	}
}

func ruleType(r *models.ZoneRuleMatch) string {
	if r == nil {
		return ""
	}
	return r.Type
}

// State returns a snapshot of the tracker.
func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Tracker) stateLocked() TrackerState {
	s := TrackerState{
		Rule:           cloneRule(t.rule),
		NearestParking: cloneParking(t.parking),
		IsChecking:     t.inFlight > 0,
		Error:          t.errMsg,
		Watching:       t.stopWatch != nil,
	}
	if t.lastUpdated != nil {
		u := *t.lastUpdated
		s.LastUpdated = &u
	}
	if t.lastKnown != nil {
		c := *t.lastKnown
		s.LastKnown = &c
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every state change.
// Call the returned func to unsubscribe.
func (t *Tracker) Subscribe(fn func(TrackerState)) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers = append(t.subscribers, subscriber{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subscribers {
			if s.id == id {
				t.subscribers = append(t.subscribers[:i:i], t.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (t *Tracker) notify() {
	t.mu.Lock()
	state := t.stateLocked()
	subs := make([]subscriber, len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(state)
	}
}

func cloneRule(r *models.ZoneRuleMatch) *models.ZoneRuleMatch {
	if r == nil {
		return nil
	}
	c := *r
	if r.SpeedLimitKmh != nil {
		v := *r.SpeedLimitKmh
		c.SpeedLimitKmh = &v
	}
	return &c
}

func cloneParking(p *models.ParkingHint) *models.ParkingHint {
	if p == nil {
		return nil
	}
	c := *p
	if p.Priority != nil {
		v := *p.Priority
		c.Priority = &v
	}
	if p.DistanceMeters != nil {
		v := *p.DistanceMeters
		c.DistanceMeters = &v
	}
	return &c
}
