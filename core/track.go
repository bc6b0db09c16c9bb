package core

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/signalsfoundry/orbital-scope/model"
	"github.com/signalsfoundry/orbital-scope/timectrl"
)

// Tick interval bounds for the position track. Faster than MinTrackInterval
// buys no visible smoothness and burns solver time; slower than
// MaxTrackInterval makes objects visibly jump between refreshes.
const (
	MinTrackInterval     = 100 * time.Millisecond
	MaxTrackInterval     = time.Second
	DefaultTrackInterval = time.Second
)

// Snapshot is one coherent generation of propagated positions. Consumers
// read a snapshot pointer once per frame and never observe a mix of old and
// new positions.
type Snapshot struct {
	Positions []model.SatellitePosition
	At        time.Time
}

// TrackMetricsRecorder receives one observation per track refresh.
type TrackMetricsRecorder interface {
	ObserveTick(d time.Duration)
}

// PositionTrack periodically recomputes the position of every catalog object
// and publishes the results as an atomically swapped snapshot. The render
// loop and the track loop share no locks: readers load the current pointer,
// the track stores a fresh one.
type PositionTrack struct {
	catalog    *Catalog
	propagator *Propagator
	clock      timectrl.SimClock
	interval   time.Duration
	metrics    TrackMetricsRecorder

	snapshot atomic.Pointer[Snapshot]

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

// TrackOption customises a PositionTrack.
type TrackOption func(*PositionTrack)

// WithTrackInterval sets the refresh cadence. Values are clamped to
// [MinTrackInterval, MaxTrackInterval]; non-positive values select the
// default.
func WithTrackInterval(d time.Duration) TrackOption {
	return func(t *PositionTrack) { t.interval = clampTrackInterval(d) }
}

// WithTrackClock overrides the simulation time source.
func WithTrackClock(clock timectrl.SimClock) TrackOption {
	return func(t *PositionTrack) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithTrackMetricsRecorder wires refresh observations into a metrics sink.
func WithTrackMetricsRecorder(r TrackMetricsRecorder) TrackOption {
	return func(t *PositionTrack) { t.metrics = r }
}

// NewPositionTrack constructs a track over the given catalog. A nil
// propagator gets the default one.
func NewPositionTrack(catalog *Catalog, propagator *Propagator, opts ...TrackOption) *PositionTrack {
	if propagator == nil {
		propagator = NewPropagator()
	}
	t := &PositionTrack{
		catalog:    catalog,
		propagator: propagator,
		clock:      timectrl.SystemClock{},
		interval:   DefaultTrackInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the refresh loop. It computes an initial snapshot
// synchronously so consumers never render from an empty track, and it
// subscribes to the catalog so a feed replacement shows up immediately
// instead of after the next tick. Calling Start on a running track is a
// no-op.
func (t *PositionTrack) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	done := make(chan struct{})
	t.done = done
	t.unsubscribe = t.catalog.Subscribe(func(Event) { t.refresh() })

	t.refresh()
	go t.run(ctx, done)
}

// Stop halts the refresh loop and waits for it to exit. Calling Stop on a
// stopped track is a no-op.
func (t *PositionTrack) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	unsubscribe := t.unsubscribe
	t.cancel, t.done, t.unsubscribe = nil, nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	unsubscribe()
	cancel()
	<-done
}

// Snapshot returns the most recent generation, or an empty one before the
// first refresh.
func (t *PositionTrack) Snapshot() *Snapshot {
	if s := t.snapshot.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Interval returns the effective refresh cadence.
func (t *PositionTrack) Interval() time.Duration { return t.interval }

func (t *PositionTrack) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

// refresh computes one full generation and publishes it. Safe to call
// concurrently: each call builds its own slice and the pointer store is
// atomic, so the worst outcome of a race is that the newer generation wins.
func (t *PositionTrack) refresh() {
	started := time.Now()
	now := t.clock.Now()
	elements := t.catalog.List()

	positions := make([]model.SatellitePosition, 0, len(elements))
	for _, el := range elements {
		offset := now.Sub(el.Epoch).Seconds()
		st := t.propagator.Propagate(el, offset)
		positions = append(positions, model.SatellitePosition{
			ID:             el.ID,
			Name:           el.Name,
			Type:           el.Type,
			OrbitZone:      el.OrbitZone,
			RiskFactor:     el.RiskFactor,
			X:              st.Position.X,
			Y:              st.Position.Y,
			Z:              st.Position.Z,
			Altitude:       st.Altitude,
			InclinationDeg: el.Inclination * 180 / math.Pi,
		})
	}
	t.snapshot.Store(&Snapshot{Positions: positions, At: now})

	if t.metrics != nil {
		t.metrics.ObserveTick(time.Since(started))
	}
}

func clampTrackInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTrackInterval
	case d < MinTrackInterval:
		return MinTrackInterval
	case d > MaxTrackInterval:
		return MaxTrackInterval
	default:
		return d
	}
}
