package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultTickInterval = 250 * time.Millisecond

// Estimator advances the published position between real updates by
// extrapolating from the last committed Timeline.
type Estimator struct {
	ps       *System
	clock    clockwork.Clock
	interval time.Duration

	// GuardStaleWrites discards an estimate when a real update was published
	// while it was being computed. Without it the last publish wins.
	GuardStaleWrites bool
}

func NewEstimator(ps *System, interval time.Duration, clock clockwork.Clock) *Estimator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Estimator{
		ps:       ps,
		clock:    clock,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled.
func (e *Estimator) Run(ctx context.Context) {
	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			e.Tick()
		}
	}
}

// Tick publishes one estimate if the timeline says something is playing. It
// reports whether a snapshot was published.
func (e *Estimator) Tick() (published bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Dropped estimator tick", slog.Any("panic", r))
			published = false
		}
	}()

	return e.publish(e.ps.timeline.Load(), e.ps.current())
}

// publish estimates from tl and republishes cur with the new position. tl and
// cur are loaded separately, so a Commit may land between the two loads.
func (e *Estimator) publish(tl *Timeline, cur *Snapshot) bool {
	if !tl.Playing {
		return false
	}
	position := FormatDuration(tl.Estimate(e.clock.Now()))
	if position == cur.Position {
		return false
	}
	next := cur.WithPosition(position)

	if e.GuardStaleWrites {
		return e.ps.publishIfCurrent(tl.Generation, cur, next)
	}
	e.ps.Publish(next)
	return true
}
