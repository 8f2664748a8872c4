package playback

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func playingAt(clock clockwork.Clock, position, end time.Duration) Timeline {
	return Timeline{
		Position:  position,
		Timestamp: clock.Now(),
		Rate:      1.0,
		Playing:   true,
		End:       end,
	}
}

func TestTimeline_EstimateClampsToEnd(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	tl := playingAt(clock, 10*time.Second, 12*time.Second)

	clock.Advance(5 * time.Second)

	assert.Equal(t, 12*time.Second, tl.Estimate(clock.Now()))
}

func TestTimeline_EstimateHonoursRate(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	tl := playingAt(clock, 10*time.Second, Unbounded)
	tl.Rate = 2.0

	clock.Advance(3 * time.Second)

	assert.Equal(t, 16*time.Second, tl.Estimate(clock.Now()))
}

func TestTimeline_EstimateWhenNotPlaying(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	tl := playingAt(clock, 10*time.Second, Unbounded)
	tl.Playing = false

	clock.Advance(time.Minute)

	assert.Equal(t, 10*time.Second, tl.Estimate(clock.Now()))
}

func TestEstimator_TickPublishesClampedPosition(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	ps := NewPlaybackSystem()
	ps.Commit(playingAt(clock, 10*time.Second, 12*time.Second), Snapshot{
		Title:    "a good song",
		Artist:   "some artist",
		Status:   StatusPlaying,
		Position: FormatDuration(10 * time.Second),
		End:      FormatDuration(12 * time.Second),
		Artwork:  []byte{0xff},
	})
	before := ps.Snapshot()

	clock.Advance(5 * time.Second)
	e := NewEstimator(ps, DefaultTickInterval, clock)

	assert.True(t, e.Tick())
	after := ps.Snapshot()
	assert.Equal(t, "00:00:12.000", after.Position)

	// Everything but the position is carried over untouched.
	after.Position = before.Position
	assert.Equal(t, before, after)
}

func TestEstimator_TickIsNoopWhenNotPlaying(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	ps := NewPlaybackSystem()
	tl := playingAt(clock, 10*time.Second, Unbounded)
	tl.Playing = false
	ps.Commit(tl, Snapshot{Title: "paused song", Status: StatusPaused, Position: "00:00:10.000"})

	clock.Advance(5 * time.Second)

	assert.False(t, NewEstimator(ps, DefaultTickInterval, clock).Tick())
	assert.Equal(t, "00:00:10.000", ps.Snapshot().Position)
}

func TestEstimator_TickSurvivesPanics(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	ps := NewPlaybackSystem()
	ps.Commit(playingAt(clock, 0, Unbounded), Snapshot{Title: "a good song"})
	ps.OnPublish(func(Snapshot) { panic("listener blew up") })

	clock.Advance(time.Second)
	e := NewEstimator(ps, DefaultTickInterval, clock)

	assert.NotPanics(t, func() { e.Tick() })
}

func TestEstimator_GuardDiscardsEstimatesFromOldTimeline(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	ps := NewPlaybackSystem()
	ps.Commit(playingAt(clock, 0, Unbounded), Snapshot{Title: "a good song"})

	// A snapshot published outside Commit no longer matches the timeline.
	stale := ps.Snapshot()
	stale.Generation = 0
	ps.Publish(stale)

	clock.Advance(time.Second)
	e := NewEstimator(ps, DefaultTickInterval, clock)
	e.GuardStaleWrites = true

	assert.False(t, e.Tick())
	assert.Equal(t, "", ps.Snapshot().Position)

	e.GuardStaleWrites = false
	assert.True(t, e.Tick())
	assert.Equal(t, "00:00:01.000", ps.Snapshot().Position)
}

func TestEstimator_GuardDiscardsEstimateWhenCommitLandsMidTick(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	ps := NewPlaybackSystem()
	ps.Commit(playingAt(clock, 10*time.Second, 12*time.Second), Snapshot{Title: "short song", Position: "00:00:10.000"})
	stale := ps.timeline.Load()

	// The tick has loaded the timeline when a real update commits.
	ps.Commit(playingAt(clock, time.Hour, 2*time.Hour), Snapshot{Title: "long song", Position: "01:00:00.000"})
	cur := ps.current()
	clock.Advance(5 * time.Second)

	e := NewEstimator(ps, DefaultTickInterval, clock)
	e.GuardStaleWrites = true
	assert.False(t, e.publish(stale, cur))
	assert.Equal(t, "01:00:00.000", ps.Snapshot().Position)

	assert.True(t, e.publish(ps.timeline.Load(), ps.current()))
	assert.Equal(t, "01:00:05.000", ps.Snapshot().Position)
}

func TestEstimator_RunAdvancesPosition(t *testing.T) {
	t.Parallel()
	ps := NewPlaybackSystem()
	ps.Commit(Timeline{Position: 10 * time.Second, Timestamp: time.Now(), Rate: 1, Playing: true, End: Unbounded},
		Snapshot{Title: "a good song", Position: "00:00:10.000"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewEstimator(ps, 5*time.Millisecond, nil).Run(ctx)

	assert.Eventually(t, func() bool {
		return ps.Snapshot().Position != "00:00:10.000"
	}, time.Second, 5*time.Millisecond)
}

func TestEstimator_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	ps := NewPlaybackSystem()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewEstimator(ps, DefaultTickInterval, nil).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(DefaultTickInterval * 2):
		t.Fatal("estimator did not stop within one tick interval")
	}
}
