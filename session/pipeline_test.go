package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/session"
	"github.com/marcus-crane/nowplaying/session/sessiontest"
)

func newPipeline(clock clockwork.Clock) (*session.Pipeline, *playback.System) {
	ps := playback.NewPlaybackSystem()
	return session.NewPipeline(ps, nil, clock, time.Second), ps
}

func TestPipeline_ApplyPublishesSnapshot(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	p, ps := newPipeline(clock)

	s := sessiontest.NewSession("spotify", playback.StatusPlaying)
	s.SetMetadata("a good song", "some artist", []byte("not really a jpeg"))
	s.SetTimeline(0, 3*time.Minute, time.Minute)

	p.Apply(context.Background(), s)

	got := ps.Snapshot()
	want := playback.Snapshot{
		Title:      "a good song",
		Artist:     "some artist",
		App:        "spotify",
		Status:     playback.StatusPlaying,
		Position:   "00:01:00.000",
		Start:      "",
		End:        "00:03:00.000",
		Artwork:    []byte("not really a jpeg"),
		Generation: ps.Timeline().Generation,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error(diff)
	}

	tl := ps.Timeline()
	assert.True(t, tl.Playing)
	assert.Equal(t, time.Minute, tl.Position)
	assert.Equal(t, 3*time.Minute, tl.End)
	assert.Equal(t, 1.0, tl.Rate)
	assert.Equal(t, clock.Now(), tl.Timestamp)
}

func TestPipeline_ApplyTreatsAbsentValuesAsUnknown(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)

	s := sessiontest.NewSession("vlc", playback.StatusPaused)
	s.SetRate(0)

	p.Apply(context.Background(), s)

	got := ps.Snapshot()
	assert.Equal(t, "vlc", got.App)
	assert.Equal(t, playback.StatusPaused, got.Status)
	assert.Empty(t, got.Position)
	assert.Empty(t, got.Start)
	assert.Empty(t, got.End)
	assert.Nil(t, got.Artwork)

	tl := ps.Timeline()
	assert.False(t, tl.Playing)
	assert.Equal(t, playback.Unbounded, tl.End)
	assert.Equal(t, 1.0, tl.Rate)
}

func TestPipeline_ApplyFailureCollapsesToEmpty(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)

	s := sessiontest.NewSession("spotify", playback.StatusPlaying)
	s.SetMetadata("a good song", "some artist", nil)
	s.SetTimeline(0, 3*time.Minute, time.Minute)
	p.Apply(context.Background(), s)
	assert.Equal(t, "a good song", ps.Snapshot().Title)

	s.Fail(errors.New("session went away"))
	p.Apply(context.Background(), s)

	got := ps.Snapshot()
	assert.Equal(t, playback.NoneTitle, got.Title)
	assert.Equal(t, playback.StatusStopped, got.Status)
	assert.False(t, ps.Timeline().Playing)
}

func TestPipeline_ArtworkFailureStillPublishes(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)

	s := sessiontest.NewSession("spotify", playback.StatusPlaying)
	s.SetMetadata("a good song", "some artist", []byte{1, 2, 3})
	s.ArtworkErr = errors.New("thumbnail unavailable")

	p.Apply(context.Background(), s)

	got := ps.Snapshot()
	assert.Equal(t, "a good song", got.Title)
	assert.Equal(t, playback.StatusPlaying, got.Status)
	assert.False(t, got.HasArtwork())
}

func TestPipeline_ConcurrentAppliesNeverOverlap(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)

	var inFlight, maxInFlight, publishes atomic.Int32
	s := sessiontest.NewSession("spotify", playback.StatusPlaying)
	s.SetMetadata("a good song", "some artist", nil)
	s.BeforeFetch = func() {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
	}
	ps.OnPublish(func(playback.Snapshot) {
		inFlight.Add(-1)
		publishes.Add(1)
	})

	const triggers = 25
	var wg sync.WaitGroup
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Apply(context.Background(), s)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, int32(triggers), publishes.Load(), "every trigger runs to completion")
}

func TestPipeline_Reset(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)

	s := sessiontest.NewSession("spotify", playback.StatusPlaying)
	s.SetMetadata("a good song", "some artist", nil)
	p.Apply(context.Background(), s)

	p.Reset(true)

	assert.Equal(t, playback.NoneTitle, ps.Snapshot().Title)
	assert.False(t, ps.Timeline().Playing)
}

func TestPipeline_PanickingListenerFallsBackToEmpty(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)
	ps.OnPublish(func(s playback.Snapshot) {
		if s.Title == "a cursed song" {
			panic("listener blew up")
		}
	})

	s := sessiontest.NewSession("spotify", playback.StatusPlaying)
	s.SetMetadata("a cursed song", "some artist", nil)

	assert.NotPanics(t, func() { p.Apply(context.Background(), s) })
	assert.Equal(t, playback.NoneTitle, ps.Snapshot().Title)
	assert.False(t, ps.Timeline().Playing)

	s.SetMetadata("a good song", "some artist", nil)
	p.Apply(context.Background(), s)
	assert.Equal(t, "a good song", ps.Snapshot().Title)
}

func TestPipeline_ResetSurvivesPanickingListener(t *testing.T) {
	t.Parallel()
	p, ps := newPipeline(nil)
	ps.OnPublish(func(playback.Snapshot) { panic("listener blew up") })

	assert.NotPanics(t, func() { p.Reset(true) })
	assert.Equal(t, playback.NoneTitle, ps.Snapshot().Title)
}
