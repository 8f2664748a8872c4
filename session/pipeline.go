package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/utils"
)

const DefaultArtworkTimeout = 5 * time.Second

// Pipeline turns a session's current state into a committed snapshot. Only
// one Apply or Reset runs at a time; callers queue up behind the gate and
// every call runs to completion.
type Pipeline struct {
	ps             *playback.System
	changes        *playback.ChangeLogger
	clock          clockwork.Clock
	artworkTimeout time.Duration

	gate sync.Mutex

	// guarded by gate
	lastArtwork []byte
	lastColours []string
}

func NewPipeline(ps *playback.System, changes *playback.ChangeLogger, clock clockwork.Clock, artworkTimeout time.Duration) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if changes == nil {
		changes = playback.NewChangeLogger(nil)
	}
	if artworkTimeout <= 0 {
		artworkTimeout = DefaultArtworkTimeout
	}
	return &Pipeline{
		ps:             ps,
		changes:        changes,
		clock:          clock,
		artworkTimeout: artworkTimeout,
	}
}

// Apply fetches s and publishes what it finds. If anything goes wrong the
// empty snapshot is published instead so stale data never lingers.
func (p *Pipeline) Apply(ctx context.Context, s Session) {
	p.gate.Lock()
	defer p.gate.Unlock()

	snapshot, timeline, err := p.fetch(ctx, s)
	if err == nil {
		err = p.commit(timeline, snapshot)
	}
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to update playback state")
		if err := p.commit(playback.Idle, playback.Empty); err != nil {
			slog.With(slog.Any("error", err)).Error("Failed to reset playback state")
		}
		p.changes.Log(playback.Empty, false)
		return
	}
	p.changes.Log(snapshot, false)
}

// Reset publishes the empty snapshot. force bypasses change deduplication
// so the transition always shows up in the logs.
func (p *Pipeline) Reset(force bool) {
	p.gate.Lock()
	defer p.gate.Unlock()

	if err := p.commit(playback.Idle, playback.Empty); err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to reset playback state")
	}
	p.changes.Log(playback.Empty, force)
}

// commit stores the result and turns a panicking publish listener into an
// error so the update queue keeps running.
func (p *Pipeline) commit(tl playback.Timeline, s playback.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while publishing snapshot: %v", r)
		}
	}()
	p.ps.Commit(tl, s)
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, s Session) (snapshot playback.Snapshot, timeline playback.Timeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while fetching session: %v", r)
		}
	}()

	app := s.App()

	meta, err := s.Metadata(ctx)
	if err != nil {
		return snapshot, timeline, fmt.Errorf("failed to fetch metadata for %s: %w", app, err)
	}
	info, err := s.PlaybackInfo(ctx)
	if err != nil {
		return snapshot, timeline, fmt.Errorf("failed to fetch playback info for %s: %w", app, err)
	}
	props, err := s.Timeline(ctx)
	if err != nil {
		return snapshot, timeline, fmt.Errorf("failed to fetch timeline for %s: %w", app, err)
	}

	timeline = playback.Idle
	timeline.Timestamp = p.clock.Now()
	snapshot = playback.Snapshot{
		App:    app,
		Status: playback.StatusUnknown,
	}

	if info != nil {
		snapshot.Status = info.Status
		timeline.Playing = info.Status == playback.StatusPlaying
		if info.Rate != 0 {
			timeline.Rate = info.Rate
		}
	}

	if props != nil {
		timeline.Position = props.Position
		if props.End > 0 {
			timeline.End = props.End
		}
		snapshot.Position = playback.FormatDuration(props.Position)
		snapshot.Start = playback.FormatDuration(props.Start)
		snapshot.End = playback.FormatDuration(props.End)
	}

	if meta != nil {
		snapshot.Title = meta.Title
		snapshot.Artist = meta.Artist
		if meta.Artwork != nil {
			artwork, err := readArtwork(ctx, meta.Artwork, p.artworkTimeout)
			if err != nil {
				slog.With(slog.String("app", app), slog.Any("error", err)).Warn("Publishing without artwork")
			} else if artwork != nil {
				snapshot.Artwork = artwork
				snapshot.Colours = p.colours(artwork)
			}
		}
	}

	return snapshot, timeline, nil
}

// colours caches the dominant colours of the last artwork seen since most
// updates carry the same cover.
func (p *Pipeline) colours(artwork []byte) []string {
	if p.lastArtwork != nil && bytes.Equal(p.lastArtwork, artwork) {
		return p.lastColours
	}
	colours, err := utils.DominantColours(artwork)
	if err != nil {
		slog.With(slog.Any("error", err)).Debug("Could not extract artwork colours")
	}
	p.lastArtwork = artwork
	p.lastColours = colours
	return colours
}
