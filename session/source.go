// Package session follows the operating system's media sessions, decides
// which one to track and feeds real updates into the playback system.
package session

import (
	"context"
	"io"
	"time"

	"github.com/marcus-crane/nowplaying/playback"
)

// Source is the registry of media sessions offered by the operating system.
// Calls may fail, and callbacks may fire from any goroutine, redundantly and
// out of order.
type Source interface {
	// Sessions enumerates the currently known sessions. Implementations must
	// return the same Session value for a session that is still alive so that
	// identity can be compared with ==.
	Sessions(ctx context.Context) ([]Session, error)
	// Current returns the session the source itself considers current, or nil.
	Current(ctx context.Context) (Session, error)

	OnSessionsChanged(fn func()) (cancel func())
	OnCurrentChanged(fn func()) (cancel func())
}

// Session is one application's media playback stream. A nil value returned
// without an error from any of the getters means the value is unknown.
type Session interface {
	// App identifies the application that owns the session.
	App() string
	Metadata(ctx context.Context) (*Metadata, error)
	PlaybackInfo(ctx context.Context) (*PlaybackInfo, error)
	Timeline(ctx context.Context) (*TimelineInfo, error)

	OnMetadataChanged(fn func()) (cancel func())
	OnPlaybackChanged(fn func()) (cancel func())
}

// ArtworkOpener opens the artwork stream of a session.
type ArtworkOpener func(ctx context.Context) (io.ReadCloser, error)

type Metadata struct {
	Title  string
	Artist string
	// Artwork is nil when the session has no artwork.
	Artwork ArtworkOpener
}

type PlaybackInfo struct {
	Status playback.Status
	// Rate is the playback rate multiplier, 0 when not reported.
	Rate float64
}

type TimelineInfo struct {
	Start    time.Duration
	End      time.Duration
	Position time.Duration
}
