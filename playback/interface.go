package playback

import (
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Status string

const (
	StatusPlaying  Status = "Playing"
	StatusPaused   Status = "Paused"
	StatusStopped  Status = "Stopped"
	StatusChanging Status = "Changing"
	StatusUnknown  Status = "Unknown"
)

// NoneTitle is the title published while no session is tracked.
const NoneTitle = "None"

// Unbounded marks a duration that is not known, such as the end of a live stream.
const Unbounded = time.Duration(math.MaxInt64)

// Snapshot is one published view of the tracked session. A Snapshot is never
// modified once it has been handed to a System; every change builds a new one.
type Snapshot struct {
	Title    string
	Artist   string
	App      string
	Status   Status
	Position string
	Start    string
	End      string
	Artwork  []byte

	// Colours are the dominant colours of Artwork, if any could be extracted.
	Colours []string
	// Generation is the Timeline generation this snapshot was derived from.
	Generation uint64
}

// Empty is the snapshot published when there is no session to track.
var Empty = Snapshot{
	Title:  NoneTitle,
	Status: StatusStopped,
}

// HasArtwork reports whether the snapshot carries artwork bytes.
func (s Snapshot) HasArtwork() bool {
	return len(s.Artwork) > 0
}

// WithPosition returns a copy of s with only the formatted position replaced.
func (s Snapshot) WithPosition(position string) Snapshot {
	next := s
	next.Position = position
	return next
}

// Timeline is the bookkeeping used to extrapolate the position between real
// updates. It is rebuilt in full on every real update.
type Timeline struct {
	Position  time.Duration
	Timestamp time.Time
	Rate      float64
	Playing   bool
	End       time.Duration

	Generation uint64
}

// Idle is the timeline used when nothing is playing.
var Idle = Timeline{
	Rate: 1.0,
	End:  Unbounded,
}

// Estimate extrapolates the position at now, clamped to End.
func (t Timeline) Estimate(now time.Time) time.Duration {
	if !t.Playing {
		return t.Position
	}
	rate := t.Rate
	if rate == 0 {
		rate = 1.0
	}
	elapsed := now.Sub(t.Timestamp)
	estimated := t.Position + time.Duration(float64(elapsed)*rate)
	if estimated < 0 {
		estimated = 0
	}
	if t.End != Unbounded && estimated > t.End {
		estimated = t.End
	}
	return estimated
}

// MediaID is a stable identifier for what a snapshot is showing, used to tie
// log lines and stream events to a piece of media.
func MediaID(s Snapshot) string {
	hashString := fmt.Sprintf("%s-%s-%s", s.Title, s.Artist, s.App)
	return fmt.Sprintf("%s:%d", s.App, xxhash.Sum64String(hashString))
}
