package playback

import (
	"log/slog"
	"sync"
)

// ChangeLogger logs a snapshot only when its title, artist or status differs
// from the last one it logged.
type ChangeLogger struct {
	m      sync.Mutex
	logger *slog.Logger
	last   *Snapshot
}

func NewChangeLogger(logger *slog.Logger) *ChangeLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeLogger{logger: logger}
}

// Log writes s if it differs from the previously logged snapshot, or always
// when force is set. It reports whether a line was written.
func (cl *ChangeLogger) Log(s Snapshot, force bool) bool {
	cl.m.Lock()
	defer cl.m.Unlock()

	if !force && cl.last != nil &&
		cl.last.Title == s.Title &&
		cl.last.Artist == s.Artist &&
		cl.last.Status == s.Status {
		return false
	}
	logged := s
	cl.last = &logged

	cl.logger.Info("Now playing",
		slog.String("media_id", MediaID(s)),
		slog.String("title", s.Title),
		slog.String("artist", s.Artist),
		slog.String("app", s.App),
		slog.String("status", string(s.Status)),
		slog.Bool("artwork", s.HasArtwork()))
	return true
}
