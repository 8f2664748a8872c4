package session

import "github.com/marcus-crane/nowplaying/playback"

// Candidate is an enumerated session together with the status it reported
// during a discovery pass.
type Candidate struct {
	Session Session
	Status  playback.Status
}

// Select picks the session to track, or nil.
//
// A single playing session always wins. When several are playing, the
// source's current session is preferred and otherwise the first enumerated
// one, which depends on the source's enumeration order. When nothing is
// playing the source's current session is used, even if paused or stopped.
func Select(candidates []Candidate, current Session) Session {
	if len(candidates) == 0 {
		return nil
	}

	var playing []Session
	for _, c := range candidates {
		if c.Status == playback.StatusPlaying {
			playing = append(playing, c.Session)
		}
	}

	switch {
	case len(playing) == 1:
		return playing[0]
	case len(playing) > 1:
		if current != nil {
			return current
		}
		return candidates[0].Session
	default:
		return current
	}
}
