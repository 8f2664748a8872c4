// Package sessiontest provides an in-memory session source for tests.
package sessiontest

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/session"
)

type listeners struct {
	m     sync.Mutex
	next  int
	total int
	fns   map[int]func()
}

func (l *listeners) add(fn func()) func() {
	l.m.Lock()
	defer l.m.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(){}
	}
	id := l.next
	l.next++
	l.total++
	l.fns[id] = fn
	return func() {
		l.m.Lock()
		defer l.m.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) fire() {
	l.m.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.m.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (l *listeners) count() int {
	l.m.Lock()
	defer l.m.Unlock()
	return len(l.fns)
}

func (l *listeners) added() int {
	l.m.Lock()
	defer l.m.Unlock()
	return l.total
}

// Session is a scriptable session.Session.
type Session struct {
	app string

	m        sync.Mutex
	title    string
	artist   string
	artwork  []byte
	status   playback.Status
	rate     float64
	timeline *session.TimelineInfo
	err      error

	// BeforeFetch, when set, runs at the start of every Metadata call.
	BeforeFetch func()
	// ArtworkErr is returned when the artwork stream is opened.
	ArtworkErr error

	metadataListeners listeners
	playbackListeners listeners
}

func NewSession(app string, status playback.Status) *Session {
	return &Session{app: app, status: status, rate: 1.0}
}

func (s *Session) SetMetadata(title, artist string, artwork []byte) {
	s.m.Lock()
	defer s.m.Unlock()
	s.title, s.artist, s.artwork = title, artist, artwork
}

func (s *Session) SetStatus(status playback.Status) {
	s.m.Lock()
	defer s.m.Unlock()
	s.status = status
}

func (s *Session) SetRate(rate float64) {
	s.m.Lock()
	defer s.m.Unlock()
	s.rate = rate
}

func (s *Session) SetTimeline(start, end, position time.Duration) {
	s.m.Lock()
	defer s.m.Unlock()
	s.timeline = &session.TimelineInfo{Start: start, End: end, Position: position}
}

// Fail makes every getter return err until it is called again with nil.
func (s *Session) Fail(err error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.err = err
}

func (s *Session) App() string {
	return s.app
}

func (s *Session) Metadata(_ context.Context) (*session.Metadata, error) {
	if s.BeforeFetch != nil {
		s.BeforeFetch()
	}
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	meta := &session.Metadata{Title: s.title, Artist: s.artist}
	if s.artwork != nil {
		artwork, artworkErr := s.artwork, s.ArtworkErr
		meta.Artwork = func(context.Context) (io.ReadCloser, error) {
			if artworkErr != nil {
				return nil, artworkErr
			}
			return io.NopCloser(bytes.NewReader(artwork)), nil
		}
	}
	return meta, nil
}

func (s *Session) PlaybackInfo(_ context.Context) (*session.PlaybackInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &session.PlaybackInfo{Status: s.status, Rate: s.rate}, nil
}

func (s *Session) Timeline(_ context.Context) (*session.TimelineInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.timeline == nil {
		return nil, nil
	}
	tl := *s.timeline
	return &tl, nil
}

func (s *Session) OnMetadataChanged(fn func()) func() {
	return s.metadataListeners.add(fn)
}

func (s *Session) OnPlaybackChanged(fn func()) func() {
	return s.playbackListeners.add(fn)
}

func (s *Session) FireMetadataChanged() {
	s.metadataListeners.fire()
}

func (s *Session) FirePlaybackChanged() {
	s.playbackListeners.fire()
}

// Subscribers counts the callbacks currently registered on the session.
func (s *Session) Subscribers() int {
	return s.metadataListeners.count() + s.playbackListeners.count()
}

// Subscriptions counts every callback ever registered on the session.
func (s *Session) Subscriptions() int {
	return s.metadataListeners.added() + s.playbackListeners.added()
}

// Source is a scriptable session.Source.
type Source struct {
	m            sync.Mutex
	sessions     []session.Session
	current      session.Session
	err          error
	enumerations int

	sessionListeners listeners
	currentListeners listeners
}

func NewSource() *Source {
	return &Source{}
}

// Set replaces the enumeration and the current session and fires both change
// notifications. current may be nil.
func (src *Source) Set(current *Session, sessions ...*Session) {
	src.m.Lock()
	src.sessions = make([]session.Session, 0, len(sessions))
	for _, s := range sessions {
		src.sessions = append(src.sessions, s)
	}
	src.current = nil
	if current != nil {
		src.current = current
	}
	src.m.Unlock()

	src.sessionListeners.fire()
	src.currentListeners.fire()
}

// Fail makes enumeration return err until it is called again with nil.
func (src *Source) Fail(err error) {
	src.m.Lock()
	defer src.m.Unlock()
	src.err = err
}

func (src *Source) Sessions(_ context.Context) ([]session.Session, error) {
	src.m.Lock()
	defer src.m.Unlock()
	src.enumerations++
	if src.err != nil {
		return nil, src.err
	}
	return append([]session.Session(nil), src.sessions...), nil
}

// Enumerations counts calls to Sessions.
func (src *Source) Enumerations() int {
	src.m.Lock()
	defer src.m.Unlock()
	return src.enumerations
}

func (src *Source) Current(_ context.Context) (session.Session, error) {
	src.m.Lock()
	defer src.m.Unlock()
	return src.current, nil
}

func (src *Source) OnSessionsChanged(fn func()) func() {
	return src.sessionListeners.add(fn)
}

func (src *Source) OnCurrentChanged(fn func()) func() {
	return src.currentListeners.add(fn)
}
