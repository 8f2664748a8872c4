//go:build !linux

package mpris

import (
	"context"
	"net/http"

	"github.com/marcus-crane/nowplaying/session"
)

// Source reports no sessions on platforms without a session bus.
type Source struct{}

func New(_ *http.Client) (*Source, error) {
	return &Source{}, nil
}

func (s *Source) Close() error {
	return nil
}

func (s *Source) Sessions(context.Context) ([]session.Session, error) {
	return nil, nil
}

func (s *Source) Current(context.Context) (session.Session, error) {
	return nil, nil
}

func (s *Source) OnSessionsChanged(func()) func() {
	return func() {}
}

func (s *Source) OnCurrentChanged(func()) func() {
	return func() {}
}
