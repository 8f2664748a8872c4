//go:build linux

package mpris

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/session"
	"github.com/marcus-crane/nowplaying/utils"
)

// Source implements session.Source over the D-Bus session bus. Each player
// is keyed by its unique connection name so the same *player is returned for
// as long as the process owning the bus name lives.
type Source struct {
	conn    *dbus.Conn
	client  *http.Client
	signals chan *dbus.Signal

	m       sync.Mutex
	players map[string]*player
	current string
	seq     uint64

	sessionsChanged listeners
	currentChanged  listeners
}

// New connects to the session bus and starts listening for player changes.
// Close releases the connection.
func New(client *http.Client) (*Source, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if client == nil {
		client = utils.NewHTTPClient(0)
	}
	s := newSource(conn, client)

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(dbusIface), dbus.WithMatchMember("NameOwnerChanged")},
		{dbus.WithMatchObjectPath(objectPath), dbus.WithMatchInterface(propsIface), dbus.WithMatchMember("PropertiesChanged")},
		{dbus.WithMatchObjectPath(objectPath), dbus.WithMatchInterface(playerIface), dbus.WithMatchMember("Seeked")},
	}
	for _, opts := range matches {
		if err := conn.AddMatchSignal(opts...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to subscribe to player signals: %w", err)
		}
	}

	conn.Signal(s.signals)
	go s.listen()
	return s, nil
}

func newSource(conn *dbus.Conn, client *http.Client) *Source {
	return &Source{
		conn:    conn,
		client:  client,
		signals: make(chan *dbus.Signal, 32),
		players: map[string]*player{},
	}
}

func (s *Source) Close() error {
	s.conn.RemoveSignal(s.signals)
	return s.conn.Close()
}

func (s *Source) listen() {
	for sig := range s.signals {
		s.handleSignal(sig)
	}
}

func (s *Source) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case dbusIface + ".NameOwnerChanged":
		if len(sig.Body) == 0 {
			return
		}
		if name, ok := sig.Body[0].(string); ok && strings.HasPrefix(name, busPrefix) {
			slog.Debug("Media player appeared or vanished", slog.String("name", name))
			s.sessionsChanged.fire()
		}
	case propsIface + ".PropertiesChanged":
		if len(sig.Body) < 2 {
			return
		}
		if iface, _ := sig.Body[0].(string); iface != playerIface {
			return
		}
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		s.propertiesChanged(sig.Sender, changed)
	case playerIface + ".Seeked":
		if p := s.player(sig.Sender); p != nil {
			p.playbackChanged.fire()
		}
	}
}

func (s *Source) propertiesChanged(sender string, changed map[string]dbus.Variant) {
	p := s.player(sender)
	if p == nil {
		return
	}
	if _, ok := changed["Metadata"]; ok {
		p.metadataChanged.fire()
	}
	_, rate := changed["Rate"]
	status, ok := changed["PlaybackStatus"]
	if ok || rate {
		p.playbackChanged.fire()
	}
	if ok {
		if v, _ := status.Value().(string); parseStatus(v) == playback.StatusPlaying {
			s.promote(sender)
		}
	}
}

// promote makes owner the current session. The current session is the one
// that most recently started playing.
func (s *Source) promote(owner string) {
	s.m.Lock()
	changed := s.current != owner
	s.current = owner
	s.m.Unlock()
	if changed {
		s.currentChanged.fire()
	}
}

func (s *Source) player(owner string) *player {
	s.m.Lock()
	defer s.m.Unlock()
	return s.players[owner]
}

func (s *Source) Sessions(ctx context.Context) ([]session.Session, error) {
	var names []string
	if err := s.conn.BusObject().CallWithContext(ctx, dbusIface+".ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}
	sort.Strings(names)

	seen := map[string]*player{}
	var found []*player
	for _, name := range names {
		if !strings.HasPrefix(name, busPrefix) {
			continue
		}
		var owner string
		if err := s.conn.BusObject().CallWithContext(ctx, dbusIface+".GetNameOwner", 0, name).Store(&owner); err != nil {
			// The player exited between the two calls.
			slog.With(slog.String("name", name), slog.Any("error", err)).Debug("Skipping media player")
			continue
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		p := s.track(owner, name)
		seen[owner] = p
		found = append(found, p)
	}

	s.m.Lock()
	for owner := range s.players {
		if _, ok := seen[owner]; !ok {
			delete(s.players, owner)
		}
	}
	if _, ok := s.players[s.current]; !ok {
		s.current = ""
	}
	s.m.Unlock()

	sessions := make([]session.Session, 0, len(found))
	for _, p := range found {
		sessions = append(sessions, p)
	}
	return sessions, nil
}

func (s *Source) track(owner, name string) *player {
	s.m.Lock()
	defer s.m.Unlock()
	if p, ok := s.players[owner]; ok {
		return p
	}
	s.seq++
	p := &player{
		app:    appName(name),
		owner:  owner,
		client: s.client,
		seq:    s.seq,
	}
	if s.conn != nil {
		p.obj = s.conn.Object(owner, objectPath)
	}
	s.players[owner] = p
	return p
}

// Current returns the player that most recently started playing. Until one
// has, it falls back to the player that appeared last.
func (s *Source) Current(_ context.Context) (session.Session, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if p, ok := s.players[s.current]; ok {
		return p, nil
	}
	var newest *player
	for _, p := range s.players {
		if newest == nil || p.seq > newest.seq {
			newest = p
		}
	}
	if newest == nil {
		return nil, nil
	}
	return newest, nil
}

func (s *Source) OnSessionsChanged(fn func()) func() {
	return s.sessionsChanged.add(fn)
}

func (s *Source) OnCurrentChanged(fn func()) func() {
	return s.currentChanged.add(fn)
}

type player struct {
	app    string
	owner  string
	seq    uint64
	obj    dbus.BusObject
	client *http.Client

	metadataChanged listeners
	playbackChanged listeners
}

func (p *player) App() string {
	return p.app
}

func (p *player) get(ctx context.Context, property string) (dbus.Variant, error) {
	var v dbus.Variant
	err := p.obj.CallWithContext(ctx, propsIface+".Get", 0, playerIface, property).Store(&v)
	if err != nil {
		return v, fmt.Errorf("failed to read %s from %s: %w", property, p.app, err)
	}
	return v, nil
}

func (p *player) track(ctx context.Context) (trackInfo, error) {
	v, err := p.get(ctx, "Metadata")
	if err != nil {
		return trackInfo{}, err
	}
	meta, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return trackInfo{}, fmt.Errorf("unexpected metadata type %s from %s", v.Signature(), p.app)
	}
	return parseMetadata(meta), nil
}

func (p *player) Metadata(ctx context.Context) (*session.Metadata, error) {
	info, err := p.track(ctx)
	if err != nil {
		return nil, err
	}
	meta := &session.Metadata{Title: info.title, Artist: info.artist}
	if info.artURL != "" {
		artURL := info.artURL
		meta.Artwork = func(ctx context.Context) (io.ReadCloser, error) {
			return openArtwork(ctx, p.client, artURL)
		}
	}
	return meta, nil
}

func (p *player) PlaybackInfo(ctx context.Context) (*session.PlaybackInfo, error) {
	v, err := p.get(ctx, "PlaybackStatus")
	if err != nil {
		return nil, err
	}
	status, _ := v.Value().(string)
	info := &session.PlaybackInfo{Status: parseStatus(status)}

	// Rate is optional in the interface and plenty of players leave it out.
	if v, err := p.get(ctx, "Rate"); err == nil {
		info.Rate, _ = v.Value().(float64)
	}
	return info, nil
}

// Timeline reports nil when the player does not expose a position, which is
// common for browsers.
func (p *player) Timeline(ctx context.Context) (*session.TimelineInfo, error) {
	v, err := p.get(ctx, "Position")
	if err != nil {
		slog.With(slog.String("app", p.app), slog.Any("error", err)).Debug("Player has no position")
		return nil, nil
	}
	info, err := p.track(ctx)
	if err != nil {
		return nil, err
	}
	return &session.TimelineInfo{
		Position: microseconds(v.Value()),
		End:      info.length,
	}, nil
}

func (p *player) OnMetadataChanged(fn func()) func() {
	return p.metadataChanged.add(fn)
}

func (p *player) OnPlaybackChanged(fn func()) func() {
	return p.playbackChanged.add(fn)
}
