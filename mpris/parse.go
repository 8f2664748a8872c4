// Package mpris discovers media sessions from MPRIS players on the D-Bus
// session bus.
package mpris

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/marcus-crane/nowplaying/playback"
)

const (
	busPrefix   = "org.mpris.MediaPlayer2."
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerIface = "org.mpris.MediaPlayer2.Player"
	propsIface  = "org.freedesktop.DBus.Properties"
	dbusIface   = "org.freedesktop.DBus"
)

type trackInfo struct {
	title  string
	artist string
	length time.Duration
	artURL string
}

func parseStatus(v string) playback.Status {
	switch types.PlaybackStatus(v) {
	case types.PlaybackStatusPlaying:
		return playback.StatusPlaying
	case types.PlaybackStatusPaused:
		return playback.StatusPaused
	case types.PlaybackStatusStopped:
		return playback.StatusStopped
	}
	return playback.StatusUnknown
}

func parseMetadata(meta map[string]dbus.Variant) trackInfo {
	var info trackInfo
	if v, ok := meta["xesam:title"]; ok {
		info.title, _ = v.Value().(string)
	}
	if v, ok := meta["xesam:artist"]; ok {
		switch artist := v.Value().(type) {
		case []string:
			info.artist = strings.Join(artist, ", ")
		case string:
			info.artist = artist
		}
	}
	if v, ok := meta["mpris:length"]; ok {
		info.length = microseconds(v.Value())
	}
	if v, ok := meta["mpris:artUrl"]; ok {
		info.artURL, _ = v.Value().(string)
	}
	return info
}

// microseconds converts the integer types players use for lengths and
// positions. Anything else reads as zero.
func microseconds(v any) time.Duration {
	var us types.Microseconds
	switch n := v.(type) {
	case int64:
		us = types.Microseconds(n)
	case uint64:
		us = types.Microseconds(n)
	case int32:
		us = types.Microseconds(n)
	case uint32:
		us = types.Microseconds(n)
	case float64:
		us = types.Microseconds(n)
	default:
		return 0
	}
	if us < 0 {
		return 0
	}
	return time.Duration(us) * time.Microsecond
}

// appName turns "org.mpris.MediaPlayer2.vlc.instance1234" into "vlc".
func appName(busName string) string {
	name := strings.TrimPrefix(busName, busPrefix)
	if i := strings.Index(name, ".instance"); i > 0 {
		name = name[:i]
	}
	return name
}

// openArtwork opens the stream behind an mpris:artUrl.
func openArtwork(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid artwork url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork: %w", err)
		}
		return f, nil
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		res, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch artwork: %w", err)
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("artwork request returned %s", res.Status)
		}
		return res.Body, nil
	}
	return nil, fmt.Errorf("unsupported artwork url scheme %q", u.Scheme)
}
