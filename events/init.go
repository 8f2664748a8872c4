// Package events streams snapshot changes to browsers over server-sent events.
package events

import (
	"encoding/json"
	"log/slog"

	"github.com/r3labs/sse/v2"

	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/shared"
)

// Payload mirrors /media_info without the artwork bytes, which clients fetch
// separately from /media_image when HasArtwork is set.
type Payload struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	App        string   `json:"app"`
	Status     string   `json:"status"`
	Position   string   `json:"position"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	HasArtwork bool     `json:"hasArtwork"`
	Colours    []string `json:"colours"`
}

func NewServer() *sse.Server {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(shared.STREAM_PLAYBACK)
	return server
}

func NewPayload(s playback.Snapshot) Payload {
	return Payload{
		ID:         playback.MediaID(s),
		Title:      s.Title,
		Artist:     s.Artist,
		App:        s.App,
		Status:     string(s.Status),
		Position:   s.Position,
		Start:      s.Start,
		End:        s.End,
		HasArtwork: s.HasArtwork(),
		Colours:    s.Colours,
	}
}

// Attach publishes every snapshot the system stores to the playback stream.
func Attach(server *sse.Server, ps *playback.System) {
	ps.OnPublish(func(s playback.Snapshot) {
		payload := NewPayload(s)
		data, err := json.Marshal(payload)
		if err != nil {
			slog.With(slog.Any("error", err)).Error("Failed to encode playback event")
			return
		}
		server.Publish(shared.STREAM_PLAYBACK, &sse.Event{ID: []byte(payload.ID), Data: data})
	})
}
