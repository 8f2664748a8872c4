// Package routes serves the published snapshot to local consumers.
package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rs/cors"

	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/shared"
	"github.com/marcus-crane/nowplaying/utils"
)

// MediaInfo is the /media_info response body. ImageBytes encodes as base64
// and as null when there is no artwork.
type MediaInfo struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	App        string `json:"app"`
	Status     string `json:"status"`
	Position   string `json:"position"`
	Start      string `json:"start"`
	End        string `json:"end"`
	ImageBytes []byte `json:"imageBytes"`
}

func NewMediaInfo(s playback.Snapshot) MediaInfo {
	info := MediaInfo{
		Title:    s.Title,
		Artist:   s.Artist,
		App:      s.App,
		Status:   string(s.Status),
		Position: s.Position,
		Start:    s.Start,
		End:      s.End,
	}
	if s.HasArtwork() {
		info.ImageBytes = s.Artwork
	}
	return info
}

type Options struct {
	// Events, when set, is mounted at /events.
	Events http.Handler
}

func Register(mux *http.ServeMux, ps *playback.System, opts Options) http.Handler {

	mux.HandleFunc("GET "+shared.ROUTE_MEDIA_INFO, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(NewMediaInfo(ps.Snapshot())); err != nil {
			slog.With(slog.Any("error", err)).Debug("Failed to write media info")
		}
	})

	mux.HandleFunc("GET "+shared.ROUTE_MEDIA_IMAGE, func(w http.ResponseWriter, r *http.Request) {
		s := ps.Snapshot()
		if !s.HasArtwork() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", utils.ContentType(s.Artwork))
		w.Header().Set("Content-Length", strconv.Itoa(len(s.Artwork)))
		w.Write(s.Artwork)
	})

	if opts.Events != nil {
		mux.Handle(shared.ROUTE_EVENTS, opts.Events)
	}

	mux.HandleFunc("/", http.NotFound)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	})

	return noStore(c.Handler(mux))
}

// noStore applies the headers every response carries, including ones cors
// only adds when the request names an origin.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
