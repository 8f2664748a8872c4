package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/marcus-crane/nowplaying/config"
	"github.com/marcus-crane/nowplaying/events"
	"github.com/marcus-crane/nowplaying/jobs"
	"github.com/marcus-crane/nowplaying/mpris"
	"github.com/marcus-crane/nowplaying/playback"
	"github.com/marcus-crane/nowplaying/routes"
	"github.com/marcus-crane/nowplaying/session"
	"github.com/marcus-crane/nowplaying/utils"
)

func main() {
	dotenv := flag.String("env", ".env", "path to an optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*dotenv)
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to load config")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.GetLogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.With(slog.Any("error", err)).Error("nowplaying stopped")
		os.Exit(1)
	}
	slog.Info("nowplaying has shut down")
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ps := playback.NewPlaybackSystem()

	source, err := mpris.New(utils.NewHTTPClient(cfg.ArtworkTimeout()))
	if err != nil {
		return err
	}
	defer source.Close()

	pipeline := session.NewPipeline(ps, playback.NewChangeLogger(slog.Default()), nil, cfg.ArtworkTimeout())
	tracker := session.NewTracker(source, pipeline)

	estimator := playback.NewEstimator(ps, cfg.TickInterval(), nil)
	estimator.GuardStaleWrites = cfg.NowPlaying.GuardEstimates

	opts := routes.Options{}
	if cfg.NowPlaying.EventsEnabled {
		server := events.NewServer()
		defer server.Close()
		events.Attach(server, ps)
		opts.Events = server
		slog.Info("Streaming playback events", slog.String("path", "/events"))
	}
	handler := routes.Register(http.NewServeMux(), ps, opts)

	ln, err := routes.Listen(cfg.NowPlaying.Addr)
	if err != nil {
		return err
	}

	if cfg.NowPlaying.ResyncSeconds > 0 {
		scheduler, err := jobs.SetupInBackground(tracker, cfg.NowPlaying.ResyncSeconds)
		if err != nil {
			ln.Close()
			return err
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
		slog.Info("Background resync has started", slog.Int("every_seconds", cfg.NowPlaying.ResyncSeconds))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tracker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		estimator.Run(ctx)
	}()

	slog.Info("nowplaying is running", slog.String("addr", "http://"+ln.Addr().String()))
	if err := routes.Serve(ctx, ln, handler); err != nil {
		// Estimation and tracking carry on without the endpoint until we
		// are told to stop.
		slog.With(slog.Any("error", err)).Error("Endpoint stopped serving")
		<-ctx.Done()
	}

	wg.Wait()
	return nil
}
