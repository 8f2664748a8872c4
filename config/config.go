package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"

	"github.com/marcus-crane/nowplaying/shared"
)

type Config struct {
	NowPlaying NowPlayingConfig
}

type NowPlayingConfig struct {
	Addr             string `env:"NOWPLAYING_ADDR"`
	TickMs           int    `env:"NOWPLAYING_TICK_MS"`
	ArtworkTimeoutMs int    `env:"NOWPLAYING_ARTWORK_TIMEOUT_MS"`
	GuardEstimates   bool   `env:"NOWPLAYING_GUARD_ESTIMATES"`
	EventsEnabled    bool   `env:"NOWPLAYING_EVENTS_ENABLED"`
	ResyncSeconds    int    `env:"NOWPLAYING_RESYNC_SECONDS"`
	LogLevel         string `env:"LOG_LEVEL"`
}

func Default() Config {
	return Config{
		NowPlaying: NowPlayingConfig{
			Addr:             shared.DEFAULT_ADDR,
			TickMs:           250,
			ArtworkTimeoutMs: 5000,
			LogLevel:         "info",
		},
	}
}

// Load reads settings from the environment, with values from dotenvPath
// applied first when that file exists. Unset values keep their defaults.
func Load(dotenvPath string) (Config, error) {
	cfg := Default()
	c := config.New()
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			c.AddFeeder(feeder.DotEnv{Path: dotenvPath})
		} else if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
	}
	c.AddFeeder(feeder.Env{})
	c.AddStruct(&cfg)
	if err := c.Feed(); err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.NowPlaying.Addr) == "" {
		return errors.New("NOWPLAYING_ADDR must not be empty")
	}
	if c.NowPlaying.TickMs <= 0 {
		return fmt.Errorf("NOWPLAYING_TICK_MS must be positive, got %d", c.NowPlaying.TickMs)
	}
	if c.NowPlaying.ArtworkTimeoutMs <= 0 {
		return fmt.Errorf("NOWPLAYING_ARTWORK_TIMEOUT_MS must be positive, got %d", c.NowPlaying.ArtworkTimeoutMs)
	}
	if c.NowPlaying.ResyncSeconds < 0 {
		return fmt.Errorf("NOWPLAYING_RESYNC_SECONDS must not be negative, got %d", c.NowPlaying.ResyncSeconds)
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.NowPlaying.TickMs) * time.Millisecond
}

func (c *Config) ArtworkTimeout() time.Duration {
	return time.Duration(c.NowPlaying.ArtworkTimeoutMs) * time.Millisecond
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.NowPlaying.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" || logLevel == "warn" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
