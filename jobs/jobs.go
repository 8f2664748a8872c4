// Package jobs runs periodic maintenance in the background.
package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Rediscoverer is anything that can be asked to re-run session discovery.
type Rediscoverer interface {
	Rediscover(reason string)
}

const resyncReason = "periodic resync"

// SetupInBackground schedules a discovery pass every resyncSeconds. Sources
// occasionally drop change notifications, so a slow resync keeps the tracked
// session honest. The scheduler is returned unstarted.
func SetupInBackground(tracker Rediscoverer, resyncSeconds int) (*gocron.Scheduler, error) {
	if resyncSeconds <= 0 {
		return nil, fmt.Errorf("resync interval must be positive, got %d", resyncSeconds)
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if _, err := s.Every(resyncSeconds).Seconds().Do(resync, tracker); err != nil {
		return nil, fmt.Errorf("failed to schedule resync: %w", err)
	}
	return s, nil
}

func resync(tracker Rediscoverer) {
	slog.Debug("Requesting session resync")
	tracker.Rediscover(resyncReason)
}
