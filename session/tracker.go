package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/marcus-crane/nowplaying/playback"
)

// update is a queued pipeline run, tagged with the subscription that asked
// for it.
type update struct {
	session      Session
	subscription uuid.UUID
}

// Tracker keeps exactly one session subscribed. Source callbacks become
// messages on two queues, each drained by a single goroutine: discovery
// passes decide what to track, updates run the pipeline against a session.
type Tracker struct {
	source   Source
	pipeline *Pipeline

	discoveries *queue[string]
	updates     *queue[update]

	m              sync.Mutex
	tracked        Session
	subscriptionID uuid.UUID
	unsubscribe    []func()
}

func NewTracker(source Source, pipeline *Pipeline) *Tracker {
	return &Tracker{
		source:      source,
		pipeline:    pipeline,
		discoveries: newQueue[string](),
		updates:     newQueue[update](),
	}
}

// Run subscribes to the source and processes discovery and update requests
// until ctx is cancelled. An update already running when ctx is cancelled is
// allowed to finish.
func (t *Tracker) Run(ctx context.Context) {
	stopSessions := t.source.OnSessionsChanged(func() { t.Rediscover("sessions changed") })
	stopCurrent := t.source.OnCurrentChanged(func() { t.Rediscover("current session changed") })
	defer stopSessions()
	defer stopCurrent()

	t.Rediscover("startup")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.updates.run(ctx, func(u update) {
			slog.Debug("Applying session update",
				slog.String("app", u.session.App()),
				slog.String("subscription", u.subscription.String()),
				slog.Bool("current", u.subscription == t.Subscription()))
			t.pipeline.Apply(context.WithoutCancel(ctx), u.session)
		})
	}()

	t.discoveries.run(ctx, func(reason string) { t.discover(ctx, reason) })
	wg.Wait()

	t.m.Lock()
	t.dropSubscription()
	t.m.Unlock()
}

// Rediscover queues a discovery pass. reason shows up in logs.
func (t *Tracker) Rediscover(reason string) {
	t.discoveries.push(reason)
}

// Subscription identifies the current subscription. It changes every time a
// different session is tracked and is uuid.Nil while nothing is.
func (t *Tracker) Subscription() uuid.UUID {
	t.m.Lock()
	defer t.m.Unlock()
	return t.subscriptionID
}

// Tracked returns the session currently subscribed to, or nil.
func (t *Tracker) Tracked() Session {
	t.m.Lock()
	defer t.m.Unlock()
	return t.tracked
}

func (t *Tracker) discover(ctx context.Context, reason string) {
	logger := slog.With(slog.String("reason", reason))
	defer func() {
		if r := recover(); r != nil {
			logger.With(slog.Any("panic", r)).Error("Session discovery failed")
		}
	}()

	sessions, err := t.source.Sessions(ctx)
	if err != nil {
		logger.With(slog.Any("error", err)).Error("Failed to enumerate sessions")
		return
	}
	current, err := t.source.Current(ctx)
	if err != nil {
		logger.With(slog.Any("error", err)).Error("Failed to get current session")
		return
	}

	candidates := make([]Candidate, 0, len(sessions))
	for _, s := range sessions {
		status := playback.StatusUnknown
		info, err := s.PlaybackInfo(ctx)
		if err != nil {
			logger.With(slog.String("app", s.App()), slog.Any("error", err)).Debug("Could not read session status")
		} else if info != nil {
			status = info.Status
		}
		candidates = append(candidates, Candidate{Session: s, Status: status})
	}

	t.transition(Select(candidates, current), logger)
}

func (t *Tracker) transition(next Session, logger *slog.Logger) {
	t.m.Lock()
	defer t.m.Unlock()

	if next == t.tracked {
		if next == nil {
			t.pipeline.Reset(false)
		}
		return
	}

	t.dropSubscription()

	if next == nil {
		logger.Info("No media session to track")
		t.pipeline.Reset(true)
		return
	}

	t.tracked = next
	t.subscriptionID = uuid.New()
	u := update{session: next, subscription: t.subscriptionID}
	// Subscribe before queueing the first update so no notification in
	// between is lost.
	t.unsubscribe = []func(){
		next.OnMetadataChanged(func() { t.updates.push(u) }),
		next.OnPlaybackChanged(func() { t.updates.push(u) }),
	}
	logger.Info("Tracking media session",
		slog.String("app", next.App()),
		slog.String("subscription", t.subscriptionID.String()))

	t.updates.push(u)
}

// dropSubscription must be called with t.m held.
func (t *Tracker) dropSubscription() {
	if t.tracked != nil {
		slog.Debug("Unsubscribing from media session",
			slog.String("app", t.tracked.App()),
			slog.String("subscription", t.subscriptionID.String()))
	}
	for _, fn := range t.unsubscribe {
		if fn != nil {
			fn()
		}
	}
	t.unsubscribe = nil
	t.tracked = nil
	t.subscriptionID = uuid.Nil
}
