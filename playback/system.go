package playback

import (
	"sync"
	"sync/atomic"
)

// System holds the single published snapshot together with the timeline it
// was derived from. Readers never lock: every publish swaps a whole value.
type System struct {
	snapshot   atomic.Pointer[Snapshot]
	timeline   atomic.Pointer[Timeline]
	generation atomic.Uint64

	m         sync.RWMutex
	listeners []func(Snapshot)
}

func NewPlaybackSystem() *System {
	ps := &System{}
	empty := Empty
	idle := Idle
	ps.snapshot.Store(&empty)
	ps.timeline.Store(&idle)
	return ps
}

// Snapshot returns the latest published snapshot.
func (ps *System) Snapshot() Snapshot {
	return *ps.snapshot.Load()
}

// Timeline returns the latest committed timeline.
func (ps *System) Timeline() Timeline {
	return *ps.timeline.Load()
}

// OnPublish registers fn to be called after every publish. fn must not block.
func (ps *System) OnPublish(fn func(Snapshot)) {
	ps.m.Lock()
	defer ps.m.Unlock()
	ps.listeners = append(ps.listeners, fn)
}

// Commit installs a freshly fetched timeline and the snapshot built from it.
// Both are stamped with a new generation so that estimates computed from an
// older timeline can be told apart.
func (ps *System) Commit(tl Timeline, s Snapshot) {
	gen := ps.generation.Add(1)
	tl.Generation = gen
	s.Generation = gen
	ps.timeline.Store(&tl)
	ps.Publish(s)
}

// Reset returns to the well-known empty state.
func (ps *System) Reset() {
	ps.Commit(Idle, Empty)
}

// Publish replaces the current snapshot. The last publish wins.
func (ps *System) Publish(s Snapshot) {
	ps.snapshot.Store(&s)
	ps.broadcastEvent(s)
}

func (ps *System) current() *Snapshot {
	return ps.snapshot.Load()
}

// publishIfCurrent replaces prev with next only if prev and the live timeline
// both belong to generation gen, the timeline next was estimated from, and
// nothing else was published in between.
func (ps *System) publishIfCurrent(gen uint64, prev *Snapshot, next Snapshot) bool {
	if prev.Generation != gen || ps.timeline.Load().Generation != gen {
		return false
	}
	if !ps.snapshot.CompareAndSwap(prev, &next) {
		return false
	}
	ps.broadcastEvent(next)
	return true
}

func (ps *System) broadcastEvent(s Snapshot) {
	ps.m.RLock()
	defer ps.m.RUnlock()
	for _, fn := range ps.listeners {
		fn(s)
	}
}
