package app

import (
	"sync"

	"github.com/bft-labs/golive/internal/domain"
)

// Observer receives session snapshots. OnUpdate may be called concurrently
// from several goroutines; snapshots older than one already delivered to the
// same observer are dropped, so an observer never sees Version go backwards.
// OnUpdate should return quickly.
type Observer interface {
	OnUpdate(snap domain.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap domain.Snapshot)

// OnUpdate calls f(snap).
func (f ObserverFunc) OnUpdate(snap domain.Snapshot) { f(snap) }

type subscriber struct {
	id  uint64
	obs Observer

	mu   sync.Mutex
	last uint64
}

// deliver hands snap to the observer unless a newer snapshot already went
// out. The observer runs without any lock held so it may call back into the
// orchestrator.
func (s *subscriber) deliver(snap domain.Snapshot) {
	s.mu.Lock()
	if snap.Version <= s.last {
		s.mu.Unlock()
		return
	}
	s.last = snap.Version
	s.mu.Unlock()

	s.obs.OnUpdate(snap)
}
