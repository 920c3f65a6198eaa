package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/internal/ports"
)

// transitions lists the states reachable from each state.
var transitions = map[domain.LifecycleState][]domain.LifecycleState{
	domain.StateIdle:                 {domain.StatePrepopulating},
	domain.StatePrepopulating:        {domain.StateAwaitingConfirmation, domain.StateIdle},
	domain.StateAwaitingConfirmation: {domain.StateActivating, domain.StateIdle},
	domain.StateActivating:           {domain.StateLive, domain.StateError, domain.StateIdle},
	domain.StateLive:                 {domain.StateIdle},
	domain.StateError:                {domain.StateAwaitingConfirmation, domain.StateIdle},
}

// EventEmitter is called when the lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current domain.LifecycleState, reason string)
}

// Lifecycle is the state machine of a go-live session. It also tracks the
// session's in-flight adapter work so teardown can cancel and wait for it.
type Lifecycle struct {
	mu           sync.RWMutex
	state        domain.LifecycleState
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       ports.Logger
	eventEmitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateIdle.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        domain.StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() domain.LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping domain.ErrInvalidTransition if the transition is
// not allowed; the state is left unchanged in that case.
func (l *Lifecycle) TransitionTo(newState domain.LifecycleState, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !allowed(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, oldState, newState)
	}
	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

// TransitionFrom moves to newState only if the current state is from.
// It reports whether the transition happened; the check and the move are
// atomic, which is what makes repeated confirms a no-op.
func (l *Lifecycle) TransitionFrom(from, newState domain.LifecycleState, reason string) bool {
	l.mu.Lock()
	if l.state != from || !allowed(from, newState) {
		l.mu.Unlock()
		return false
	}
	l.state = newState
	l.mu.Unlock()

	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(from, newState, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", from.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)
	return true
}

func allowed(from, to domain.LifecycleState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if a session can be started.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == domain.StateIdle
}

// SetCancel stores the cancel function of the session context.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the session context, interrupting in-flight adapter calls
// that honor cancellation.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the in-flight worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the in-flight worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// Wait blocks until every in-flight worker has finished. There is no
// timeout: compensation must never race an apply that is still running.
func (l *Lifecycle) Wait() {
	l.wg.Wait()
}
