package golive

import (
	"github.com/bft-labs/golive/internal/app"
	"github.com/bft-labs/golive/internal/domain"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives lifecycle events. Events are delivered synchronously
// from the goroutine that made the transition; implementations should
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// BaseEventHandler provides no-op defaults. Embed it to implement only the
// events you need.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(event StateChangeEvent)

// OnStateChange calls f(event).
func (f EventHandlerFunc) OnStateChange(event StateChangeEvent) { f(event) }

// Observer receives a snapshot after every change of the session.
type Observer = app.Observer

// ObserverFunc adapts a function to Observer.
type ObserverFunc = app.ObserverFunc

// eventEmitterWrapper fans app lifecycle events out to the registered handlers.
type eventEmitterWrapper struct {
	handlers []EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current domain.LifecycleState, reason string) {
	event := StateChangeEvent{Previous: previous, Current: current, Reason: reason}
	for _, h := range e.handlers {
		h.OnStateChange(event)
	}
}
