package golive

import (
	"github.com/jonboulle/clockwork"
)

// Option configures optional behavior of a Session.
type Option func(*options)

type options struct {
	logger        Logger
	clock         clockwork.Clock
	eventHandlers []EventHandler
	observers     []Observer
	plugins       []Plugin
	statusDir     string
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock used for checklist timestamps. Tests pass a
// clockwork fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithEventHandler adds a handler for lifecycle events. It may be given
// more than once.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandlers = append(o.eventHandlers, handler)
	}
}

// WithObserver subscribes an observer for the lifetime of the session.
// Use Session.Subscribe for observers that come and go.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithStatusDir persists every snapshot to status.json in dir, so external
// tools (and `golive status`) can inspect the current session.
func WithStatusDir(dir string) Option {
	return func(o *options) {
		o.statusDir = dir
	}
}

// WithPlugin registers a plugin to be initialized when the session starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
