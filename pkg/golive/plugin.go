package golive

import "context"

// Plugin extends a Session with optional behavior. Plugins are initialized
// by Start in registration order and shut down by Teardown in reverse order.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called when the session starts. The context is
	// cancelled on teardown.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called on teardown, after compensation finished.
	Shutdown(ctx context.Context) error
}

// PluginConfig gives plugins access to the session.
type PluginConfig struct {
	Session   *Session
	StatusDir string
	Logger    Logger
}

// BasePlugin provides no-op defaults for Plugin.
type BasePlugin struct{}

// Name returns "base".
func (BasePlugin) Name() string { return "base" }

// Initialize does nothing.
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(context.Context) error { return nil }
