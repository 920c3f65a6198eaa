package golive

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/golive/internal/adapters/fs"
	logAdapter "github.com/bft-labs/golive/internal/adapters/log"
	"github.com/bft-labs/golive/internal/app"
	"github.com/bft-labs/golive/internal/ports"
)

// Session coordinates going live on several platforms at once. Use New() to
// create one, then Start() to prepopulate and Confirm() to go live.
type Session struct {
	orch       *app.Orchestrator
	logger     ports.Logger
	plugins    []Plugin
	statusRepo ports.StatusRepository
	statusPath string
	statusDir  string

	mu          sync.Mutex
	initialized []Plugin
	pluginStop  context.CancelFunc

	statusMu  sync.Mutex
	lastSaved uint64
}

// New creates an idle Session over the given platforms and transmitter.
// Returns an error if a platform is registered twice or none is given.
func New(platforms []Platform, transmitter Transmitter, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger
	if o.logger != nil {
		logger = o.logger
	} else {
		logger = logAdapter.NewNoopLogger()
	}

	deps := app.Deps{
		Platforms:   platforms,
		Transmitter: transmitter,
		Logger:      logger,
		Clock:       o.clock,
	}
	if len(o.eventHandlers) > 0 {
		deps.Emitter = &eventEmitterWrapper{handlers: o.eventHandlers}
	}

	orch, err := app.NewOrchestrator(deps)
	if err != nil {
		return nil, err
	}

	s := &Session{
		orch:      orch,
		logger:    logger,
		plugins:   o.plugins,
		statusDir: o.statusDir,
	}

	if o.statusDir != "" {
		repo := fs.NewStatusFileRepository(o.statusDir)
		s.statusRepo = repo
		s.statusPath = repo.Path()
		orch.Subscribe(ObserverFunc(s.saveStatus))
	}
	for _, obs := range o.observers {
		orch.Subscribe(obs)
	}

	return s, nil
}

// saveStatus writes snap unless a newer snapshot is already on disk.
func (s *Session) saveStatus(snap Snapshot) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if snap.Version <= s.lastSaved {
		return
	}
	s.lastSaved = snap.Version
	if err := s.statusRepo.Save(context.Background(), snap); err != nil {
		s.logger.Warn("failed to save status", ports.String("path", s.statusPath), ports.Err(err))
	}
}

// Start initializes plugins and prepopulates every platform. It blocks until
// the session awaits confirmation or ctx is done; prepopulation continues in
// the background in the latter case.
func (s *Session) Start(ctx context.Context) error {
	if s.orch.State() != StateIdle {
		return ErrSessionActive
	}
	if err := s.initPlugins(ctx); err != nil {
		return err
	}

	err := s.orch.Start(ctx)
	if err != nil && s.orch.State() == StateIdle {
		// The session never opened; release what Start acquired.
		_ = s.shutdownPlugins(context.WithoutCancel(ctx))
	}
	return err
}

func (s *Session) initPlugins(ctx context.Context) error {
	pluginCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	if s.pluginStop != nil {
		s.mu.Unlock()
		cancel()
		return ErrSessionActive
	}
	s.pluginStop = cancel
	s.mu.Unlock()

	cfg := PluginConfig{
		Session:   s,
		StatusDir: s.statusDir,
		Logger:    s.logger,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(pluginCtx, cfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			_ = s.shutdownPlugins(context.WithoutCancel(ctx))
			return err
		}
		s.mu.Lock()
		s.initialized = append(s.initialized, p)
		s.mu.Unlock()
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	return nil
}

// shutdownPlugins shuts down initialized plugins in reverse order.
func (s *Session) shutdownPlugins(ctx context.Context) error {
	s.mu.Lock()
	plugins := s.initialized
	s.initialized = nil
	stop := s.pluginStop
	s.pluginStop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}

	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prefill fills empty base fields of draft from the prepopulated platform
// defaults.
func (s *Session) Prefill(draft StreamSettings) StreamSettings {
	return s.orch.Prefill(draft)
}

// Confirm submits the user's settings and activates the stream. It returns
// nil once the session is live. On failure, including a *ValidationError,
// the session is left in StateError; call Retry and confirm again.
func (s *Session) Confirm(ctx context.Context, settings StreamSettings) error {
	return s.orch.Confirm(ctx, settings)
}

// Retry returns a failed session to awaiting confirmation. Completed steps
// whose inputs do not change are not repeated.
func (s *Session) Retry() error {
	return s.orch.Retry()
}

// Teardown ends the session, compensating applied platforms unless the
// stream went live, then shuts plugins down in reverse registration order.
func (s *Session) Teardown(ctx context.Context) error {
	err := s.orch.Teardown(ctx)
	if perr := s.shutdownPlugins(ctx); perr != nil {
		err = errors.Join(err, perr)
	}
	return err
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	return s.orch.Snapshot()
}

// Subscribe registers obs for every change of the session and delivers the
// current snapshot right away. Call the returned function to unsubscribe.
func (s *Session) Subscribe(obs Observer) (unsubscribe func()) {
	return s.orch.Subscribe(obs)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.orch.State()
}

// Platforms returns the registered platform IDs in presentation order.
func (s *Session) Platforms() []PlatformID {
	return s.orch.Platforms()
}

// StatusPath returns the status file path, or "" without WithStatusDir.
func (s *Session) StatusPath() string {
	return s.statusPath
}

var _ app.EventEmitter = (*eventEmitterWrapper)(nil)
