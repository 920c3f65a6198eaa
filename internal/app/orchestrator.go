package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	logAdapter "github.com/bft-labs/golive/internal/adapters/log"
	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/internal/ports"
	"github.com/bft-labs/golive/internal/settings"
	"github.com/bft-labs/golive/pkg/log"
)

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Platforms   []ports.Platform
	Transmitter ports.Transmitter

	// Logger defaults to a no-op logger.
	Logger ports.Logger

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// Emitter, if set, receives every lifecycle transition.
	Emitter EventEmitter
}

// Orchestrator drives one go-live session at a time: prepopulation,
// confirmation, activation across platforms, and teardown with compensation.
type Orchestrator struct {
	lifecycle   *Lifecycle
	platforms   map[domain.PlatformID]ports.Platform
	order       []domain.PlatformID
	merger      *settings.Merger
	transmitter ports.Transmitter
	logger      ports.Logger
	clock       clockwork.Clock

	// opMu serializes Start, Confirm, Retry and Teardown. It is never held
	// while waiting on adapter calls.
	opMu sync.Mutex

	// mu guards the fields below. Adapter calls and checklist mutations
	// never happen under it.
	mu         sync.RWMutex
	attempt    *Attempt
	sessionCtx context.Context
	prepDone   chan struct{}
	version    uint64
	subs       []*subscriber
	nextSubID  uint64
}

// NewOrchestrator validates deps and returns an idle orchestrator.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.Transmitter == nil {
		return nil, fmt.Errorf("%w: transmitter is required", domain.ErrInvalidConfig)
	}
	if len(deps.Platforms) == 0 {
		return nil, domain.ErrNoPlatforms
	}
	logger := deps.Logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	platforms := make(map[domain.PlatformID]ports.Platform, len(deps.Platforms))
	schemas := make(map[domain.PlatformID]domain.FieldSchema, len(deps.Platforms))
	order := make([]domain.PlatformID, 0, len(deps.Platforms))
	for _, p := range deps.Platforms {
		id := p.ID()
		if id == "" {
			return nil, fmt.Errorf("%w: platform without id", domain.ErrInvalidConfig)
		}
		if _, dup := platforms[id]; dup {
			return nil, fmt.Errorf("%w: platform %s registered twice", domain.ErrInvalidConfig, id)
		}
		platforms[id] = p
		schemas[id] = p.Schema()
		order = append(order, id)
	}
	domain.SortPlatformIDs(order)

	return &Orchestrator{
		lifecycle:   NewLifecycle(logger, deps.Emitter),
		platforms:   platforms,
		order:       order,
		merger:      settings.NewMerger(schemas),
		transmitter: deps.Transmitter,
		logger:      logger,
		clock:       clock,
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() domain.LifecycleState {
	return o.lifecycle.State()
}

// Platforms returns the registered platform IDs in order.
func (o *Orchestrator) Platforms() []domain.PlatformID {
	return append([]domain.PlatformID(nil), o.order...)
}

// Start opens a new attempt and prepopulates every registered platform
// concurrently. A failing platform is recorded in the snapshot and does not
// stop the others. Start blocks until the session is awaiting confirmation
// or ctx is done; in the latter case prepopulation keeps running in the
// background and ctx.Err() is returned.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.opMu.Lock()
	if !o.lifecycle.CanStart() {
		o.opMu.Unlock()
		return domain.ErrSessionActive
	}

	att := newAttempt(o.clock)
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	o.mu.Lock()
	o.attempt = att
	o.sessionCtx = sessionCtx
	o.prepDone = done
	o.mu.Unlock()
	att.Checklist.OnChange(func(domain.ChecklistStep) { o.publish() })

	o.lifecycle.SetCancel(cancel)
	if err := o.lifecycle.TransitionTo(domain.StatePrepopulating, "session started"); err != nil {
		cancel()
		o.opMu.Unlock()
		return err
	}
	o.logger.Info("go-live session started", log.Attempt(att.ID), ports.Int("platforms", len(o.order)))
	o.publish()

	o.lifecycle.AddWorker()
	go func() {
		defer o.lifecycle.WorkerDone()
		defer close(done)
		o.prepopulate(sessionCtx, att)
	}()
	o.opMu.Unlock()

	return waitDone(ctx, done)
}

func (o *Orchestrator) prepopulate(ctx context.Context, att *Attempt) {
	results := make([]domain.PrepopulateResult, len(o.order))

	var g errgroup.Group
	for i, id := range o.order {
		p := o.platforms[id]
		g.Go(func() error {
			defaults, err := p.Prepopulate(ctx)
			if err != nil {
				err = &domain.PlatformError{Platform: id, Op: "prepopulate", Err: err}
				o.logger.Warn("prepopulation failed, continuing with defaults",
					log.Attempt(att.ID), log.Platform(string(id)), ports.Err(err))
			}
			results[i] = domain.PrepopulateResult{Defaults: defaults, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		o.logger.Debug("prepopulation interrupted", log.Attempt(att.ID))
		return
	}

	o.mu.Lock()
	for i, id := range o.order {
		att.Prepopulation[id] = results[i]
	}
	o.mu.Unlock()

	if o.lifecycle.TransitionFrom(domain.StatePrepopulating, domain.StateAwaitingConfirmation, "prepopulation finished") {
		o.publish()
	}
}

// Prefill fills empty values of draft from the successful prepopulation
// results of the current attempt.
func (o *Orchestrator) Prefill(draft domain.StreamSettings) domain.StreamSettings {
	o.mu.RLock()
	defaults := make(map[domain.PlatformID]domain.PlatformDefaults)
	if o.attempt != nil {
		for id, r := range o.attempt.Prepopulation {
			if r.Err == nil {
				defaults[id] = r.Defaults
			}
		}
	}
	o.mu.RUnlock()
	return settings.Prefill(draft, defaults)
}

// Confirm submits settings and runs the activation sequence. It blocks until
// the attempt is live or failed, returning the attempt error, or until ctx is
// done. Confirming while an activation is already running is a no-op that
// returns nil. Confirming during prepopulation waits for it to finish first.
func (o *Orchestrator) Confirm(ctx context.Context, s domain.StreamSettings) error {
	for {
		o.opMu.Lock()
		state := o.lifecycle.State()
		switch state {
		case domain.StateActivating:
			o.opMu.Unlock()
			o.logger.Debug("confirm ignored, activation already running")
			return nil
		case domain.StatePrepopulating:
			o.mu.RLock()
			done := o.prepDone
			o.mu.RUnlock()
			o.opMu.Unlock()
			if err := waitDone(ctx, done); err != nil {
				return err
			}
			continue
		case domain.StateAwaitingConfirmation:
		default:
			o.opMu.Unlock()
			return fmt.Errorf("%w (state %s)", domain.ErrNotAwaitingConfirmation, state)
		}

		o.mu.Lock()
		att, sessionCtx := o.attempt, o.sessionCtx
		att.Settings = s.Clone()
		att.Err = nil
		o.mu.Unlock()

		if !o.lifecycle.TransitionFrom(domain.StateAwaitingConfirmation, domain.StateActivating, "settings confirmed") {
			o.opMu.Unlock()
			return nil
		}
		o.publish()

		done := make(chan struct{})
		var runErr error
		o.lifecycle.AddWorker()
		go func() {
			defer o.lifecycle.WorkerDone()
			defer close(done)
			runErr = o.activate(sessionCtx, att)
		}()
		o.opMu.Unlock()

		if err := waitDone(ctx, done); err != nil {
			return err
		}
		return runErr
	}
}

// Retry moves a failed attempt back to awaitingConfirmation. Only failed
// steps, the steps depending on them and the apply steps of compensated
// platforms are reset; everything else keeps its status.
func (o *Orchestrator) Retry() error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if state := o.lifecycle.State(); state != domain.StateError {
		return fmt.Errorf("%w: retry from %s", domain.ErrInvalidTransition, state)
	}

	o.mu.Lock()
	att := o.attempt
	tr := att.Checklist
	var reset []string
	for _, step := range tr.Snapshot() {
		switch {
		case step.Status == domain.StepFailed:
			reset = append(reset, step.Name)
		case step.Status == domain.StepDone:
			if id, ok := domain.ApplyStepPlatform(step.Name); ok {
				if _, applied := att.applied[id]; !applied {
					reset = append(reset, step.Name)
				}
			}
		}
	}
	att.Err = nil
	o.mu.Unlock()

	reset = append(reset, tr.Dependents(reset...)...)
	if err := tr.Reset(reset...); err != nil {
		return err
	}
	if err := o.lifecycle.TransitionTo(domain.StateAwaitingConfirmation, "retry"); err != nil {
		return err
	}
	o.logger.Info("retrying go-live", log.Attempt(att.ID), ports.Int("reset_steps", len(reset)))
	o.publish()
	return nil
}

// Teardown closes the session. In-flight adapter calls are cancelled and
// waited for; then, unless the attempt went live, every platform whose
// settings were applied is stopped exactly once. The returned error joins
// the failed stop calls. Teardown of an idle orchestrator is a no-op.
func (o *Orchestrator) Teardown(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if o.lifecycle.State() == domain.StateIdle {
		return nil
	}

	o.lifecycle.Cancel()
	o.lifecycle.Wait()

	o.mu.RLock()
	att := o.attempt
	o.mu.RUnlock()

	var err error
	if o.lifecycle.State() != domain.StateLive {
		err = o.compensate(ctx, att, nil, "teardown")
	}

	if terr := o.lifecycle.TransitionTo(domain.StateIdle, "teardown"); terr != nil {
		return errors.Join(err, terr)
	}
	o.publish()
	o.logger.Info("go-live session closed", log.Attempt(att.ID))

	o.mu.Lock()
	o.attempt = nil
	o.sessionCtx = nil
	o.prepDone = nil
	o.mu.Unlock()
	return err
}

// compensate stops the applied platforms among ids (all applied platforms
// when ids is nil). Stop calls run concurrently; each platform is claimed
// under the lock first so no apply is ever stopped twice.
func (o *Orchestrator) compensate(ctx context.Context, att *Attempt, ids []domain.PlatformID, reason string) error {
	o.mu.Lock()
	claim := att.claimApplied(ids)
	o.mu.Unlock()
	if len(claim) == 0 {
		return nil
	}

	errs := make([]error, len(claim))
	var g errgroup.Group
	for i, id := range claim {
		p := o.platforms[id]
		g.Go(func() error {
			if err := p.Stop(ctx); err != nil {
				errs[i] = &domain.PlatformError{Platform: id, Op: "stop", Err: err}
				o.logger.Error("compensation failed",
					log.Attempt(att.ID), log.Platform(string(id)), ports.String("reason", reason), ports.Err(err))
				return nil
			}
			o.logger.Info("platform stopped",
				log.Attempt(att.ID), log.Platform(string(id)), ports.String("reason", reason))
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	att.compensated = append(att.compensated, claim...)
	o.mu.Unlock()
	o.publish()

	return errors.Join(errs...)
}

// Snapshot returns the current session view.
func (o *Orchestrator) Snapshot() domain.Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

// Subscribe registers obs for every published snapshot and immediately
// delivers the current one. The returned function unsubscribes.
func (o *Orchestrator) Subscribe(obs Observer) (unsubscribe func()) {
	o.mu.Lock()
	o.nextSubID++
	sub := &subscriber{id: o.nextSubID, obs: obs}
	o.subs = append(o.subs, sub)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if snap.Version > 0 {
		sub.deliver(snap)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == sub.id {
					o.subs = append(o.subs[:i], o.subs[i+1:]...)
					break
				}
			}
		})
	}
}

func (o *Orchestrator) publish() {
	o.mu.Lock()
	o.version++
	snap := o.snapshotLocked()
	subs := append([]*subscriber(nil), o.subs...)
	o.mu.Unlock()

	for _, s := range subs {
		s.deliver(snap)
	}
}

func (o *Orchestrator) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Version:   o.version,
		State:     o.lifecycle.State(),
		UpdatedAt: o.clock.Now(),
	}
	att := o.attempt
	if att == nil {
		return snap
	}
	snap.AttemptID = att.ID
	snap.Checklist = att.Checklist.Snapshot()
	if !domain.IsCancelled(att.Err) {
		snap.Err = att.Err
	}
	if len(att.Prepopulation) > 0 {
		snap.Prepopulation = make(map[domain.PlatformID]domain.PrepopulateResult, len(att.Prepopulation))
		for id, r := range att.Prepopulation {
			r.Defaults.Fields = cloneAny(r.Defaults.Fields)
			snap.Prepopulation[id] = r
		}
	}
	snap.Compensated = append([]domain.PlatformID(nil), att.compensated...)
	return snap
}

func cloneAny(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func waitDone(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
