package checklist

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/golive/internal/domain"
)

// ChangeFunc is called after every step mutation, outside the tracker lock.
type ChangeFunc func(step domain.ChecklistStep)

// Tracker is a concurrency-safe ledger of checklist steps.
type Tracker struct {
	mu       sync.RWMutex
	clock    clockwork.Clock
	order    []string
	steps    map[string]*domain.ChecklistStep
	onChange ChangeFunc
}

// New creates an empty tracker. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		clock: clock,
		steps: make(map[string]*domain.ChecklistStep),
	}
}

// OnChange registers the change hook. Only one hook is kept.
func (t *Tracker) OnChange(fn ChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Add declares a pending step. Dependencies must already be declared, which
// keeps declaration order a valid execution order.
func (t *Tracker) Add(name string, deps ...string) error {
	t.mu.Lock()
	if _, ok := t.steps[name]; ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrDuplicateStep, name)
	}
	for _, d := range deps {
		if _, ok := t.steps[d]; !ok {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s (dependency of %s)", domain.ErrUnknownStep, d, name)
		}
	}
	step := &domain.ChecklistStep{
		Name:      name,
		Status:    domain.StepPending,
		DependsOn: append([]string(nil), deps...),
	}
	t.steps[name] = step
	t.order = append(t.order, name)
	snap, hook := copyStep(step), t.onChange
	t.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return nil
}

// Begin moves a pending step to running.
func (t *Tracker) Begin(name string) error {
	return t.transition(name, domain.StepRunning, nil)
}

// Complete moves a running step to done.
func (t *Tracker) Complete(name string) error {
	return t.transition(name, domain.StepDone, nil)
}

// Fail moves a running step to failed and records err.
func (t *Tracker) Fail(name string, err error) error {
	return t.transition(name, domain.StepFailed, err)
}

func (t *Tracker) transition(name string, to domain.StepStatus, cause error) error {
	t.mu.Lock()
	step, ok := t.steps[name]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, name)
	}

	from := step.Status
	valid := false
	switch to {
	case domain.StepRunning:
		valid = from == domain.StepPending
	case domain.StepDone, domain.StepFailed:
		valid = from == domain.StepRunning
	}
	if !valid {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s %s -> %s", domain.ErrInvalidStepTransition, name, from, to)
	}

	now := t.clock.Now()
	step.Status = to
	switch to {
	case domain.StepRunning:
		step.StartedAt = now
	default:
		step.FinishedAt = now
		step.Err = cause
	}
	snap, hook := copyStep(step), t.onChange
	t.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return nil
}

// Reset starts a new generation of the named terminal steps, putting them
// back to pending. Pending steps are left alone; running steps cannot be
// reset.
func (t *Tracker) Reset(names ...string) error {
	t.mu.Lock()
	for _, name := range names {
		step, ok := t.steps[name]
		if !ok {
			t.mu.Unlock()
			return fmt.Errorf("%w: %s", domain.ErrUnknownStep, name)
		}
		if step.Status == domain.StepRunning {
			t.mu.Unlock()
			return fmt.Errorf("%w: cannot reset running step %s", domain.ErrInvalidStepTransition, name)
		}
	}

	var changed []domain.ChecklistStep
	for _, name := range names {
		step := t.steps[name]
		if !step.Status.Terminal() {
			continue
		}
		step.Status = domain.StepPending
		step.Err = nil
		step.Generation++
		step.StartedAt, step.FinishedAt = time.Time{}, time.Time{}
		changed = append(changed, copyStep(step))
	}
	hook := t.onChange
	t.mu.Unlock()

	if hook != nil {
		for _, s := range changed {
			hook(s)
		}
	}
	return nil
}

// Get returns a copy of the named step.
func (t *Tracker) Get(name string) (domain.ChecklistStep, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	step, ok := t.steps[name]
	if !ok {
		return domain.ChecklistStep{}, false
	}
	return copyStep(step), true
}

// Status returns the status of the named step, or "" when unknown.
func (t *Tracker) Status(name string) domain.StepStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if step, ok := t.steps[name]; ok {
		return step.Status
	}
	return ""
}

// Snapshot returns a consistent copy of every step in declaration order.
func (t *Tracker) Snapshot() []domain.ChecklistStep {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChecklistStep, len(t.order))
	for i, name := range t.order {
		out[i] = copyStep(t.steps[name])
	}
	return out
}

// Dependents returns every step that transitively depends on one of names,
// in declaration order. The named steps themselves are not included.
func (t *Tracker) Dependents(names ...string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	marked := make(map[string]bool, len(names))
	for _, n := range names {
		marked[n] = true
	}
	var out []string
	// Declaration order is a topological order, so one pass is enough.
	for _, name := range t.order {
		if marked[name] {
			continue
		}
		for _, d := range t.steps[name].DependsOn {
			if marked[d] {
				marked[name] = true
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func copyStep(s *domain.ChecklistStep) domain.ChecklistStep {
	out := *s
	out.DependsOn = append([]string(nil), s.DependsOn...)
	return out
}
