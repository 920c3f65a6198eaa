package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/golive/internal/checklist"
	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/internal/ports"
	"github.com/bft-labs/golive/pkg/log"
)

// activate runs the go-live sequence for att:
//
//  1. merge the submitted settings
//  2. validate every enabled platform, concurrently
//  3. apply settings to every enabled platform, concurrently
//  4. start (or join) the shared transmission once the applies are done
//  5. mark the attempt live
//
// A done step whose inputs did not change since it ran is not repeated, so a
// confirm after Retry only redoes what failed or what the new settings touch.
// When ctx is cancelled the sequence stops and returns a CancelledError
// without touching the lifecycle; Teardown owns what happens next.
func (o *Orchestrator) activate(ctx context.Context, att *Attempt) error {
	o.mu.RLock()
	submitted := att.Settings.Clone()
	tr := att.Checklist
	o.mu.RUnlock()

	if err := o.mergeStep(att, tr, submitted); err != nil {
		return o.fail(att, err)
	}

	o.mu.RLock()
	resolved := att.Resolved
	o.mu.RUnlock()
	plan := resolved.Enabled()

	tr, err := o.ensurePlan(ctx, att, plan)
	if err != nil {
		if domain.IsCancelled(err) {
			return err
		}
		return o.fail(att, err)
	}

	skipped, err := o.validateStep(ctx, att, tr, plan, resolved)
	if err != nil {
		if domain.IsCancelled(err) {
			return err
		}
		return o.fail(att, err)
	}

	if err := o.applyStep(ctx, att, tr, plan, resolved, skipped); err != nil {
		if domain.IsCancelled(err) {
			return err
		}
		o.logger.Warn("required platform failed, compensating", log.Attempt(att.ID), ports.Err(err))
		_ = o.compensate(context.WithoutCancel(ctx), att, nil, "apply failed")
		return o.fail(att, err)
	}

	if err := o.transmitStep(ctx, tr); err != nil {
		if domain.IsCancelled(err) {
			return err
		}
		o.logger.Warn("transmission failed, compensating", log.Attempt(att.ID), ports.Err(err))
		_ = o.compensate(context.WithoutCancel(ctx), att, nil, "transmission failed")
		return o.fail(att, err)
	}

	if ctx.Err() != nil {
		return &domain.CancelledError{Err: ctx.Err()}
	}
	if err := runStep(tr, domain.StepGoLive, true, func() error { return nil }); err != nil {
		return o.fail(att, err)
	}
	if !o.lifecycle.TransitionFrom(domain.StateActivating, domain.StateLive, "all steps done") {
		return &domain.CancelledError{}
	}
	o.logger.Info("live", log.Attempt(att.ID), ports.Int("platforms", len(plan)))
	o.publish()
	return nil
}

// fail records err as the attempt error and moves to the error state.
func (o *Orchestrator) fail(att *Attempt, err error) error {
	o.mu.Lock()
	att.Err = err
	o.mu.Unlock()

	if o.lifecycle.TransitionFrom(domain.StateActivating, domain.StateError, err.Error()) {
		o.logger.Error("go-live failed", log.Attempt(att.ID), ports.Err(err))
	}
	o.publish()
	return err
}

func (o *Orchestrator) mergeStep(att *Attempt, tr *checklist.Tracker, submitted domain.StreamSettings) error {
	o.mu.RLock()
	unchanged := att.merged != nil && reflect.DeepEqual(*att.merged, submitted)
	o.mu.RUnlock()

	return runStep(tr, domain.StepMergeSettings, !unchanged, func() error {
		res := o.merger.Merge(submitted, submitted.OverrideList())
		if err := res.Err(); err != nil {
			return err
		}
		o.mu.Lock()
		att.Resolved = res.Resolved
		att.merged = &submitted
		o.mu.Unlock()
		return nil
	})
}

// ensurePlan makes the checklist match the enabled platforms and their
// required flags. The first confirm extends the checklist; a later confirm
// with a different plan stops the platforms that were dropped and starts a
// fresh checklist.
func (o *Orchestrator) ensurePlan(ctx context.Context, att *Attempt, plan []domain.PlatformID) (*checklist.Tracker, error) {
	required := o.requiredOf(att, plan)

	o.mu.RLock()
	tr, same, first := att.Checklist, att.samePlan(plan, required), att.plan == nil
	o.mu.RUnlock()
	if same {
		return tr, nil
	}

	if !first {
		var dropped []domain.PlatformID
		o.mu.RLock()
		for _, id := range att.plan {
			if !containsID(plan, id) {
				dropped = append(dropped, id)
			}
		}
		o.mu.RUnlock()
		if len(dropped) > 0 {
			if err := o.compensate(context.WithoutCancel(ctx), att, dropped, "platform deselected"); err != nil {
				o.logger.Warn("stopping deselected platforms failed", log.Attempt(att.ID), ports.Err(err))
			}
		}

		tr = newChecklist(o.clock)
		if err := addMergeDone(tr); err != nil {
			return nil, err
		}
	}

	if err := addPlatformSteps(tr, plan, required); err != nil {
		return nil, err
	}

	o.mu.Lock()
	att.plan = append([]domain.PlatformID(nil), plan...)
	att.required = append([]domain.PlatformID(nil), required...)
	att.Checklist = tr
	o.mu.Unlock()
	tr.OnChange(func(domain.ChecklistStep) { o.publish() })
	o.publish()
	return tr, nil
}

func (o *Orchestrator) requiredOf(att *Attempt, plan []domain.PlatformID) []domain.PlatformID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []domain.PlatformID
	for _, id := range plan {
		if att.Resolved.Platforms[id].Required {
			out = append(out, id)
		}
	}
	return out
}

// validateStep validates every planned platform. Problems reported by any
// platform abort the attempt before anything is applied. An optional
// platform whose validation call itself failed is returned in skipped and
// left out of the apply phase.
func (o *Orchestrator) validateStep(ctx context.Context, att *Attempt, tr *checklist.Tracker, plan []domain.PlatformID, resolved domain.ResolvedSettings) (map[domain.PlatformID]error, error) {
	errs := make([]error, len(plan))

	var g errgroup.Group
	for i, id := range plan {
		ps := resolved.Platforms[id]
		o.mu.RLock()
		prev, ok := att.validated[id]
		o.mu.RUnlock()
		rerun := !ok || !prev.Equal(ps)

		p := o.platforms[id]
		g.Go(func() error {
			errs[i] = runStep(tr, domain.ValidateStep(id), rerun, func() error {
				err := p.Validate(ctx, ps)
				if err == nil {
					o.mu.Lock()
					att.validated[id] = ps.Clone()
					o.mu.Unlock()
					return nil
				}
				if ctx.Err() != nil {
					return &domain.CancelledError{Err: err}
				}
				var verr *domain.ValidationError
				if errors.As(err, &verr) {
					return scopeProblems(id, verr)
				}
				return &domain.PlatformError{Platform: id, Op: "validate", Required: ps.Required, Err: err}
			})
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, &domain.CancelledError{Err: ctx.Err()}
	}

	var problems []domain.FieldError
	var blocking error
	skipped := make(map[domain.PlatformID]error)
	for i, id := range plan {
		err := errs[i]
		if err == nil {
			continue
		}
		var verr *domain.ValidationError
		var perr *domain.PlatformError
		switch {
		case errors.As(err, &verr):
			problems = append(problems, verr.Problems...)
		case errors.As(err, &perr) && !perr.Required:
			o.logger.Warn("optional platform failed validation, skipping it",
				log.Attempt(att.ID), log.Platform(string(id)), ports.Err(err))
			skipped[id] = err
		default:
			if blocking == nil {
				blocking = err
			}
		}
	}
	if len(problems) > 0 {
		return nil, &domain.ValidationError{Problems: problems}
	}
	return skipped, blocking
}

// applyStep pushes settings to every planned platform that passed
// validation. Failures of optional platforms are tolerated as long as at
// least one platform accepted its settings; the first required failure is
// returned.
func (o *Orchestrator) applyStep(ctx context.Context, att *Attempt, tr *checklist.Tracker, plan []domain.PlatformID, resolved domain.ResolvedSettings, skipped map[domain.PlatformID]error) error {
	errs := make([]error, len(plan))

	var g errgroup.Group
	for i, id := range plan {
		ps := resolved.Platforms[id]
		step := domain.ApplyStep(id)

		if cause, ok := skipped[id]; ok {
			errs[i] = runStep(tr, step, true, func() error {
				return &domain.PlatformError{Platform: id, Op: "apply", Required: ps.Required, Err: fmt.Errorf("skipped: %w", cause)}
			})
			continue
		}

		o.mu.RLock()
		prev, ok := att.applied[id]
		o.mu.RUnlock()
		unchanged := ok && prev.Equal(ps)
		if unchanged && tr.Status(step) == domain.StepPending {
			// Applied under a previous checklist; record it without calling the platform.
			errs[i] = runStep(tr, step, true, func() error { return nil })
			continue
		}

		p := o.platforms[id]
		g.Go(func() error {
			errs[i] = runStep(tr, step, !unchanged, func() error {
				err := p.ApplySettings(ctx, ps)
				if err == nil {
					o.mu.Lock()
					att.applied[id] = ps.Clone()
					o.mu.Unlock()
					o.logger.Info("settings applied", log.Attempt(att.ID), log.Platform(string(id)))
					return nil
				}
				if ctx.Err() != nil {
					return &domain.CancelledError{Err: err}
				}
				return &domain.PlatformError{Platform: id, Op: "apply", Required: ps.Required, Err: err}
			})
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return &domain.CancelledError{Err: ctx.Err()}
	}

	var firstErr error
	for i, id := range plan {
		err := errs[i]
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		var perr *domain.PlatformError
		if errors.As(err, &perr) && perr.Required {
			return err
		}
		o.logger.Warn("optional platform failed", log.Attempt(att.ID), log.Platform(string(id)), ports.Err(err))
	}

	o.mu.RLock()
	applied := len(att.applied)
	o.mu.RUnlock()
	if applied == 0 {
		return fmt.Errorf("%w: %w", domain.ErrNothingApplied, firstErr)
	}
	return nil
}

func (o *Orchestrator) transmitStep(ctx context.Context, tr *checklist.Tracker) error {
	if ctx.Err() != nil {
		return &domain.CancelledError{Err: ctx.Err()}
	}
	return runStep(tr, domain.StepStartTransmission, true, func() error {
		err := o.transmitter.StartOrJoin(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &domain.CancelledError{Err: err}
		}
		return &domain.TransmissionError{Err: err}
	})
}

// runStep drives one checklist step through running to done or failed.
// A done step is kept as is unless rerun is set, in which case it is reset
// into a new generation first.
func runStep(tr *checklist.Tracker, name string, rerun bool, fn func() error) error {
	switch tr.Status(name) {
	case domain.StepDone:
		if !rerun {
			return nil
		}
		if err := tr.Reset(name); err != nil {
			return err
		}
	case domain.StepFailed:
		if err := tr.Reset(name); err != nil {
			return err
		}
	}

	if err := tr.Begin(name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if ferr := tr.Fail(name, err); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	return tr.Complete(name)
}

func newChecklist(clock clockwork.Clock) *checklist.Tracker {
	return checklist.New(clock)
}

// addMergeDone seeds a fresh checklist with the merge step that already ran.
func addMergeDone(tr *checklist.Tracker) error {
	if err := tr.Add(domain.StepMergeSettings); err != nil {
		return err
	}
	if err := tr.Begin(domain.StepMergeSettings); err != nil {
		return err
	}
	return tr.Complete(domain.StepMergeSettings)
}

// addPlatformSteps declares the per-platform steps and the shared tail.
// Every apply waits for all validations; transmission waits for the
// required applies, or for all of them when none is required.
func addPlatformSteps(tr *checklist.Tracker, plan, required []domain.PlatformID) error {
	validates := make([]string, 0, len(plan))
	for _, id := range plan {
		name := domain.ValidateStep(id)
		if err := tr.Add(name, domain.StepMergeSettings); err != nil {
			return err
		}
		validates = append(validates, name)
	}
	applies := make([]string, 0, len(plan))
	for _, id := range plan {
		name := domain.ApplyStep(id)
		if err := tr.Add(name, validates...); err != nil {
			return err
		}
		applies = append(applies, name)
	}

	barrier := applies
	if len(required) > 0 {
		barrier = barrier[:0:0]
		for _, id := range required {
			barrier = append(barrier, domain.ApplyStep(id))
		}
	}
	if err := tr.Add(domain.StepStartTransmission, barrier...); err != nil {
		return err
	}
	return tr.Add(domain.StepGoLive, domain.StepStartTransmission)
}

func containsID(ids []domain.PlatformID, id domain.PlatformID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// scopeProblems attributes platform-reported problems to the platform.
func scopeProblems(id domain.PlatformID, verr *domain.ValidationError) *domain.ValidationError {
	out := &domain.ValidationError{Problems: make([]domain.FieldError, len(verr.Problems))}
	for i, p := range verr.Problems {
		if p.Platform == "" {
			p.Platform = id
		}
		out.Problems[i] = p
	}
	return out
}
