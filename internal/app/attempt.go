package app

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/golive/internal/checklist"
	"github.com/bft-labs/golive/internal/domain"
)

// Attempt groups everything that belongs to one go-live attempt. It is owned
// by the Orchestrator and only touched under the orchestrator lock; observers
// see it through domain.Snapshot.
type Attempt struct {
	ID string

	// Settings is the snapshot submitted by the latest Confirm.
	Settings domain.StreamSettings
	Resolved domain.ResolvedSettings

	Checklist *checklist.Tracker
	Err       error

	Prepopulation map[domain.PlatformID]domain.PrepopulateResult

	// plan is the ordered set of platforms the checklist was built for and
	// required the subset transmission waits on.
	plan     []domain.PlatformID
	required []domain.PlatformID

	// merged and validated record the inputs of the last successful merge
	// and validations. A done step whose inputs did not change is kept on
	// a later confirm.
	merged    *domain.StreamSettings
	validated map[domain.PlatformID]domain.PlatformSettings

	// applied holds platforms whose settings were accepted and not yet
	// compensated. Compensation removes the entry, so each successful
	// apply is stopped at most once.
	applied map[domain.PlatformID]domain.PlatformSettings

	compensated []domain.PlatformID
}

func newAttempt(clock clockwork.Clock) *Attempt {
	tr := checklist.New(clock)
	// The tracker is empty, Add cannot fail.
	_ = tr.Add(domain.StepMergeSettings)
	return &Attempt{
		ID:            uuid.NewString(),
		Checklist:     tr,
		Prepopulation: make(map[domain.PlatformID]domain.PrepopulateResult),
		validated:     make(map[domain.PlatformID]domain.PlatformSettings),
		applied:       make(map[domain.PlatformID]domain.PlatformSettings),
	}
}

// samePlan reports whether the checklist was built for exactly ids with
// the given required platforms.
func (a *Attempt) samePlan(ids, required []domain.PlatformID) bool {
	return a.plan != nil && equalIDs(a.plan, ids) && equalIDs(a.required, required)
}

func equalIDs(a, b []domain.PlatformID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// claimApplied removes and returns the applied platforms in ids (all of
// them when ids is nil), in platform order.
func (a *Attempt) claimApplied(ids []domain.PlatformID) []domain.PlatformID {
	var claim []domain.PlatformID
	if ids == nil {
		for id := range a.applied {
			claim = append(claim, id)
		}
	} else {
		for _, id := range ids {
			if _, ok := a.applied[id]; ok {
				claim = append(claim, id)
			}
		}
	}
	domain.SortPlatformIDs(claim)
	for _, id := range claim {
		delete(a.applied, id)
	}
	return claim
}
