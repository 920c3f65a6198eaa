package domain

import "time"

// PrepopulateResult is the outcome of one platform's prepopulation.
type PrepopulateResult struct {
	Defaults PlatformDefaults
	Err      error
}

// Snapshot is the read-only projection of a go-live session that observers
// receive. It never aliases orchestrator state.
type Snapshot struct {
	// Version increases with every published change; observers can drop
	// snapshots older than one they already handled.
	Version uint64

	AttemptID string
	State     LifecycleState
	Checklist []ChecklistStep

	// Err is the attempt's error; nil while healthy or after cancellation.
	Err error

	Prepopulation map[PlatformID]PrepopulateResult

	// Compensated lists platforms that received a Stop call.
	Compensated []PlatformID

	UpdatedAt time.Time
}

// ShouldShowConfirm reports whether a confirm action should be enabled.
func (s Snapshot) ShouldShowConfirm() bool {
	return s.State.ShouldShowConfirm()
}

// Step returns the named step.
func (s Snapshot) Step(name string) (ChecklistStep, bool) {
	for _, st := range s.Checklist {
		if st.Name == name {
			return st, true
		}
	}
	return ChecklistStep{}, false
}
