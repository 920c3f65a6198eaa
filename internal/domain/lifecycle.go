package domain

// LifecycleState is the state of a go-live session.
type LifecycleState int

const (
	StateIdle LifecycleState = iota
	StatePrepopulating
	StateAwaitingConfirmation
	StateActivating
	StateLive
	StateError
)

// String returns a human-readable representation of the state.
func (s LifecycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrepopulating:
		return "prepopulating"
	case StateAwaitingConfirmation:
		return "awaitingConfirmation"
	case StateActivating:
		return "activating"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ShouldShowConfirm reports whether a confirm action should be offered.
func (s LifecycleState) ShouldShowConfirm() bool {
	return s == StatePrepopulating || s == StateAwaitingConfirmation
}
