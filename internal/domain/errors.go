package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the orchestrator and its collaborators.
// Check them with errors.Is.
var (
	// ErrInvalidTransition is returned for a lifecycle transition the state machine does not allow.
	ErrInvalidTransition = errors.New("golive: invalid lifecycle transition")

	// ErrInvalidStepTransition is returned when a checklist step would move backwards.
	ErrInvalidStepTransition = errors.New("golive: invalid step transition")

	// ErrUnknownStep is returned for a step name that was never added.
	ErrUnknownStep = errors.New("golive: unknown checklist step")

	// ErrDuplicateStep is returned when a step name is added twice.
	ErrDuplicateStep = errors.New("golive: duplicate checklist step")

	// ErrNotAwaitingConfirmation is returned by Confirm outside awaitingConfirmation.
	ErrNotAwaitingConfirmation = errors.New("golive: session is not awaiting confirmation")

	// ErrSessionActive is returned by Start when a session is already running.
	ErrSessionActive = errors.New("golive: session already started")

	// ErrNoPlatforms is returned when no enabled platform has an adapter.
	ErrNoPlatforms = errors.New("golive: no enabled platforms")

	// ErrNothingApplied is returned when every platform failed to apply settings.
	ErrNothingApplied = errors.New("golive: no platform accepted the settings")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("golive: invalid configuration")
)

// FieldError is one user-correctable problem with the submitted settings.
type FieldError struct {
	// Platform is empty for problems with the base settings.
	Platform PlatformID
	Field    string
	Message  string
}

func (e FieldError) String() string {
	if e.Platform == "" {
		return e.Field + ": " + e.Message
	}
	return string(e.Platform) + "." + e.Field + ": " + e.Message
}

// ValidationError reports settings the user must correct. It blocks
// activation before any platform is touched.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "invalid stream settings: " + strings.Join(parts, "; ")
}

// PlatformError reports a failed adapter call, scoped to one platform.
type PlatformError struct {
	Platform PlatformID
	Op       string
	Required bool
	Err      error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// TransmissionError reports a failure of the shared start-transmission step.
type TransmissionError struct {
	Err error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("start transmission: %v", e.Err)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

// CancelledError is returned when the session is torn down mid-flight.
// It is not reported to observers as the attempt's failure.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	if e.Err == nil {
		return "go-live cancelled"
	}
	return fmt.Sprintf("go-live cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// IsCancelled reports whether err is, or wraps, a CancelledError.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
