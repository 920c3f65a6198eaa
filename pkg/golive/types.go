package golive

import (
	"github.com/bft-labs/golive/internal/domain"
	"github.com/bft-labs/golive/internal/ports"
	"github.com/bft-labs/golive/pkg/log"
)

// Adapter contracts.
type (
	// Platform is one streaming destination.
	Platform = ports.Platform

	// Transmitter starts or joins the shared video transmission.
	Transmitter = ports.Transmitter

	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field
)

// Settings and progress types.
type (
	PlatformID        = domain.PlatformID
	StreamSettings    = domain.StreamSettings
	PlatformOverride  = domain.PlatformOverride
	PlatformSettings  = domain.PlatformSettings
	PlatformDefaults  = domain.PlatformDefaults
	Visibility        = domain.Visibility
	Audience          = domain.Audience
	FieldSchema       = domain.FieldSchema
	FieldSpec         = domain.FieldSpec
	FieldKind         = domain.FieldKind
	Snapshot          = domain.Snapshot
	ChecklistStep     = domain.ChecklistStep
	StepStatus        = domain.StepStatus
	PrepopulateResult = domain.PrepopulateResult
	State             = domain.LifecycleState
)

// Field kinds.
const (
	KindString = domain.KindString
	KindInt    = domain.KindInt
	KindBool   = domain.KindBool
	KindEnum   = domain.KindEnum
)

// Lifecycle states.
const (
	StateIdle                 = domain.StateIdle
	StatePrepopulating        = domain.StatePrepopulating
	StateAwaitingConfirmation = domain.StateAwaitingConfirmation
	StateActivating           = domain.StateActivating
	StateLive                 = domain.StateLive
	StateError                = domain.StateError
)

// Step statuses.
const (
	StepPending = domain.StepPending
	StepRunning = domain.StepRunning
	StepDone    = domain.StepDone
	StepFailed  = domain.StepFailed
)

// Errors, matched with errors.Is and errors.As.
type (
	FieldError        = domain.FieldError
	ValidationError   = domain.ValidationError
	PlatformError     = domain.PlatformError
	TransmissionError = domain.TransmissionError
	CancelledError    = domain.CancelledError
)

var (
	ErrInvalidTransition       = domain.ErrInvalidTransition
	ErrNotAwaitingConfirmation = domain.ErrNotAwaitingConfirmation
	ErrSessionActive           = domain.ErrSessionActive
	ErrNoPlatforms             = domain.ErrNoPlatforms
	ErrNothingApplied          = domain.ErrNothingApplied
	ErrInvalidConfig           = domain.ErrInvalidConfig
)

// IsCancelled reports whether err is, or wraps, a CancelledError.
func IsCancelled(err error) bool { return domain.IsCancelled(err) }
