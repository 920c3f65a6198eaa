package domain

import (
	"strings"
	"time"
)

// StepStatus is the progress of a checklist step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// Terminal reports whether the status is done or failed.
func (s StepStatus) Terminal() bool {
	return s == StepDone || s == StepFailed
}

// Well-known step names of a go-live attempt.
const (
	StepMergeSettings     = "merge-settings"
	StepStartTransmission = "start-transmission"
	StepGoLive            = "go-live"

	validatePrefix = "validate:"
	applyPrefix    = "apply:"
)

// ValidateStep returns the name of the validation step for a platform.
func ValidateStep(id PlatformID) string { return validatePrefix + string(id) }

// ApplyStep returns the name of the apply-settings step for a platform.
func ApplyStep(id PlatformID) string { return applyPrefix + string(id) }

// ApplyStepPlatform returns the platform of an apply step name.
func ApplyStepPlatform(name string) (PlatformID, bool) {
	if !strings.HasPrefix(name, applyPrefix) {
		return "", false
	}
	return PlatformID(strings.TrimPrefix(name, applyPrefix)), true
}

// ChecklistStep is a point-in-time view of one checklist entry.
type ChecklistStep struct {
	Name   string
	Status StepStatus
	Err    error

	// DependsOn lists the steps that must be done before this one runs.
	DependsOn []string

	// Generation counts resets; statuses only move forward within one generation.
	Generation int

	StartedAt  time.Time
	FinishedAt time.Time
}
