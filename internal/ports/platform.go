package ports

import (
	"context"

	"github.com/bft-labs/golive/internal/domain"
)

// Platform is the adapter contract for one streaming destination.
//
// Every method may perform network I/O. Implementations should honor ctx
// cancellation where the remote API allows it; the orchestrator waits for
// calls that do not before issuing compensation. Timeouts are the adapter's
// concern.
type Platform interface {
	// ID returns the platform identifier used in overrides and step names.
	ID() domain.PlatformID

	// Schema declares the platform-specific fields the platform accepts.
	Schema() domain.FieldSchema

	// Prepopulate fetches the settings of a live broadcast being resumed,
	// or the platform defaults.
	Prepopulate(ctx context.Context) (domain.PlatformDefaults, error)

	// Validate checks resolved settings. It returns a *domain.ValidationError
	// for user-correctable problems.
	Validate(ctx context.Context, settings domain.PlatformSettings) error

	// ApplySettings pushes the settings to the platform.
	ApplySettings(ctx context.Context, settings domain.PlatformSettings) error

	// Stop undoes ApplySettings. It is the compensation for an attempt
	// that did not go live.
	Stop(ctx context.Context) error
}

// Transmitter starts (or joins) the shared video transmission.
// The orchestrator calls it once per activation, after every required
// platform accepted its settings.
type Transmitter interface {
	StartOrJoin(ctx context.Context) error
}
