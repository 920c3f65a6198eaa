// Package domain contains the core value types and errors of the go-live
// orchestration controller.
//
// This package is the innermost layer. It has no dependencies on adapters,
// logging or the lifecycle implementation and only describes what a go-live
// attempt is made of.
//
// # Types
//
//   - [StreamSettings]: the settings a user submits for one attempt
//   - [PlatformOverride]: per-platform override of those settings
//   - [PlatformSettings]: resolved settings handed to one platform adapter
//   - [ChecklistStep]: one named unit of orchestration progress
//   - [LifecycleState]: the session state (idle ... live / error)
//
// # Errors
//
// The error taxonomy ([ValidationError], [PlatformError], [TransmissionError],
// [CancelledError]) and sentinel errors are matched with errors.Is / errors.As.
package domain
