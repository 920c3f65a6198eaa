// Package ports defines the interfaces (ports) that connect the go-live
// orchestrator to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Platform]: one streaming destination (prepopulate, validate, apply, stop)
//   - [Transmitter]: the shared video transmission started once per attempt
//   - [StatusRepository]: persists the latest session snapshot
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them for Twitch, generic REST
// platforms, OBS and the file system.
package ports
