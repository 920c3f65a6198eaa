// Package log provides the logging abstraction used by golive components.
//
// The orchestrator, adapters and plugins log through the [Logger] interface
// so that embedding applications can route output to their own logging
// library. A zerolog adapter and a no-op logger are provided.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("state transition",
//	    log.String("from", "awaitingConfirmation"),
//	    log.String("to", "activating"),
//	)
//
// Tests and embedders that do not care about output use:
//
//	logger := log.NewNoopLogger()
package log
