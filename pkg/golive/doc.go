// Package golive coordinates going live on several streaming platforms at
// once.
//
// A [Session] reads the current settings of every platform, waits for the
// user to confirm one set of stream settings, applies them to each enabled
// platform, starts (or joins) the shared video transmission and reports
// progress as a checklist. When a required step fails, every platform whose
// settings were already applied is stopped again, so a failed attempt never
// leaves a platform half live.
//
// # Basic Usage
//
//	s, err := golive.New([]golive.Platform{twitchAdapter, flexAdapter}, obsTransmitter)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := s.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Show s.Prefill(draft) to the user, then:
//	if err := s.Confirm(ctx, settings); err != nil {
//	    // Inspect the error, fix the settings, s.Retry() and confirm again,
//	    // or give up with s.Teardown(ctx).
//	}
//
// # Progress
//
// Subscribe an [Observer] to receive a [Snapshot] after every change. Each
// observer sees snapshots in increasing Version order. Lifecycle transitions
// are also delivered to [EventHandler]s registered with [WithEventHandler].
//
// # Errors
//
// Confirm returns a [*ValidationError] for settings the user must correct, a
// [*PlatformError] for a failed platform call and a [*TransmissionError] when
// the video transmission could not be started. Teardown while a step is
// running cancels it; the cancellation is not reported as the attempt's
// failure (see [IsCancelled]).
//
// # Plugins
//
// Optional behavior is added with [WithPlugin]:
//
//	import "github.com/bft-labs/golive/plugins/settingswatcher"
//
//	s, err := golive.New(platforms, tx,
//	    settingswatcher.WithSettingsWatcher(settingswatcher.Config{...}),
//	)
package golive
