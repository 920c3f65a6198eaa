package golive_test

import (
	"context"
	"fmt"

	"github.com/bft-labs/golive/pkg/golive"
)

// ExampleNew demonstrates going live on one platform.
func ExampleNew() {
	platform := &stubPlatform{id: "flextv"}

	s, err := golive.New([]golive.Platform{platform}, &stubTransmitter{})
	if err != nil {
		fmt.Printf("failed to create session: %v\n", err)
		return
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	fmt.Println(s.State())

	settings := golive.StreamSettings{
		Title:    "Friday night",
		Category: "Talk",
		Overrides: map[golive.PlatformID]golive.PlatformOverride{
			"flextv": {Platform: "flextv", Enabled: true, Required: true},
		},
	}
	if err := s.Confirm(ctx, settings); err != nil {
		fmt.Printf("failed to go live: %v\n", err)
		return
	}
	fmt.Println(s.State())

	_ = s.Teardown(ctx)

	// Output:
	// awaitingConfirmation
	// live
}

// Example_withEventHandler demonstrates how to receive lifecycle events.
func Example_withEventHandler() {
	handler := golive.EventHandlerFunc(func(event golive.StateChangeEvent) {
		fmt.Printf("%s -> %s\n", event.Previous, event.Current)
	})

	s, err := golive.New([]golive.Platform{&stubPlatform{id: "flextv"}}, &stubTransmitter{},
		golive.WithEventHandler(handler))
	if err != nil {
		fmt.Printf("failed to create session: %v\n", err)
		return
	}

	ctx := context.Background()
	_ = s.Start(ctx)
	_ = s.Teardown(ctx)

	// Output:
	// idle -> prepopulating
	// prepopulating -> awaitingConfirmation
	// awaitingConfirmation -> idle
}
