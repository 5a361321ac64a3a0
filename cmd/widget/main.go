package main

import (
	"context"
	"log"
	"time"

	"github.com/eagleisbatman/gap-chat-widget/internal/bootstrap"
	"github.com/eagleisbatman/gap-chat-widget/internal/config"
	"github.com/eagleisbatman/gap-chat-widget/internal/kvstore"
	"github.com/eagleisbatman/gap-chat-widget/internal/location"
)

// Headless widget bootstrap: resolves device identity and location from
// the local store, exchanges them for a ChatKit session at the broker and
// prints the resulting widget configuration.
func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	store, err := kvstore.Open(cfg.DataDir)
	if err != nil {
		log.Printf("opening store in %s: %v; continuing without persistence", cfg.DataDir, err)
		store = kvstore.NewMemory()
	}

	// No geolocator in a headless run: the service settles on the cached
	// coordinate or the Nairobi default.
	locations := location.New(nil, store, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coords := locations.Initialize(ctx, location.InitOptions{})
	log.Printf("widget: location %s (%s)", coords.Location, coords.Source)

	b := bootstrap.New(store, locations, bootstrap.NewBrokerClient(cfg.BrokerURL), cfg.Language)
	widget, err := b.Initialize(ctx)
	if err != nil {
		log.Fatalf("widget bootstrap failed: %v", err)
	}

	log.Printf("widget: session %s ready for device %s", widget.SessionID, widget.DeviceID)
	log.Printf("widget: greeting: %s", widget.Greeting)
	for _, p := range widget.StarterPrompts {
		log.Printf("widget: starter prompt: %s", p.Label)
	}
}
