package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/eagleisbatman/gap-chat-widget/internal/i18n"
	"github.com/eagleisbatman/gap-chat-widget/internal/kvstore"
	"github.com/eagleisbatman/gap-chat-widget/internal/location"
)

const deviceIDKey = "farmerchat-device-id"

// CoordinateSource yields the coordinates already resolved for this
// device without triggering a new acquisition.
type CoordinateSource interface {
	CurrentCoordinates() location.Coordinate
}

// Bootstrapper assembles everything the chat widget needs to come up: a
// stable device identity, the device's coordinates and a ChatKit client
// secret from the session broker.
type Bootstrapper struct {
	store    kvstore.Store
	coords   CoordinateSource
	broker   *BrokerClient
	language string
}

func New(store kvstore.Store, coords CoordinateSource, broker *BrokerClient, language string) *Bootstrapper {
	if !i18n.Supported(language) {
		language = i18n.DefaultLanguage
	}
	return &Bootstrapper{store: store, coords: coords, broker: broker, language: language}
}

// DeviceID returns the persisted device identity, minting and storing one
// on first use. The same ID keeps conversation history continuous across
// restarts.
func (b *Bootstrapper) DeviceID() string {
	if id, ok := b.store.Get(deviceIDKey); ok && id != "" {
		return id
	}
	id := "device-" + uuid.NewString()
	b.store.Set(deviceIDKey, id)
	log.Printf("bootstrap: minted device id %s", id)
	return id
}

// WidgetConfig is everything the embedded widget needs to render and
// connect.
type WidgetConfig struct {
	ClientSecret   string
	SessionID      string
	DeviceID       string
	Language       string
	Coordinates    location.Coordinate
	Greeting       string
	Placeholder    string
	StarterPrompts []i18n.StarterPrompt
}

// Initialize resolves device identity and location, then exchanges them
// for a session. Coordinates are read synchronously: whatever the
// location service has already settled on rides along, so session
// creation never waits on a position fix.
func (b *Bootstrapper) Initialize(ctx context.Context) (WidgetConfig, error) {
	deviceID := b.DeviceID()
	coords := b.coords.CurrentCoordinates()

	sess, err := b.broker.CreateSession(ctx, SessionParams{
		DeviceID:       deviceID,
		Latitude:       coords.Latitude,
		Longitude:      coords.Longitude,
		LocationSource: coords.Source,
	})
	if err != nil {
		return WidgetConfig{}, fmt.Errorf("bootstrap: creating session: %w", err)
	}

	catalog := i18n.Lookup(b.language)
	return WidgetConfig{
		ClientSecret:   sess.ClientSecret,
		SessionID:      sess.SessionID,
		DeviceID:       deviceID,
		Language:       b.language,
		Coordinates:    coords,
		Greeting:       catalog.Greeting,
		Placeholder:    catalog.Placeholder,
		StarterPrompts: catalog.StarterPrompts,
	}, nil
}

// SwitchLanguage swaps the widget strings without tearing down the
// session.
func (b *Bootstrapper) SwitchLanguage(language string) (WidgetConfig, bool) {
	if !i18n.Supported(language) {
		return WidgetConfig{}, false
	}
	b.language = language
	catalog := i18n.Lookup(language)
	log.Printf("bootstrap: language switched to %s", language)
	return WidgetConfig{
		Language:       language,
		Greeting:       catalog.Greeting,
		Placeholder:    catalog.Placeholder,
		StarterPrompts: catalog.StarterPrompts,
	}, true
}

// Refresh exchanges the current client secret for a fresh one.
func (b *Bootstrapper) Refresh(ctx context.Context, currentClientSecret string) (string, error) {
	coords := b.coords.CurrentCoordinates()
	secret, err := b.broker.RefreshSession(ctx, currentClientSecret, SessionParams{
		DeviceID:  b.DeviceID(),
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	})
	if err != nil {
		return "", fmt.Errorf("bootstrap: refreshing session: %w", err)
	}
	return secret, nil
}
