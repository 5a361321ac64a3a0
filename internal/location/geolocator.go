package location

import (
	"context"
	"errors"
	"time"
)

// Position is a raw device reading before coverage validation.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// PositionOptions bound a single acquisition attempt.
type PositionOptions struct {
	Timeout      time.Duration
	HighAccuracy bool
}

// Geolocator acquires the device position. Implementations wrap whatever
// positioning primitive the host platform provides; errors must be one of
// the sentinel codes below (wrapped is fine) so the service can pick the
// right advisory message.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// Acquisition error codes, mirroring the platform geolocation error set.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// Choice is the outcome of the location permission prompt.
type Choice int

const (
	// ChoiceShareLocation means the user agreed to a live acquisition.
	ChoiceShareLocation Choice = iota
	// ChoiceUseDefault means the user picked the Nairobi demo location.
	ChoiceUseDefault
)

// Prompter presents the binary share-location/use-default decision. The
// service owns only the decision logic, not the rendering.
type Prompter interface {
	AskLocationChoice(ctx context.Context) (Choice, error)
}

// Notifier surfaces user-facing advisories. Kind is one of "info",
// "success", "warning", "error".
type Notifier interface {
	Notify(message, kind string)
}
