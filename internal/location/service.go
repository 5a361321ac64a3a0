package location

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/eagleisbatman/gap-chat-widget/internal/kvstore"
)

// Storage keys in the local store.
const (
	keyCoordinates     = "farmerchat-coordinates"
	keyTimestamp       = "farmerchat-location-timestamp"
	keyPermissionAsked = "farmerchat-location-asked"
)

// CacheTTL is how long a resolved coordinate stays valid.
const CacheTTL = 24 * time.Hour

const defaultAcquireTimeout = 10 * time.Second

// Service owns the current coordinate. Construct one at application start
// and pass it to whichever component needs coordinates.
type Service struct {
	geo      Geolocator // nil when the platform has no positioning support
	store    kvstore.Store
	prompter Prompter
	notifier Notifier
	now      func() time.Time

	mu     sync.Mutex
	coords *Coordinate
}

// New builds a Service. geo may be nil on platforms without geolocation;
// prompter and notifier may be nil for headless use.
func New(geo Geolocator, store kvstore.Store, prompter Prompter, notifier Notifier) *Service {
	return &Service{
		geo:      geo,
		store:    store,
		prompter: prompter,
		notifier: notifier,
		now:      time.Now,
	}
}

// Supported reports whether live acquisition is possible at all.
func (s *Service) Supported() bool { return s.geo != nil }

// HasAskedPermission reports whether the permission prompt was ever shown.
func (s *Service) HasAskedPermission() bool {
	v, ok := s.store.Get(keyPermissionAsked)
	return ok && v == "true"
}

func (s *Service) markPermissionAsked() {
	if err := s.store.Set(keyPermissionAsked, "true"); err != nil {
		log.Printf("location: saving permission flag: %v", err)
	}
}

// InCoverageArea reports whether the coordinates fall inside the East
// Africa service area.
func (s *Service) InCoverageArea(lat, lon float64) bool {
	return CoverageBounds.Contains(lat, lon)
}

// CachedCoordinates returns the stored coordinate when it is still within
// the TTL. An expired entry is cleared and reported as a miss.
func (s *Service) CachedCoordinates() (Coordinate, bool) {
	raw, ok1 := s.store.Get(keyCoordinates)
	ts, ok2 := s.store.Get(keyTimestamp)
	if !ok1 || !ok2 {
		return Coordinate{}, false
	}
	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		log.Printf("location: bad cache timestamp %q", ts)
		s.ClearCache()
		return Coordinate{}, false
	}
	if s.now().Sub(time.UnixMilli(millis)) > CacheTTL {
		s.ClearCache()
		return Coordinate{}, false
	}
	var c Coordinate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Printf("location: bad cached coordinates: %v", err)
		s.ClearCache()
		return Coordinate{}, false
	}
	return c, true
}

func (s *Service) saveToCache(c Coordinate) {
	b, err := json.Marshal(c)
	if err != nil {
		log.Printf("location: encoding coordinates: %v", err)
		return
	}
	if err := s.store.Set(keyCoordinates, string(b)); err != nil {
		log.Printf("location: saving coordinates: %v", err)
		return
	}
	if err := s.store.Set(keyTimestamp, strconv.FormatInt(s.now().UnixMilli(), 10)); err != nil {
		log.Printf("location: saving cache timestamp: %v", err)
	}
}

// ClearCache drops the stored coordinate and its timestamp.
func (s *Service) ClearCache() {
	_ = s.store.Remove(keyCoordinates)
	_ = s.store.Remove(keyTimestamp)
}

// UseDefault adopts and caches the Nairobi default coordinate.
func (s *Service) UseDefault() Coordinate {
	log.Printf("location: using default coordinates (Nairobi)")
	s.mu.Lock()
	c := DefaultCoordinate
	s.coords = &c
	s.mu.Unlock()
	s.saveToCache(DefaultCoordinate)
	return DefaultCoordinate
}

// RequestOptions configure a live acquisition attempt.
type RequestOptions struct {
	Timeout time.Duration
	ShowUI  bool
}

// RequestLocation attempts a live acquisition. Missing capability, denied
// permission, acquisition failure and out-of-coverage readings all resolve
// to the default coordinate; the only way to tell is Source == "default".
func (s *Service) RequestLocation(ctx context.Context, opts RequestOptions) Coordinate {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultAcquireTimeout
	}

	if !s.Supported() {
		log.Printf("location: geolocation not supported")
		s.notify("Your browser doesn't support location services. Using demo location.", "warning", opts.ShowUI)
		return s.UseDefault()
	}

	if cached, ok := s.CachedCoordinates(); ok {
		log.Printf("location: using cached coordinates: %s", cached.Location)
		s.adopt(cached)
		return cached
	}

	s.markPermissionAsked()

	pos, err := s.geo.CurrentPosition(ctx, PositionOptions{Timeout: opts.Timeout})
	if err != nil {
		log.Printf("location: acquisition failed: %v", err)
		s.notify(failureMessage(err), "warning", opts.ShowUI)
		return s.UseDefault()
	}

	if !s.InCoverageArea(pos.Latitude, pos.Longitude) {
		log.Printf("location: coordinates outside coverage area: %v,%v", pos.Latitude, pos.Longitude)
		s.notify("Your location is outside our East Africa coverage area. Using Nairobi demo location for testing.", "warning", opts.ShowUI)
		return s.UseDefault()
	}

	name := RegionName(pos.Latitude, pos.Longitude)
	c := Coordinate{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Source:    "user",
		Location:  name,
		Accuracy:  pos.Accuracy,
	}
	s.saveToCache(c)
	s.adopt(c)
	s.notify("Using your location in "+name+" for accurate weather forecasts.", "success", opts.ShowUI)
	log.Printf("location: obtained user location in %s", name)
	return c
}

// failureMessage maps each acquisition error class to its own advisory.
// The programmatic outcome is identical for all of them.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission denied. Using Nairobi demo location for testing."
	case errors.Is(err, ErrPositionUnavailable):
		return "Location unavailable. Using Nairobi demo location."
	case errors.Is(err, ErrTimeout):
		return "Location request timed out. Using Nairobi demo location."
	default:
		return "Unable to get your location. Using Nairobi demo location."
	}
}

// InitOptions configure Initialize.
type InitOptions struct {
	AskPermission bool
	ShowUI        bool
}

// Initialize resolves the startup coordinate: cache first, then the
// permission prompt if it was never shown, then a silent acquisition.
func (s *Service) Initialize(ctx context.Context, opts InitOptions) Coordinate {
	if cached, ok := s.CachedCoordinates(); ok {
		log.Printf("location: using cached coordinates")
		s.adopt(cached)
		return cached
	}

	if opts.AskPermission && !s.HasAskedPermission() && s.prompter != nil {
		choice, err := s.prompter.AskLocationChoice(ctx)
		if err != nil || choice == ChoiceUseDefault {
			s.markPermissionAsked()
			c := s.UseDefault()
			s.notify("Using Nairobi demo location for testing.", "info", opts.ShowUI)
			return c
		}
		return s.RequestLocation(ctx, RequestOptions{ShowUI: true})
	}

	return s.RequestLocation(ctx, RequestOptions{ShowUI: opts.ShowUI})
}

// CurrentCoordinates is the synchronous accessor: in-memory value, else
// cache, else the default. It never triggers a live acquisition.
func (s *Service) CurrentCoordinates() Coordinate {
	s.mu.Lock()
	if s.coords != nil {
		c := *s.coords
		s.mu.Unlock()
		return c
	}
	s.mu.Unlock()

	if cached, ok := s.CachedCoordinates(); ok {
		s.adopt(cached)
		return cached
	}
	return s.UseDefault()
}

func (s *Service) adopt(c Coordinate) {
	s.mu.Lock()
	s.coords = &c
	s.mu.Unlock()
}

func (s *Service) notify(message, kind string, show bool) {
	if show && s.notifier != nil {
		s.notifier.Notify(message, kind)
	}
}
