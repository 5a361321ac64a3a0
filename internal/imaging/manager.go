package imaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/eagleisbatman/gap-chat-widget/internal/device"
)

// Camera presents a live preview and waits for the user to confirm or
// cancel a capture. The returned frame is a JPEG-encoded still.
// Implementations must release the underlying stream on every exit path.
type Camera interface {
	Capture(ctx context.Context) (frame []byte, ok bool, err error)
}

// Notifier surfaces user-facing advisories.
type Notifier interface {
	Notify(message, kind string)
}

// Manager runs the image pipeline and owns the single current-image slot.
// Construct one at application start and hand it to the capture and upload
// triggers.
type Manager struct {
	camera   Camera // nil when the platform has no camera support
	notifier Notifier

	mu           sync.Mutex
	current      *ProcessedImage
	onImageReady func(ProcessedImage)
}

// NewManager builds a Manager. camera and notifier may be nil.
func NewManager(camera Camera, notifier Notifier) *Manager {
	return &Manager{camera: camera, notifier: notifier}
}

// OnImageReady registers the completion callback. Single slot: the last
// registration wins.
func (m *Manager) OnImageReady(fn func(ProcessedImage)) {
	m.mu.Lock()
	m.onImageReady = fn
	m.mu.Unlock()
}

// ProcessImage validates, compresses and stores the file as the current
// image. Validation failures are returned as errors carrying the
// user-facing reason; they never reach compression.
func (m *Manager) ProcessImage(f File) (ProcessedImage, error) {
	log.Printf("imaging: processing %s (%.2fMB)", f.Name, float64(len(f.Data))/(1024*1024))

	if v := Validate(f); !v.Valid {
		return ProcessedImage{}, errors.New(v.Reason)
	}

	c, err := compress(f, TargetMaxMB)
	if err != nil {
		return ProcessedImage{}, err
	}

	img := ProcessedImage{
		Data:       c.data,
		MIME:       c.mime,
		Size:       len(c.data),
		Width:      c.width,
		Height:     c.height,
		Name:       f.Name,
		Compressed: len(c.data) < len(f.Data),
	}
	log.Printf("imaging: processed %s -> %.2fMB %dx%d (compressed=%v)",
		f.Name, float64(img.Size)/(1024*1024), img.Width, img.Height, img.Compressed)

	m.mu.Lock()
	m.current = &img
	cb := m.onImageReady
	m.mu.Unlock()
	if cb != nil {
		cb(img)
	}
	return img, nil
}

// HandleUpload runs an uploaded file through the pipeline, surfacing
// validation failures as advisories. A nil return with no image means the
// input was rejected.
func (m *Manager) HandleUpload(f File) (*ProcessedImage, error) {
	img, err := m.ProcessImage(f)
	if err != nil {
		m.notify(err.Error(), "error")
		return nil, err
	}
	return &img, nil
}

// CaptureFromCamera opens the camera, waits for the user decision and runs
// a confirmed frame through the same pipeline as an upload. Cancellation
// returns (nil, nil): no image, not an error.
func (m *Manager) CaptureFromCamera(ctx context.Context) (*ProcessedImage, error) {
	if m.camera == nil {
		m.notify("Camera is not supported on this device.", "error")
		return nil, nil
	}

	frame, ok, err := m.camera.Capture(ctx)
	if err != nil {
		log.Printf("imaging: camera error: %v", err)
		switch {
		case errors.Is(err, device.ErrNotAllowed):
			m.notify("Camera permission denied. Please allow camera access and try again.", "error")
		case errors.Is(err, device.ErrNotFound):
			m.notify("No camera found on this device.", "error")
		default:
			m.notify("Unable to access camera.", "error")
		}
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	f := File{
		Name: fmt.Sprintf("camera-capture-%d.jpg", time.Now().UnixMilli()),
		MIME: "image/jpeg",
		Data: frame,
	}
	return m.HandleUpload(f)
}

// CurrentImage returns the image waiting to be attached, if any.
func (m *Manager) CurrentImage() *ProcessedImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	img := *m.current
	return &img
}

// ClearImage empties the current-image slot.
func (m *Manager) ClearImage() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

func (m *Manager) notify(message, kind string) {
	if m.notifier != nil {
		m.notifier.Notify(message, kind)
	}
}
