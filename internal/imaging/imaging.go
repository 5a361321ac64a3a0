// Package imaging prepares plant photos for diagnosis: format and size
// validation, then lossy recompression toward a byte budget with dimension
// capping. Camera captures and file uploads converge on one pipeline.
package imaging

import (
	"fmt"
	"strings"
)

const (
	// TargetMaxMB is the soft compression target, sized for the diagnosis
	// backend with some overhead. Best effort: the quality floor may leave
	// a larger result.
	TargetMaxMB = 4.5
	// HardLimitMB rejects inputs outright before any compression attempt.
	HardLimitMB = 20
	// MaxDimension caps the longer edge when downscaling.
	MaxDimension = 1920

	qualityStart = 90
	qualityStep  = 10
	qualityFloor = 30
)

// SupportedFormats are the accepted upload MIME types.
var SupportedFormats = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// File is an incoming capture or upload before processing.
type File struct {
	Name string
	MIME string
	Data []byte
}

// ProcessedImage is the single current image held for the next message.
type ProcessedImage struct {
	Data       []byte
	MIME       string
	Size       int
	Width      int
	Height     int
	Name       string
	Compressed bool
}

// Validity is the result of a pure validation check.
type Validity struct {
	Valid  bool
	Reason string
}

// Validate checks format and raw size. It never mutates the file and never
// fails for reasons other than the ones it reports.
func Validate(f File) Validity {
	if len(f.Data) == 0 {
		return Validity{Reason: "No file selected"}
	}
	mime := strings.ToLower(f.MIME)
	supported := false
	for _, m := range SupportedFormats {
		if m == mime {
			supported = true
			break
		}
	}
	if !supported {
		return Validity{Reason: "Unsupported format. Please use JPEG, PNG, or WebP images."}
	}
	sizeMB := float64(len(f.Data)) / (1024 * 1024)
	if sizeMB > HardLimitMB {
		return Validity{Reason: fmt.Sprintf("Image is too large (%.1fMB). Please use an image smaller than %dMB.", sizeMB, HardLimitMB)}
	}
	return Validity{Valid: true}
}
