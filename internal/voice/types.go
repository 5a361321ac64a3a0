// Package voice handles voice input (record then transcribe) and voice
// output (synthesize then play). Recording and playback are each exclusive:
// at most one live instance, a new start tears the previous one down.
package voice

import "context"

// Recording is one in-progress microphone capture. Chunks delivers encoded
// audio in arrival order and closes once the recording finalizes after
// Stop. Stop and Release must be idempotent; Release frees the hardware
// handle.
type Recording interface {
	Chunks() <-chan []byte
	MIMEType() string
	Stop()
	Release()
}

// Microphone is the capture primitive. Start requests echo cancellation,
// noise suppression and auto gain; mimeType "" lets the platform choose
// the container. Errors wrap device.ErrNotAllowed / device.ErrNotFound.
type Microphone interface {
	Supports(mimeType string) bool
	Start(ctx context.Context, mimeType string) (Recording, error)
}

// Playback is one live audio output. Stop must be idempotent; Done closes
// when playback finishes or is stopped.
type Playback interface {
	Done() <-chan struct{}
	Stop()
}

// Player turns synthesized audio into audible output.
type Player interface {
	Play(data []byte, mimeType string) (Playback, error)
}

// Transcription is a finished speech-to-text result.
type Transcription struct {
	Text     string
	Language string
}

// Transcriber is the remote speech-to-text contract.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (Transcription, error)
}

// Synthesizer is the remote text-to-speech contract. It returns the audio
// bytes and their content type.
type Synthesizer interface {
	Speak(ctx context.Context, text, instructions string) ([]byte, string, error)
}

// Notifier surfaces user-facing advisories.
type Notifier interface {
	Notify(message, kind string)
}
