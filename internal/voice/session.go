package voice

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/eagleisbatman/gap-chat-widget/internal/device"
	"github.com/eagleisbatman/gap-chat-widget/internal/speech"
)

// MaxRecordingDuration is the unconditional auto-stop bound on a single
// recording.
const MaxRecordingDuration = 60 * time.Second

// Container preference for recordings; the platform chooses when none are
// supported.
var preferredMIMETypes = []string{"audio/webm;codecs=opus", "audio/mp4"}

// Session orchestrates microphone capture, transcription and spoken
// replies. Construct one at application start and pass it to the voice
// button and message handlers.
type Session struct {
	mic      Microphone // nil when the platform has no microphone support
	player   Player
	stt      Transcriber
	tts      Synthesizer
	notifier Notifier

	maxDuration time.Duration

	mu              sync.Mutex
	recording       Recording
	autoStop        *time.Timer
	playback        Playback
	onTranscription func(text, language string)
	onError         func(err error)
}

// NewSession builds a Session. mic, player and notifier may be nil.
func NewSession(mic Microphone, player Player, stt Transcriber, tts Synthesizer, notifier Notifier) *Session {
	return &Session{
		mic:         mic,
		player:      player,
		stt:         stt,
		tts:         tts,
		notifier:    notifier,
		maxDuration: MaxRecordingDuration,
	}
}

// OnTranscription registers the completion callback. Single slot: the last
// registration wins.
func (s *Session) OnTranscription(fn func(text, language string)) {
	s.mu.Lock()
	s.onTranscription = fn
	s.mu.Unlock()
}

// OnVoiceError registers the error callback. Single slot, last wins.
func (s *Session) OnVoiceError(fn func(err error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// IsRecording reports whether a capture is active.
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording != nil
}

// StartRecording opens the microphone and begins buffering audio. It
// returns false, with an advisory, on missing capability, denied
// permission or a missing device; it never panics into the caller. A call
// while already recording is a no-op returning false.
func (s *Session) StartRecording(ctx context.Context) bool {
	if s.mic == nil {
		s.notify("Microphone is not supported on this device.", "error")
		return false
	}

	s.mu.Lock()
	if s.recording != nil {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	mimeType := ""
	for _, candidate := range preferredMIMETypes {
		if s.mic.Supports(candidate) {
			mimeType = candidate
			break
		}
	}

	rec, err := s.mic.Start(ctx, mimeType)
	if err != nil {
		log.Printf("voice: starting recording: %v", err)
		switch {
		case errors.Is(err, device.ErrNotAllowed):
			s.notify("Microphone permission denied. Please allow microphone access and try again.", "error")
		case errors.Is(err, device.ErrNotFound):
			s.notify("No microphone found on this device.", "error")
		default:
			s.notify("Unable to access microphone.", "error")
		}
		s.fireError(err)
		return false
	}

	s.mu.Lock()
	if s.recording != nil {
		// lost a concurrent start; tear the extra capture down
		s.mu.Unlock()
		rec.Stop()
		rec.Release()
		return false
	}
	s.recording = rec
	// safety bound independent of the explicit stop; the loser of the race
	// finds recording already nil and does nothing
	s.autoStop = time.AfterFunc(s.maxDuration, func() {
		if s.StopRecording() {
			s.notify("Recording stopped (max duration reached)", "warning")
		}
	})
	s.mu.Unlock()

	go s.collect(ctx, rec)

	log.Printf("voice: recording started (%s)", rec.MIMEType())
	s.notify("Recording... Speak now", "info")
	return true
}

// StopRecording finalizes the active recording and reports whether one was
// active. Calling it while idle is a no-op.
func (s *Session) StopRecording() bool {
	s.mu.Lock()
	rec := s.recording
	s.recording = nil
	if s.autoStop != nil {
		s.autoStop.Stop()
		s.autoStop = nil
	}
	s.mu.Unlock()
	if rec == nil {
		return false
	}
	log.Printf("voice: stopping recording")
	rec.Stop()
	return true
}

// collect drains the recording's chunks, releases the hardware and hands
// the assembled payload to transcription. Runs once per recording.
func (s *Session) collect(ctx context.Context, rec Recording) {
	var chunks [][]byte
	for b := range rec.Chunks() {
		if len(b) > 0 {
			chunks = append(chunks, b)
		}
	}
	rec.Release()

	payload := bytes.Join(chunks, nil)
	log.Printf("voice: recording finalized, %.2fKB", float64(len(payload))/1024)
	s.transcribe(ctx, payload, rec.MIMEType())
}

// transcribe submits the payload and settles through exactly one of the
// registered callbacks.
func (s *Session) transcribe(ctx context.Context, payload []byte, mimeType string) {
	s.notify("Processing your voice...", "info")

	res, err := s.stt.Transcribe(ctx, payload, mimeType)
	if err != nil {
		log.Printf("voice: transcription failed: %v", err)
		s.notify("Failed to process your voice. Please try again.", "error")
		s.fireError(err)
		return
	}

	log.Printf("voice: transcription (%s): %s", res.Language, res.Text)
	s.notify("Understood: \""+preview(res.Text, 50)+"\"", "success")

	s.mu.Lock()
	cb := s.onTranscription
	s.mu.Unlock()
	if cb != nil {
		cb(res.Text, res.Language)
	}
}

func preview(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}

// SpeakOptions configure Speak.
type SpeakOptions struct {
	Language      string
	AutoPlay      bool
	StripMarkdown bool
}

// Speak synthesizes the text and, when AutoPlay is set, plays it. The
// audio bytes are returned regardless; nil means synthesis failed and the
// error callback has fired.
func (s *Session) Speak(ctx context.Context, text string, opts SpeakOptions) []byte {
	speechText := text
	if opts.StripMarkdown {
		speechText = speech.Normalize(text, speech.Options{
			AddOpener: true,
			Language:  opts.Language,
		})
	}
	instructions := speech.VoiceInstructions(opts.Language)

	audio, mimeType, err := s.tts.Speak(ctx, speechText, instructions)
	if err != nil {
		log.Printf("voice: synthesis failed: %v", err)
		s.notify("Unable to generate voice response.", "error")
		s.fireError(err)
		return nil
	}
	log.Printf("voice: synthesized %.2fKB", float64(len(audio))/1024)

	if opts.AutoPlay && s.player != nil {
		s.play(audio, mimeType)
	}
	return audio
}

// play starts new playback, stopping whatever was playing first. At most
// one live output at a time.
func (s *Session) play(audio []byte, mimeType string) {
	s.mu.Lock()
	prev := s.playback
	s.playback = nil
	s.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	pb, err := s.player.Play(audio, mimeType)
	if err != nil {
		log.Printf("voice: playback failed: %v", err)
		s.fireError(err)
		return
	}

	s.mu.Lock()
	if s.playback != nil {
		// lost a concurrent play; keep the installed output audible
		s.mu.Unlock()
		pb.Stop()
		return
	}
	s.playback = pb
	s.mu.Unlock()

	go func() {
		<-pb.Done()
		s.mu.Lock()
		if s.playback == pb {
			s.playback = nil
		}
		s.mu.Unlock()
	}()
}

// StopAudio halts current playback. No-op when nothing is playing.
func (s *Session) StopAudio() {
	s.mu.Lock()
	pb := s.playback
	s.playback = nil
	s.mu.Unlock()
	if pb != nil {
		pb.Stop()
	}
}

// IsPlaying reports whether synthesized audio is currently audible.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback != nil
}

// ToggleRecording starts a recording when idle and stops it when active.
func (s *Session) ToggleRecording(ctx context.Context) {
	if s.IsRecording() {
		s.StopRecording()
		return
	}
	s.StartRecording(ctx)
}

// Cleanup releases any active recording and playback.
func (s *Session) Cleanup() {
	s.StopRecording()
	s.StopAudio()
}

func (s *Session) notify(message, kind string) {
	if s.notifier != nil {
		s.notifier.Notify(message, kind)
	}
}

func (s *Session) fireError(err error) {
	s.mu.Lock()
	cb := s.onError
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}
