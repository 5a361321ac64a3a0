package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eagleisbatman/gap-chat-widget/internal/device"
)

type fakeRecording struct {
	mime     string
	ch       chan []byte
	stopOnce sync.Once
	released int32
}

func newFakeRecording(mime string) *fakeRecording {
	return &fakeRecording{mime: mime, ch: make(chan []byte, 16)}
}

func (r *fakeRecording) Chunks() <-chan []byte { return r.ch }
func (r *fakeRecording) MIMEType() string      { return r.mime }
func (r *fakeRecording) Stop()                 { r.stopOnce.Do(func() { close(r.ch) }) }
func (r *fakeRecording) Release()              { atomic.AddInt32(&r.released, 1) }

type fakeMic struct {
	supported map[string]bool
	err       error

	mu       sync.Mutex
	started  []*fakeRecording
	lastMIME string
}

func (m *fakeMic) Supports(mimeType string) bool { return m.supported[mimeType] }

func (m *fakeMic) Start(ctx context.Context, mimeType string) (Recording, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMIME = mimeType
	rec := newFakeRecording(mimeType)
	m.started = append(m.started, rec)
	return rec, nil
}

type fakeSTT struct {
	mu       sync.Mutex
	payloads [][]byte
	result   Transcription
	err      error
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, mimeType string) (Transcription, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, audio)
	f.mu.Unlock()
	if f.err != nil {
		return Transcription{}, f.err
	}
	return f.result, nil
}

func (f *fakeSTT) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeTTS struct {
	mu    sync.Mutex
	texts []string
	audio []byte
	err   error
}

func (f *fakeTTS) Speak(ctx context.Context, text, instructions string) ([]byte, string, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	return f.audio, "audio/mpeg", nil
}

type fakePlayback struct {
	done     chan struct{}
	stopOnce sync.Once
	stopped  int32
}

func (p *fakePlayback) Done() <-chan struct{} { return p.done }
func (p *fakePlayback) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.done)
	})
}

type fakePlayer struct {
	mu        sync.Mutex
	playbacks []*fakePlayback
}

func (p *fakePlayer) Play(data []byte, mimeType string) (Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pb := &fakePlayback{done: make(chan struct{})}
	p.playbacks = append(p.playbacks, pb)
	return pb, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message, kind string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func TestStartRecording_NoMicrophoneSupport(t *testing.T) {
	n := &recordingNotifier{}
	s := NewSession(nil, nil, &fakeSTT{}, &fakeTTS{}, n)
	if s.StartRecording(context.Background()) {
		t.Fatalf("expected false without microphone support")
	}
	if !n.contains("not supported") {
		t.Fatalf("expected unsupported advisory, got %v", n.messages)
	}
}

func TestStartRecording_DistinctFailureAdvisories(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"denied", device.ErrNotAllowed, "permission denied"},
		{"not found", device.ErrNotFound, "No microphone found"},
		{"other", errors.New("boom"), "Unable to access microphone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &recordingNotifier{}
			var errCount int32
			s := NewSession(&fakeMic{err: tc.err}, nil, &fakeSTT{}, &fakeTTS{}, n)
			s.OnVoiceError(func(error) { atomic.AddInt32(&errCount, 1) })
			if s.StartRecording(context.Background()) {
				t.Fatalf("expected false on %v", tc.err)
			}
			if !n.contains(tc.message) {
				t.Fatalf("expected %q advisory, got %v", tc.message, n.messages)
			}
			if atomic.LoadInt32(&errCount) != 1 {
				t.Fatalf("expected error callback to fire once")
			}
		})
	}
}

func TestStartRecording_MIMENegotiation(t *testing.T) {
	t.Run("first preference", func(t *testing.T) {
		mic := &fakeMic{supported: map[string]bool{"audio/webm;codecs=opus": true, "audio/mp4": true}}
		s := NewSession(mic, nil, &fakeSTT{}, &fakeTTS{}, nil)
		if !s.StartRecording(context.Background()) {
			t.Fatalf("start failed")
		}
		defer s.StopRecording()
		if mic.lastMIME != "audio/webm;codecs=opus" {
			t.Fatalf("expected opus container, got %q", mic.lastMIME)
		}
	})
	t.Run("fallback", func(t *testing.T) {
		mic := &fakeMic{supported: map[string]bool{"audio/mp4": true}}
		s := NewSession(mic, nil, &fakeSTT{}, &fakeTTS{}, nil)
		if !s.StartRecording(context.Background()) {
			t.Fatalf("start failed")
		}
		defer s.StopRecording()
		if mic.lastMIME != "audio/mp4" {
			t.Fatalf("expected mp4 fallback, got %q", mic.lastMIME)
		}
	})
	t.Run("platform choice", func(t *testing.T) {
		mic := &fakeMic{supported: map[string]bool{}}
		s := NewSession(mic, nil, &fakeSTT{}, &fakeTTS{}, nil)
		if !s.StartRecording(context.Background()) {
			t.Fatalf("start failed")
		}
		defer s.StopRecording()
		if mic.lastMIME != "" {
			t.Fatalf("expected platform choice, got %q", mic.lastMIME)
		}
	})
}

func TestRecordStopTranscribeFlow(t *testing.T) {
	mic := &fakeMic{supported: map[string]bool{"audio/webm;codecs=opus": true}}
	stt := &fakeSTT{result: Transcription{Text: "mvua inakuja kesho", Language: "sw"}}
	n := &recordingNotifier{}
	s := NewSession(mic, nil, stt, &fakeTTS{}, n)

	done := make(chan struct{})
	var gotText, gotLang string
	s.OnTranscription(func(text, language string) {
		gotText, gotLang = text, language
		close(done)
	})

	if !s.StartRecording(context.Background()) {
		t.Fatalf("start failed")
	}
	if !s.IsRecording() {
		t.Fatalf("expected recording state")
	}
	rec := mic.started[0]
	rec.ch <- []byte("chunk1")
	rec.ch <- []byte("chunk2")

	if !s.StopRecording() {
		t.Fatalf("expected stop to report an active recording")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("transcription callback never fired")
	}

	if gotText != "mvua inakuja kesho" || gotLang != "sw" {
		t.Fatalf("unexpected callback values %q %q", gotText, gotLang)
	}
	if got := string(stt.payloads[0]); got != "chunk1chunk2" {
		t.Fatalf("chunks must be joined in arrival order, got %q", got)
	}
	if atomic.LoadInt32(&rec.released) == 0 {
		t.Fatalf("hardware handle must be released after finalize")
	}
	if s.IsRecording() {
		t.Fatalf("expected idle state after stop")
	}
	if !n.contains("Understood: ") {
		t.Fatalf("expected success advisory, got %v", n.messages)
	}
}

func TestStartRecording_ExclusiveSingleRecording(t *testing.T) {
	mic := &fakeMic{supported: map[string]bool{"audio/mp4": true}}
	stt := &fakeSTT{}
	s := NewSession(mic, nil, stt, &fakeTTS{}, nil)

	if !s.StartRecording(context.Background()) {
		t.Fatalf("first start failed")
	}
	if s.StartRecording(context.Background()) {
		t.Fatalf("second start must be a no-op while recording")
	}
	if len(mic.started) != 1 {
		t.Fatalf("expected one recording, got %d", len(mic.started))
	}

	s.StopRecording()
	waitFor(t, func() bool { return stt.calls() == 1 })

	// exactly one finalized payload per record-stop cycle
	if s.StopRecording() {
		t.Fatalf("stop while idle must be a no-op")
	}
	time.Sleep(20 * time.Millisecond)
	if stt.calls() != 1 {
		t.Fatalf("expected exactly one transcription, got %d", stt.calls())
	}
}

func TestAutoStop_RaceWithExplicitStop(t *testing.T) {
	mic := &fakeMic{supported: map[string]bool{"audio/mp4": true}}
	stt := &fakeSTT{}
	n := &recordingNotifier{}
	s := NewSession(mic, nil, stt, &fakeTTS{}, n)
	s.maxDuration = 30 * time.Millisecond

	if !s.StartRecording(context.Background()) {
		t.Fatalf("start failed")
	}
	waitFor(t, func() bool { return !s.IsRecording() })
	waitFor(t, func() bool { return stt.calls() == 1 })
	if !n.contains("max duration reached") {
		t.Fatalf("expected auto-stop advisory, got %v", n.messages)
	}

	// the losing explicit stop is a safe no-op
	if s.StopRecording() {
		t.Fatalf("explicit stop after auto-stop must be a no-op")
	}
	time.Sleep(50 * time.Millisecond)
	if stt.calls() != 1 {
		t.Fatalf("auto-stop race produced %d payloads", stt.calls())
	}
}

func TestTranscribeFailure_SettlesThroughErrorCallback(t *testing.T) {
	mic := &fakeMic{supported: map[string]bool{"audio/mp4": true}}
	stt := &fakeSTT{err: errors.New("whisper unavailable")}
	n := &recordingNotifier{}
	s := NewSession(mic, nil, stt, &fakeTTS{}, n)

	errCh := make(chan error, 1)
	s.OnVoiceError(func(err error) { errCh <- err })
	s.OnTranscription(func(string, string) { t.Errorf("transcription callback must not fire on error") })

	s.StartRecording(context.Background())
	mic.started[0].ch <- []byte("audio")
	s.StopRecording()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected non-nil error")
		}
	case <-time.After(time.Second):
		t.Fatalf("error callback never fired")
	}
	if !n.contains("Failed to process your voice") {
		t.Fatalf("expected failure advisory, got %v", n.messages)
	}
}

func TestSpeak_StripsMarkdownAndPlays(t *testing.T) {
	tts := &fakeTTS{audio: []byte("mp3-bytes")}
	player := &fakePlayer{}
	s := NewSession(nil, player, &fakeSTT{}, tts, nil)

	audio := s.Speak(context.Background(), "**Rain** expected tomorrow.", SpeakOptions{
		Language:      "en",
		AutoPlay:      true,
		StripMarkdown: true,
	})
	if string(audio) != "mp3-bytes" {
		t.Fatalf("expected audio bytes back, got %q", audio)
	}
	if len(tts.texts) != 1 {
		t.Fatalf("expected one synthesis call")
	}
	if strings.Contains(tts.texts[0], "*") {
		t.Fatalf("markdown reached the synthesizer: %q", tts.texts[0])
	}
	if !strings.HasPrefix(tts.texts[0], "Okay, so ") && !strings.HasPrefix(tts.texts[0], "Alright, ") &&
		!strings.HasPrefix(tts.texts[0], "Well, ") && !strings.HasPrefix(tts.texts[0], "Hmm, ") {
		t.Fatalf("expected conversational opener, got %q", tts.texts[0])
	}
	if len(player.playbacks) != 1 {
		t.Fatalf("expected playback to start")
	}
	if !s.IsPlaying() {
		t.Fatalf("expected playing state")
	}
}

func TestSpeak_FailurePath(t *testing.T) {
	tts := &fakeTTS{err: errors.New("tts down")}
	n := &recordingNotifier{}
	s := NewSession(nil, &fakePlayer{}, &fakeSTT{}, tts, n)
	var fired int32
	s.OnVoiceError(func(error) { atomic.AddInt32(&fired, 1) })

	if audio := s.Speak(context.Background(), "hello", SpeakOptions{AutoPlay: true}); audio != nil {
		t.Fatalf("expected nil audio on failure")
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected error callback")
	}
	if !n.contains("Unable to generate voice response") {
		t.Fatalf("expected advisory, got %v", n.messages)
	}
}

func TestPlayback_Exclusive(t *testing.T) {
	tts := &fakeTTS{audio: []byte("audio")}
	player := &fakePlayer{}
	s := NewSession(nil, player, &fakeSTT{}, tts, nil)

	s.Speak(context.Background(), "first reply", SpeakOptions{AutoPlay: true})
	s.Speak(context.Background(), "second reply", SpeakOptions{AutoPlay: true})

	if len(player.playbacks) != 2 {
		t.Fatalf("expected two playback starts, got %d", len(player.playbacks))
	}
	if atomic.LoadInt32(&player.playbacks[0].stopped) != 1 {
		t.Fatalf("first playback must be stopped by the second")
	}
	if atomic.LoadInt32(&player.playbacks[1].stopped) != 0 {
		t.Fatalf("second playback must still be live")
	}

	s.StopAudio()
	if atomic.LoadInt32(&player.playbacks[1].stopped) != 1 {
		t.Fatalf("StopAudio must stop the live playback")
	}
	// idempotent when nothing is playing
	s.StopAudio()
	if s.IsPlaying() {
		t.Fatalf("expected idle playback state")
	}
}

// barrierPlayer holds every Play call until all expected callers have
// arrived, forcing overlapping playback starts.
type barrierPlayer struct {
	arrived sync.WaitGroup

	mu        sync.Mutex
	playbacks []*fakePlayback
}

func newBarrierPlayer(callers int) *barrierPlayer {
	p := &barrierPlayer{}
	p.arrived.Add(callers)
	return p
}

func (p *barrierPlayer) Play(data []byte, mimeType string) (Playback, error) {
	p.arrived.Done()
	p.arrived.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	pb := &fakePlayback{done: make(chan struct{})}
	p.playbacks = append(p.playbacks, pb)
	return pb, nil
}

func TestPlayback_ExclusiveUnderConcurrentSpeak(t *testing.T) {
	tts := &fakeTTS{audio: []byte("audio")}
	player := newBarrierPlayer(2)
	s := NewSession(nil, player, &fakeSTT{}, tts, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Speak(context.Background(), "overlapping reply", SpeakOptions{AutoPlay: true})
		}()
	}
	wg.Wait()

	if len(player.playbacks) != 2 {
		t.Fatalf("expected two playback starts, got %d", len(player.playbacks))
	}
	live := 0
	for _, pb := range player.playbacks {
		if atomic.LoadInt32(&pb.stopped) == 0 {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live playback, got %d", live)
	}
	if !s.IsPlaying() {
		t.Fatalf("expected the surviving playback to be registered")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition never satisfied")
}
