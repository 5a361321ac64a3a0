package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSynthesize_Validation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewOpenAIClient("", "tts-1-hd", "nova", 1.0)
	if _, err := c.Synthesize(ctx, "hello", ""); err == nil {
		t.Fatalf("expected error with missing key")
	}

	c = NewOpenAIClient("sk-test", "tts-1-hd", "nova", 1.0)
	if _, err := c.Synthesize(ctx, "", ""); err == nil {
		t.Fatalf("expected error with empty text")
	}
}

func TestSynthesize(t *testing.T) {
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "", "", 0)
	c.Endpoint = srv.URL

	audio, err := c.Synthesize(context.Background(), "Alright, rain is coming.", "Warm, conversational delivery.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if got.Model != "tts-1-hd" || got.Voice != "nova" || got.Speed != 1.0 {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.Input != "Alright, rain is coming." {
		t.Errorf("input = %q", got.Input)
	}
	if got.Instructions != "Warm, conversational delivery." {
		t.Errorf("instructions = %q", got.Instructions)
	}
}

func TestSynthesize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "tts-1-hd", "nova", 1.0)
	c.Endpoint = srv.URL
	if _, err := c.Synthesize(context.Background(), "hi", ""); err == nil {
		t.Fatalf("expected error; got nil")
	}
}
