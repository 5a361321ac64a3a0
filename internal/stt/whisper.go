package stt

import (
	"bytes"
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
)

// Engine transcribes recorded farmer audio through Whisper. Language is
// auto-detected unless pinned per request, which keeps Swahili and English
// voice notes working from the same widget.
type Engine struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewEngine(apiKey, model string) *Engine {
	return NewEngineWithClient(openai.NewClient(apiKey), model)
}

// NewEngineWithClient accepts a preconfigured client, which tests use to
// point at a local server.
func NewEngineWithClient(client *openai.Client, model string) *Engine {
	if model == "" {
		model = openai.Whisper1
	}
	return &Engine{client: client, model: model, temperature: 0.2}
}

// Result is a transcription with the language Whisper detected.
type Result struct {
	Text     string
	Language string
	Duration float64
}

// Transcribe submits one finalized audio payload. filename carries the
// container hint (e.g. "recording.webm"); language pins detection when
// non-empty.
func (e *Engine) Transcribe(ctx context.Context, audio []byte, filename, language string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, fmt.Errorf("no audio data provided")
	}
	if filename == "" {
		filename = "recording.webm"
	}

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       e.model,
		Reader:      bytes.NewReader(audio),
		FilePath:    filename,
		Language:    language,
		Temperature: e.temperature,
		Format:      openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, fmt.Errorf("whisper transcription: %w", err)
	}

	log.Printf("stt: transcribed %.1fs of audio (language=%s)", resp.Duration, resp.Language)
	return Result{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}
