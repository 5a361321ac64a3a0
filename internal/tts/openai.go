package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/audio/speech"

// OpenAIClient synthesizes spoken replies through the audio/speech
// endpoint. The raw HTTP form is used because the synthesis call carries
// per-request voice instructions alongside the text.
type OpenAIClient struct {
	HTTPClient *http.Client
	APIKey     string
	Endpoint   string

	Model string
	Voice string
	Speed float64
}

func NewOpenAIClient(apiKey, model, voice string, speed float64) *OpenAIClient {
	if model == "" {
		model = "tts-1-hd"
	}
	if voice == "" {
		voice = "nova"
	}
	if speed == 0 {
		speed = 1.0
	}
	return &OpenAIClient{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		APIKey:     apiKey,
		Endpoint:   defaultEndpoint,
		Model:      model,
		Voice:      voice,
		Speed:      speed,
	}
}

type speechRequest struct {
	Model        string  `json:"model"`
	Input        string  `json:"input"`
	Voice        string  `json:"voice"`
	Speed        float64 `json:"speed"`
	Instructions string  `json:"instructions,omitempty"`
}

// Synthesize returns MP3 audio for the text. instructions steer delivery
// (tone, pacing, persona) and may be empty.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, instructions string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("openai api key missing")
	}
	if text == "" {
		return nil, fmt.Errorf("no text provided")
	}

	buf, _ := json.Marshal(speechRequest{
		Model:        c.Model,
		Input:        text,
		Voice:        c.Voice,
		Speed:        c.Speed,
		Instructions: instructions,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai speech: status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai speech: reading audio: %w", err)
	}
	log.Printf("tts: synthesized %.2fKB of audio (voice=%s)", float64(len(audio))/1024, c.Voice)
	return audio, nil
}
