package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// Client talks to the session broker's voice endpoints. It implements
// Transcriber and Synthesizer.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string // e.g. "http://localhost:3002/api/voice"

	WhisperModel string
	Language     string // "" means auto-detect
	Temperature  float64

	TTSModel string
	Voice    string
	Speed    float64
}

// NewClient builds a Client with the production defaults: whisper-1 with
// auto language detection, tts-1-hd with the nova voice at normal speed.
func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient:   &http.Client{},
		BaseURL:      baseURL,
		WhisperModel: "whisper-1",
		Temperature:  0.2,
		TTSModel:     "tts-1-hd",
		Voice:        "nova",
		Speed:        1.0,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Transcribe submits one recorded payload for speech-to-text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (Transcription, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("audio", "recording.webm")
	if err != nil {
		return Transcription{}, err
	}
	if _, err := fw.Write(audio); err != nil {
		return Transcription{}, err
	}
	_ = w.WriteField("model", c.WhisperModel)
	if c.Language != "" {
		_ = w.WriteField("language", c.Language)
	}
	_ = w.WriteField("temperature", strconv.FormatFloat(c.Temperature, 'f', -1, 64))
	if err := w.Close(); err != nil {
		return Transcription{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcribe", &body)
	if err != nil {
		return Transcription{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Transcription{}, fmt.Errorf("transcribe request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Transcription{}, fmt.Errorf("transcribe: %s", remoteError(resp))
	}

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcription{}, fmt.Errorf("transcribe: decode response: %w", err)
	}
	return Transcription{Text: out.Text, Language: out.Language}, nil
}

type speakRequest struct {
	Text         string  `json:"text"`
	Model        string  `json:"model"`
	Voice        string  `json:"voice"`
	Speed        float64 `json:"speed"`
	Instructions string  `json:"instructions"`
}

// Speak submits text for synthesis and returns the raw audio bytes with
// their content type.
func (c *Client) Speak(ctx context.Context, text, instructions string) ([]byte, string, error) {
	buf, err := json.Marshal(speakRequest{
		Text:         text,
		Model:        c.TTSModel,
		Voice:        c.Voice,
		Speed:        c.Speed,
		Instructions: instructions,
	})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/speak", bytes.NewReader(buf))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("speak request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("speak: %s", remoteError(resp))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("speak: read audio: %w", err)
	}
	return audio, resp.Header.Get("Content-Type"), nil
}

// remoteError extracts the broker's {error} payload, falling back to the
// status code.
func remoteError(resp *http.Response) string {
	var er errorResponse
	b, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(b, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
