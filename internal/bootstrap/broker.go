package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BrokerClient talks to the session broker's ChatKit endpoints.
type BrokerClient struct {
	HTTPClient *http.Client
	BaseURL    string // e.g. "http://localhost:3002"
}

func NewBrokerClient(baseURL string) *BrokerClient {
	return &BrokerClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    baseURL,
	}
}

// SessionParams identify the device and its location to the broker.
type SessionParams struct {
	DeviceID       string  `json:"deviceId"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
	LocationSource string  `json:"locationSource,omitempty"`
}

// BrokerSession is the broker's session grant.
type BrokerSession struct {
	ClientSecret string `json:"client_secret"`
	SessionID    string `json:"session_id"`
	CreatedAt    int64  `json:"created_at"`
}

// CreateSession requests a new ChatKit session from the broker.
func (c *BrokerClient) CreateSession(ctx context.Context, params SessionParams) (BrokerSession, error) {
	var out BrokerSession
	if err := c.post(ctx, "/api/chatkit/session", params, &out); err != nil {
		return BrokerSession{}, err
	}
	return out, nil
}

// RefreshSession exchanges the current client secret for a fresh one.
func (c *BrokerClient) RefreshSession(ctx context.Context, currentClientSecret string, params SessionParams) (string, error) {
	body := struct {
		SessionParams
		CurrentClientSecret string `json:"currentClientSecret"`
	}{SessionParams: params, CurrentClientSecret: currentClientSecret}

	var out struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := c.post(ctx, "/api/chatkit/refresh", body, &out); err != nil {
		return "", err
	}
	return out.ClientSecret, nil
}

func (c *BrokerClient) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("broker request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var er struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &er) == nil && er.Error != "" {
			return fmt.Errorf("broker: %s", er.Error)
		}
		return fmt.Errorf("broker: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
