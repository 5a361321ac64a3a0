package chatkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const defaultEndpoint = "https://api.openai.com/v1/chatkit/sessions"

// Client creates ChatKit sessions bound to an agricultural-advisory
// workflow. Farm coordinates ride along as headers so the workflow can
// resolve weather and soil context for the caller's location.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	WorkflowID string
	Endpoint   string

	// Fallback coordinates when the caller sends none.
	DefaultLatitude  float64
	DefaultLongitude float64
}

func NewClient(apiKey, workflowID string, defaultLat, defaultLon float64) *Client {
	return &Client{
		HTTPClient:       &http.Client{Timeout: 15 * time.Second},
		APIKey:           apiKey,
		WorkflowID:       workflowID,
		Endpoint:         defaultEndpoint,
		DefaultLatitude:  defaultLat,
		DefaultLongitude: defaultLon,
	}
}

// SessionRequest carries the per-device parameters for a session. Zero
// coordinates fall back to the client's farm defaults; an empty DeviceID
// gets a generated one.
type SessionRequest struct {
	DeviceID       string
	Latitude       float64
	Longitude      float64
	LocationSource string
}

// Session is the broker-facing result of a session creation.
type Session struct {
	ClientSecret string `json:"client_secret"`
	SessionID    string `json:"session_id"`
	CreatedAt    int64  `json:"created_at"`
}

type sessionsRequest struct {
	Workflow struct {
		ID string `json:"id"`
	} `json:"workflow"`
	User string `json:"user"`
}

type sessionsResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	CreatedAt    int64  `json:"created_at"`
}

// CreateSession provisions a new ChatKit session for the device.
func (c *Client) CreateSession(ctx context.Context, sr SessionRequest) (Session, error) {
	if c.APIKey == "" {
		return Session{}, fmt.Errorf("openai api key missing")
	}
	if c.WorkflowID == "" {
		return Session{}, fmt.Errorf("workflow id missing")
	}

	deviceID := sr.DeviceID
	if deviceID == "" {
		deviceID = "device-" + uuid.NewString()
	}
	lat, lon := sr.Latitude, sr.Longitude
	if lat == 0 && lon == 0 {
		lat, lon = c.DefaultLatitude, c.DefaultLongitude
	}

	var body sessionsRequest
	body.Workflow.ID = c.WorkflowID
	body.User = deviceID
	reqBody, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "chatkit_beta=v1")
	req.Header.Set("X-Farm-Latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	req.Header.Set("X-Farm-Longitude", strconv.FormatFloat(lon, 'f', -1, 64))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Session{}, fmt.Errorf("chatkit error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var out sessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, err
	}
	return Session{
		ClientSecret: out.ClientSecret,
		SessionID:    out.ID,
		CreatedAt:    out.CreatedAt,
	}, nil
}

// RefreshSession renews an expiring session. ChatKit has no dedicated
// refresh call, so renewal provisions a fresh session for the same device.
func (c *Client) RefreshSession(ctx context.Context, currentClientSecret string, sr SessionRequest) (Session, error) {
	if currentClientSecret == "" {
		return Session{}, fmt.Errorf("current client secret missing")
	}
	return c.CreateSession(ctx, sr)
}
