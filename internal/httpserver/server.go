package httpserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eagleisbatman/gap-chat-widget/internal/chatkit"
	"github.com/eagleisbatman/gap-chat-widget/internal/config"
	"github.com/eagleisbatman/gap-chat-widget/internal/stt"
)

// SessionBroker provisions ChatKit sessions upstream.
type SessionBroker interface {
	CreateSession(ctx context.Context, sr chatkit.SessionRequest) (chatkit.Session, error)
	RefreshSession(ctx context.Context, currentClientSecret string, sr chatkit.SessionRequest) (chatkit.Session, error)
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (stt.Result, error)
}

// Synthesizer converts advisory text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, instructions string) ([]byte, error)
}

// Server is the widget's session broker: it exchanges device identity and
// coordinates for ChatKit client secrets and fronts the voice pipeline so
// the OpenAI key never reaches the browser.
type Server struct {
	Router http.Handler

	echo   *echo.Echo
	cfg    config.Config
	broker SessionBroker
	stt    Transcriber
	tts    Synthesizer
}

// New constructs the HTTP server with routes.
func New(cfg config.Config, broker SessionBroker, transcriber Transcriber, synthesizer Synthesizer) *Server {
	e := newRouter()
	s := &Server{
		Router: e,
		echo:   e,
		cfg:    cfg,
		broker: broker,
		stt:    transcriber,
		tts:    synthesizer,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/health", s.handleHealth)
	e.POST("/api/chatkit/session", s.handleCreateSession)
	e.POST("/api/chatkit/refresh", s.handleRefreshSession)
	e.POST("/api/voice/transcribe", s.handleTranscribe)
	e.POST("/api/voice/speak", s.handleSpeak)

	return s
}

// Start runs the listener until Shutdown.
func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    "chatkit-session-server",
		"workflowId": s.cfg.WorkflowID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

type sessionPayload struct {
	DeviceID       string  `json:"deviceId"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LocationSource string  `json:"locationSource"`
}

func (p sessionPayload) request() chatkit.SessionRequest {
	return chatkit.SessionRequest{
		DeviceID:       p.DeviceID,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		LocationSource: p.LocationSource,
	}
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var p sessionPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	log.Printf("chatkit: creating session (device=%s source=%s)", p.DeviceID, p.LocationSource)
	sess, err := s.broker.CreateSession(c.Request().Context(), p.request())
	if err != nil {
		log.Printf("chatkit: creating session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Failed to create ChatKit session",
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"client_secret": sess.ClientSecret,
		"session_id":    sess.SessionID,
		"created_at":    sess.CreatedAt,
	})
}

func (s *Server) handleRefreshSession(c echo.Context) error {
	var p struct {
		sessionPayload
		CurrentClientSecret string `json:"currentClientSecret"`
	}
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if p.CurrentClientSecret == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "currentClientSecret is required"})
	}

	log.Printf("chatkit: refreshing session (device=%s)", p.DeviceID)
	sess, err := s.broker.RefreshSession(c.Request().Context(), p.CurrentClientSecret, p.request())
	if err != nil {
		log.Printf("chatkit: refreshing session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to refresh session"})
	}

	return c.JSON(http.StatusOK, map[string]string{"client_secret": sess.ClientSecret})
}

func (s *Server) handleTranscribe(c echo.Context) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "audio file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "audio file is unreadable"})
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "audio file is unreadable"})
	}

	language := c.FormValue("language")
	res, err := s.stt.Transcribe(c.Request().Context(), audio, fh.Filename, language)
	if err != nil {
		log.Printf("voice: transcribing upload: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to transcribe audio"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"text":     res.Text,
		"language": res.Language,
		"duration": res.Duration,
	})
}

func (s *Server) handleSpeak(c echo.Context) error {
	var p struct {
		Text         string `json:"text"`
		Instructions string `json:"instructions"`
	}
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if p.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	audio, err := s.tts.Synthesize(c.Request().Context(), p.Text, p.Instructions)
	if err != nil {
		log.Printf("voice: synthesizing reply: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to synthesize speech"})
	}

	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}
