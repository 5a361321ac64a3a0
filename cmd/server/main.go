package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eagleisbatman/gap-chat-widget/internal/chatkit"
	"github.com/eagleisbatman/gap-chat-widget/internal/config"
	"github.com/eagleisbatman/gap-chat-widget/internal/httpserver"
	"github.com/eagleisbatman/gap-chat-widget/internal/stt"
	"github.com/eagleisbatman/gap-chat-widget/internal/tts"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	broker := chatkit.NewClient(cfg.OpenAIKey, cfg.WorkflowID, cfg.FarmLatitude, cfg.FarmLongitude)
	transcriber := stt.NewEngine(cfg.OpenAIKey, cfg.WhisperModel)
	synthesizer := tts.NewOpenAIClient(cfg.OpenAIKey, cfg.TTSModel, cfg.TTSVoice, cfg.TTSSpeed)

	srv := httpserver.New(cfg, broker, transcriber, synthesizer)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("session broker listening on %s", cfg.HTTPAddress)
		serverErrors <- srv.Start(cfg.HTTPAddress)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
