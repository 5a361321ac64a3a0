package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	OpenAIKey  string
	WorkflowID string

	// Default farm coordinates used when a client does not supply its own.
	FarmLatitude  float64
	FarmLongitude float64

	// Voice service model identifiers.
	WhisperModel string
	TTSModel     string
	TTSVoice     string
	TTSSpeed     float64

	// Directory for the local flat key-value store.
	DataDir string

	// Widget-side settings: broker base URL and interface language.
	BrokerURL string
	Language  string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":3002"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - sessions, transcription and speech will not work")
	}

	workflowID := os.Getenv("WORKFLOW_ID")
	if workflowID == "" {
		log.Println("Warning: WORKFLOW_ID not set - session creation will not work")
	}

	lat := envFloat("FARM_LATITUDE", -1.2864)
	lon := envFloat("FARM_LONGITUDE", 36.8172)

	whisperModel := os.Getenv("WHISPER_MODEL")
	if whisperModel == "" {
		whisperModel = "whisper-1"
	}
	ttsModel := os.Getenv("TTS_MODEL")
	if ttsModel == "" {
		ttsModel = "tts-1-hd"
	}
	ttsVoice := os.Getenv("TTS_VOICE")
	if ttsVoice == "" {
		ttsVoice = "nova"
	}
	ttsSpeed := envFloat("TTS_SPEED", 1.0)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}

	brokerURL := os.Getenv("BROKER_URL")
	if brokerURL == "" {
		brokerURL = "http://localhost:3002"
	}
	language := os.Getenv("WIDGET_LANGUAGE")
	if language == "" {
		language = "en"
	}

	log.Printf("config: HTTP_ADDRESS=%s", addr)
	return Config{
		HTTPAddress:   addr,
		OpenAIKey:     openAIKey,
		WorkflowID:    workflowID,
		FarmLatitude:  lat,
		FarmLongitude: lon,
		WhisperModel:  whisperModel,
		TTSModel:      ttsModel,
		TTSVoice:      ttsVoice,
		TTSSpeed:      ttsSpeed,
		DataDir:       dataDir,
		BrokerURL:     brokerURL,
		Language:      language,
	}
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using default", key, v)
		return def
	}
	return f
}
