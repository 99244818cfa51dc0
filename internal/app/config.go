package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	DatabaseURL   string
	LogLevel      string
	SentryDSN     string

	// Audio object storage
	NATSURL     string
	AudioBucket string

	// TTS providers
	OpenAIAPIKey string
	HumeAPIKey   string
	TTSModelID   string

	// Quiet period before a burst of edits is persisted
	SaveWindow time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		SentryDSN:     getenv("SENTRY_DSN", ""),

		NATSURL:     getenv("NATS_URL", "nats://localhost:4222"),
		AudioBucket: getenv("AUDIO_BUCKET", "tts-audio"),

		OpenAIAPIKey: getenv("OPENAI_API_KEY", ""),
		HumeAPIKey:   getenv("HUME_API_KEY", ""),
		TTSModelID:   getenv("TTS_MODEL_ID", "gpt-4o-mini-tts"),

		SaveWindow: getenvMillis("SAVE_DEBOUNCE_MS", time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvMillis(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
