package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	LogLevel    string

	// LLMProvider is "gemini" (default) or "cerebras".
	LLMProvider      string
	GeminiKey        string
	GeminiModel      string
	GeminiEndpoint   string
	CerebrasKey      string
	CerebrasModelID  string
	CerebrasEndpoint string

	// TTSProvider is empty for browser speech, "deepgram" or "elevenlabs".
	TTSProvider       string
	DeepgramKey       string
	DeepgramTTSModel  string
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	PromptsFile     string
	GenerateTimeout time.Duration
	ScoreTimeout    time.Duration
	AllowedOrigins  []string
}

// Load reads a .env file when present, then environment variables, and
// returns Config with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	generateTimeout, err := getEnvDuration("GENERATE_TIMEOUT", 20*time.Second)
	if err != nil {
		return Config{}, err
	}
	scoreTimeout, err := getEnvDuration("SCORE_TIMEOUT", 60*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddress:       getEnv("HTTP_ADDRESS", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GeminiKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEndpoint:    os.Getenv("GEMINI_ENDPOINT"),
		CerebrasKey:       os.Getenv("CEREBRAS_API_KEY"),
		CerebrasModelID:   getEnv("CEREBRAS_MODEL_ID", "llama-4-maverick-17b-128e-instruct"),
		CerebrasEndpoint:  os.Getenv("CEREBRAS_ENDPOINT"),
		TTSProvider:       strings.ToLower(os.Getenv("TTS_PROVIDER")),
		DeepgramKey:       os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramTTSModel:  getEnv("DEEPGRAM_TTS_MODEL", "aura-2-thalia-en"),
		ElevenLabsKey:     os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		PromptsFile:       os.Getenv("PROMPTS_FILE"),
		GenerateTimeout:   generateTimeout,
		ScoreTimeout:      scoreTimeout,
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.warn()
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("HTTP_ADDRESS cannot be empty")
	}
	switch c.LLMProvider {
	case "gemini", "cerebras":
	default:
		return fmt.Errorf("LLM_PROVIDER must be gemini or cerebras, got %q", c.LLMProvider)
	}
	switch c.TTSProvider {
	case "", "browser", "none", "deepgram", "elevenlabs":
	default:
		return fmt.Errorf("TTS_PROVIDER must be deepgram, elevenlabs or empty, got %q", c.TTSProvider)
	}
	if c.GenerateTimeout <= 0 || c.ScoreTimeout <= 0 {
		return fmt.Errorf("GENERATE_TIMEOUT and SCORE_TIMEOUT must be positive")
	}
	return nil
}

// LLMKey returns the API key of the selected provider.
func (c Config) LLMKey() string {
	if c.LLMProvider == "cerebras" {
		return c.CerebrasKey
	}
	return c.GeminiKey
}

// LLMModel returns the model of the selected provider.
func (c Config) LLMModel() string {
	if c.LLMProvider == "cerebras" {
		return c.CerebrasModelID
	}
	return c.GeminiModel
}

// LLMEndpoint returns the endpoint override of the selected provider.
func (c Config) LLMEndpoint() string {
	if c.LLMProvider == "cerebras" {
		return c.CerebrasEndpoint
	}
	return c.GeminiEndpoint
}

func (c Config) warn() {
	if c.LLMKey() == "" {
		slog.Warn("LLM API key not set - /chat, /score and sessions will fail", "provider", c.LLMProvider)
	}
	if c.TTSProvider == "elevenlabs" && c.ElevenLabsVoiceID == "" {
		slog.Warn("ELEVENLABS_VOICE_ID not set - set a concrete voice ID from your ElevenLabs dashboard")
	}
	slog.Info("config loaded", "http_address", c.HTTPAddress, "llm_provider", c.LLMProvider, "tts_provider", c.TTSProvider)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
