package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("CEREBRAS_MODEL_ID", "")
	t.Setenv("GENERATE_TIMEOUT", "")
	t.Setenv("SCORE_TIMEOUT", "")
	t.Setenv("TTS_PROVIDER", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("expected default http address, got %q", cfg.HTTPAddress)
	}
	if cfg.LLMProvider != "gemini" || cfg.LLMModel() != "gemini-1.5-flash" {
		t.Fatalf("unexpected llm defaults %q %q", cfg.LLMProvider, cfg.LLMModel())
	}
	if cfg.CerebrasModelID == "" {
		t.Fatalf("expected default cerebras model id")
	}
	if cfg.GenerateTimeout != 20*time.Second || cfg.ScoreTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts %v %v", cfg.GenerateTimeout, cfg.ScoreTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "127.0.0.1:9000")
	t.Setenv("LLM_PROVIDER", "Cerebras")
	t.Setenv("CEREBRAS_API_KEY", "ck")
	t.Setenv("CEREBRAS_ENDPOINT", "http://localhost:1234/v1/chat/completions")
	t.Setenv("GENERATE_TIMEOUT", "5s")
	t.Setenv("TTS_PROVIDER", "deepgram")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLMKey() != "ck" || cfg.LLMEndpoint() != "http://localhost:1234/v1/chat/completions" {
		t.Fatalf("cerebras settings not selected: %+v", cfg)
	}
	if cfg.GenerateTimeout != 5*time.Second {
		t.Fatalf("unexpected generate timeout %v", cfg.GenerateTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"provider": {"LLM_PROVIDER": "palm"},
		"tts":      {"TTS_PROVIDER": "polly"},
		"duration": {"SCORE_TIMEOUT": "soon"},
		"negative": {"GENERATE_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", "")
			t.Setenv("TTS_PROVIDER", "")
			t.Setenv("SCORE_TIMEOUT", "")
			t.Setenv("GENERATE_TIMEOUT", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
