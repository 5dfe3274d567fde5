package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	apihttp "github.com/chadiek/eloquence/api/http"
	"github.com/chadiek/eloquence/internal/agent"
	"github.com/chadiek/eloquence/internal/config"
	"github.com/chadiek/eloquence/internal/llm"
	"github.com/chadiek/eloquence/internal/middleware"
	"github.com/chadiek/eloquence/internal/prompts"
	"github.com/chadiek/eloquence/internal/tts"
	"github.com/chadiek/eloquence/internal/voice"
)

// Server bundles HTTP router and dependencies.
type Server struct {
	Echo   *echo.Echo
	Router http.Handler
}

// Deps are the services behind the routes.
type Deps struct {
	Dialogue agent.Dialogue
	Scorer   agent.Scorer
	// Synth is nil when the browser synthesizes speech.
	Synth tts.Synthesizer
}

// New builds the language-model, prompt and speech services from cfg and
// constructs the HTTP server with routes.
func New(cfg config.Config) (*Server, error) {
	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	provider, err := llm.New(cfg.LLMProvider, cfg.LLMKey(), cfg.LLMModel(), cfg.LLMEndpoint())
	if err != nil {
		return nil, err
	}
	synth, err := tts.New(tts.Options{
		Provider:          cfg.TTSProvider,
		DeepgramAPIKey:    cfg.DeepgramKey,
		DeepgramModel:     cfg.DeepgramTTSModel,
		ElevenLabsAPIKey:  cfg.ElevenLabsKey,
		ElevenLabsVoiceID: cfg.ElevenLabsVoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	return NewWithDeps(cfg, Deps{
		Dialogue: llm.NewDialogueClient(provider, catalog),
		Scorer:   llm.NewScoringClient(provider, catalog),
		Synth:    synth,
	}), nil
}

// NewWithDeps constructs the HTTP server around already built services.
func NewWithDeps(cfg config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(slog.Default()))
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	h := apihttp.NewHandlers(deps.Dialogue, deps.Scorer)
	h.GenerateTimeout = cfg.GenerateTimeout
	h.ScoreTimeout = cfg.ScoreTimeout
	h.Register(e)

	vh := voice.NewHandler(deps.Dialogue, deps.Scorer, deps.Synth, cfg.AllowedOrigins)
	vh.GenerateTimeout = cfg.GenerateTimeout
	vh.ScoreTimeout = cfg.ScoreTimeout
	e.GET("/session", echo.WrapHandler(vh))

	return &Server{Echo: e, Router: e}
}
