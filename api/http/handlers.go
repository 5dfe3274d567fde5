package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chadiek/eloquence/internal/agent"
	"github.com/chadiek/eloquence/internal/domain"
)

const (
	errGenerate = "Failed to generate response"
	errScore    = "Failed to score conversation"
)

type Handlers struct {
	Dialogue agent.Dialogue
	Scorer   agent.Scorer
	// Zero means no deadline beyond the request's own.
	GenerateTimeout time.Duration
	ScoreTimeout    time.Duration
}

func NewHandlers(dialogue agent.Dialogue, scorer agent.Scorer) Handlers {
	return Handlers{Dialogue: dialogue, Scorer: scorer}
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/chat", h.chat)
	e.POST("/score", h.score)
}

type chatRequest struct {
	History []domain.WireTurn `json:"history"`
	Context string            `json:"context"`
}

type chatResponse struct {
	Message string `json:"message"`
}

type scoreRequest struct {
	Transcript []domain.WireTurn `json:"transcript"`
	Coach      string            `json:"coach"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h Handlers) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if len(req.History) == 0 || strings.TrimSpace(req.History[len(req.History)-1].Message) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "history must end with a message"})
	}
	scenario := domain.Scenario(strings.TrimSpace(req.Context))
	if scenario == "" {
		scenario = domain.DefaultScenario
	}

	ctx, cancel := withTimeout(c.Request().Context(), h.GenerateTimeout)
	defer cancel()
	reply, err := h.Dialogue.GenerateReply(ctx, domain.TurnsFromWire(req.History), scenario)
	if err != nil {
		slog.Error("chat generation failed", "scenario", string(scenario), "turns", len(req.History), "err", err)
		return c.JSON(statusFor(err, domain.ErrGenerationFailed), errorResponse{Error: errGenerate})
	}
	return c.JSON(http.StatusOK, chatResponse{Message: reply})
}

func (h Handlers) score(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	coach := domain.ParseCoach(req.Coach)

	ctx, cancel := withTimeout(c.Request().Context(), h.ScoreTimeout)
	defer cancel()
	a, err := h.Scorer.ScoreTranscript(ctx, domain.TurnsFromWire(req.Transcript), coach)
	if err != nil {
		slog.Error("scoring failed", "coach", string(coach), "turns", len(req.Transcript), "err", err)
		return c.JSON(statusFor(err, domain.ErrScoringFailed), errorResponse{Error: errScore})
	}
	return c.JSON(http.StatusOK, a)
}

// statusFor maps a service error to an HTTP status. Known upstream failures
// are 502; anything else is 500.
func statusFor(err, upstream error) int {
	if errors.Is(err, upstream) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
