package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/chadiek/eloquence/internal/domain"
)

type fakeDialogue struct {
	reply      string
	err        error
	transcript []domain.Turn
	scenario   domain.Scenario
}

func (f *fakeDialogue) GenerateReply(ctx context.Context, transcript []domain.Turn, scenario domain.Scenario) (string, error) {
	f.transcript, f.scenario = transcript, scenario
	return f.reply, f.err
}

type fakeScorer struct {
	result domain.Assessment
	err    error
	coach  domain.Coach
	turns  []domain.Turn
}

func (f *fakeScorer) ScoreTranscript(ctx context.Context, transcript []domain.Turn, coach domain.Coach) (domain.Assessment, error) {
	f.turns, f.coach = transcript, coach
	return f.result, f.err
}

func newEcho(d *fakeDialogue, s *fakeScorer) *echo.Echo {
	e := echo.New()
	NewHandlers(d, s).Register(e)
	return e
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChat_Interview(t *testing.T) {
	d := &fakeDialogue{reply: "Walk me through your background."}
	e := newEcho(d, &fakeScorer{})
	rec := post(e, "/chat", `{"history":[{"role":"user","message":"Tell me about yourself"}],"context":"interview"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message != "Walk me through your background." {
		t.Fatalf("unexpected response %+v", resp)
	}
	if d.scenario != domain.ScenarioInterview || len(d.transcript) != 1 || d.transcript[0].Speaker != domain.SpeakerUser {
		t.Fatalf("unexpected call %s %+v", d.scenario, d.transcript)
	}
}

func TestChat_ModelRoleIsAgent(t *testing.T) {
	d := &fakeDialogue{reply: "ok"}
	e := newEcho(d, &fakeScorer{})
	rec := post(e, "/chat", `{"history":[{"role":"user","message":"a"},{"role":"model","message":"b"},{"role":"user","message":"c"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if d.transcript[1].Speaker != domain.SpeakerAgent || d.scenario != domain.DefaultScenario {
		t.Fatalf("unexpected mapping %+v %s", d.transcript, d.scenario)
	}
}

func TestChat_Errors(t *testing.T) {
	e := newEcho(&fakeDialogue{err: domain.ErrGenerationFailed}, &fakeScorer{})
	rec := post(e, "/chat", `{"history":[{"role":"user","message":"hi"}]}`)
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), errGenerate) {
		t.Fatalf("unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = post(e, "/chat", `{"history":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty history: %d", rec.Code)
	}
	rec = post(e, "/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}
}

func TestScore_UnknownCoachAndResult(t *testing.T) {
	s := &fakeScorer{result: domain.Assessment{
		Scores:      domain.Scores{Clarity: 82, Confidence: 74, Empathy: 61, Persuasion: 90},
		Feedback:    "Simplify.",
		Suggestions: []string{"Lead with the number."},
		Rewrite:     "We ship Friday.",
	}}
	e := newEcho(&fakeDialogue{}, s)
	rec := post(e, "/score", `{"transcript":[{"role":"user","message":"maybe Friday?"},{"role":"model","message":"When?"}],"coach":"yoda"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if s.coach != domain.CoachDefault || len(s.turns) != 2 {
		t.Fatalf("unexpected call %s %+v", s.coach, s.turns)
	}
	var got map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	scores, _ := got["scores"].(map[string]any)
	if scores["persuasion"] != float64(90) || got["rewrite"] != "We ship Friday." {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestScore_Failure(t *testing.T) {
	e := newEcho(&fakeDialogue{}, &fakeScorer{err: errors.New("boom")})
	rec := post(e, "/score", `{"transcript":[],"coach":"orator"}`)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), errScore) {
		t.Fatalf("unexpected %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	e := newEcho(&fakeDialogue{}, &fakeScorer{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected %d %q", rec.Code, rec.Body.String())
	}
}
