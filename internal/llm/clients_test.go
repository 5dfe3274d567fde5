package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/chadiek/eloquence/internal/domain"
	"github.com/chadiek/eloquence/internal/prompts"
)

type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []CompletionRequest
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) last() CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func TestDialogue_InterviewExample(t *testing.T) {
	p := &fakeProvider{reply: "Let's start. Walk me through your background."}
	c := NewDialogueClient(p, prompts.Default())

	transcript := []domain.Turn{{Speaker: domain.SpeakerUser, Text: "Tell me about yourself"}}
	reply, err := c.GenerateReply(context.Background(), transcript, domain.ScenarioInterview)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "Let's start. Walk me through your background." {
		t.Fatalf("unexpected reply %q", reply)
	}
	req := p.last()
	if !strings.Contains(req.SystemPrompt, "interviewer") {
		t.Fatalf("system prompt not scenario specific: %q", req.SystemPrompt)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser || req.Messages[0].Content != "Tell me about yourself" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if req.JSON {
		t.Fatalf("dialogue must not request json")
	}
}

func TestDialogue_HistoryThenNewInput(t *testing.T) {
	p := &fakeProvider{reply: "Counter offer: 10%."}
	c := NewDialogueClient(p, nil)
	transcript := []domain.Turn{
		{Speaker: domain.SpeakerUser, Text: "We want 20% off."},
		{Speaker: domain.SpeakerAgent, Text: "That's steep."},
		{Speaker: domain.SpeakerUser, Text: "It's a three year deal."},
	}
	if _, err := c.GenerateReply(context.Background(), transcript, domain.ScenarioNegotiation); err != nil {
		t.Fatalf("generate: %v", err)
	}
	msgs := p.last().Messages
	if len(msgs) != 3 || msgs[1].Role != RoleAssistant || msgs[2].Content != "It's a three year deal." {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestDialogue_FailuresAreGenerationFailed(t *testing.T) {
	cases := []struct {
		name       string
		provider   *fakeProvider
		transcript []domain.Turn
	}{
		{"transport", &fakeProvider{err: errors.New("dial tcp: refused")}, []domain.Turn{{Speaker: domain.SpeakerUser, Text: "hi"}}},
		{"empty_reply", &fakeProvider{reply: "   "}, []domain.Turn{{Speaker: domain.SpeakerUser, Text: "hi"}}},
		{"empty_transcript", &fakeProvider{reply: "x"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewDialogueClient(tc.provider, nil)
			_, err := c.GenerateReply(context.Background(), tc.transcript, domain.ScenarioInterview)
			if !errors.Is(err, domain.ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
		})
	}
}

const validAssessment = `{"scores":{"clarity":82,"confidence":74,"empathy":61,"persuasion":90},
"feedback":"Simplify. Then simplify again.",
"suggestions":["Lead with the number.","Cut the preamble."],
"rewrite":"We'll ship Friday."}`

func TestScoring_ExecutiveExample(t *testing.T) {
	p := &fakeProvider{reply: validAssessment}
	c := NewScoringClient(p, prompts.Default())
	transcript := []domain.Turn{
		{Speaker: domain.SpeakerUser, Text: "I think maybe we could launch soon?"},
		{Speaker: domain.SpeakerAgent, Text: "When exactly?"},
		{Speaker: domain.SpeakerUser, Text: "Probably Friday, if things go well."},
		{Speaker: domain.SpeakerAgent, Text: "Why should I believe that?"},
	}
	a, err := c.ScoreTranscript(context.Background(), transcript, domain.CoachExecutive)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if a.Scores.Clarity != 82 || a.Scores.Persuasion != 90 || a.Feedback == "" || len(a.Suggestions) != 2 {
		t.Fatalf("unexpected assessment %+v", a)
	}
	req := p.last()
	if !req.JSON {
		t.Fatalf("scoring must request json")
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, "The Executive") {
		t.Fatalf("prompt missing persona: %q", prompt)
	}
	if !strings.Contains(prompt, `{"role":"AI","message":"When exactly?"}`) {
		t.Fatalf("prompt missing transcript: %q", prompt)
	}
}

func TestScoring_UnknownCoachUsesDefault(t *testing.T) {
	p := &fakeProvider{reply: validAssessment}
	c := NewScoringClient(p, nil)
	if _, err := c.ScoreTranscript(context.Background(), []domain.Turn{{Speaker: domain.SpeakerUser, Text: "hi"}}, domain.ParseCoach("yoda")); err != nil {
		t.Fatalf("unknown coach must not error: %v", err)
	}
	if !strings.HasPrefix(p.last().Messages[0].Content, "You are a communication coach.") {
		t.Fatalf("expected default persona")
	}
}

func TestScoring_RejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing_score":  `{"scores":{"clarity":80,"confidence":70,"empathy":60},"feedback":"ok","suggestions":[],"rewrite":"x"}`,
		"string_score":   `{"scores":{"clarity":"80","confidence":70,"empathy":60,"persuasion":1},"feedback":"ok","suggestions":[],"rewrite":"x"}`,
		"out_of_range":   `{"scores":{"clarity":180,"confidence":70,"empathy":60,"persuasion":1},"feedback":"ok","suggestions":[],"rewrite":"x"}`,
		"no_feedback":    `{"scores":{"clarity":80,"confidence":70,"empathy":60,"persuasion":1},"suggestions":[],"rewrite":"x"}`,
		"no_rewrite":     `{"scores":{"clarity":80,"confidence":70,"empathy":60,"persuasion":1},"feedback":"ok","suggestions":[]}`,
		"bad_suggestion": `{"scores":{"clarity":80,"confidence":70,"empathy":60,"persuasion":1},"feedback":"ok","suggestions":[1],"rewrite":"x"}`,
		"not_json":       `Great job overall!`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewScoringClient(&fakeProvider{reply: body}, nil)
			a, err := c.ScoreTranscript(context.Background(), []domain.Turn{{Speaker: domain.SpeakerUser, Text: "hi"}}, domain.CoachOrator)
			if !errors.Is(err, domain.ErrScoringFailed) {
				t.Fatalf("expected ErrScoringFailed, got %v", err)
			}
			if a.Feedback != "" || a.Scores != (domain.Scores{}) {
				t.Fatalf("partial assessment leaked: %+v", a)
			}
		})
	}
}

func TestScoring_TransportError(t *testing.T) {
	c := NewScoringClient(&fakeProvider{err: errors.New("timeout")}, nil)
	if _, err := c.ScoreTranscript(context.Background(), nil, domain.CoachOrator); !errors.Is(err, domain.ErrScoringFailed) {
		t.Fatalf("expected ErrScoringFailed, got %v", err)
	}
}

func TestParseAssessment_StripsCodeFences(t *testing.T) {
	a, err := ParseAssessment("```json\n" + validAssessment + "\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Rewrite != "We'll ship Friday." {
		t.Fatalf("unexpected rewrite %q", a.Rewrite)
	}
}
