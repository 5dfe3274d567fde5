package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chadiek/eloquence/internal/domain"
	"github.com/chadiek/eloquence/internal/prompts"
)

const scoringTask = `Analyze the following conversation transcript. The user is "user". The other party is "AI".

Transcript:
%s

Provide a structured assessment in JSON format with the following fields:
- scores: { clarity: number (0-100), confidence: number (0-100), empathy: number (0-100), persuasion: number (0-100) }
- feedback: A string paragraph giving overall feedback in your specific Persona voice.
- suggestions: An array of strings with specific actionable advice (e.g. "Instead of X, try Y").
- rewrite: Choose one user sentence that was weak and rewrite it in your Persona's ideal style.`

// ScoringClient asks the model to grade a finished transcript.
type ScoringClient struct {
	provider Provider
	prompts  *prompts.Catalog
}

func NewScoringClient(p Provider, catalog *prompts.Catalog) *ScoringClient {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &ScoringClient{provider: p, prompts: catalog}
}

type transcriptLine struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// ScoreTranscript returns a validated Assessment. Unknown coaches use the
// default persona. Transport errors, non-JSON output and schema mismatches
// all surface as domain.ErrScoringFailed.
func (c *ScoringClient) ScoreTranscript(ctx context.Context, transcript []domain.Turn, coach domain.Coach) (domain.Assessment, error) {
	lines := make([]transcriptLine, 0, len(transcript))
	for _, t := range transcript {
		role := "AI"
		if t.Speaker == domain.SpeakerUser {
			role = "user"
		}
		lines = append(lines, transcriptLine{Role: role, Message: t.Text})
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("%w: %w", domain.ErrScoringFailed, err)
	}

	prompt := c.prompts.CoachInstruction(coach) + "\n\n" + fmt.Sprintf(scoringTask, encoded)
	raw, err := c.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("%w: %w", domain.ErrScoringFailed, err)
	}
	a, err := ParseAssessment(raw)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("%w: %w", domain.ErrScoringFailed, err)
	}
	return a, nil
}

type rawScores struct {
	Clarity    *float64 `json:"clarity"`
	Confidence *float64 `json:"confidence"`
	Empathy    *float64 `json:"empathy"`
	Persuasion *float64 `json:"persuasion"`
}

type rawAssessment struct {
	Scores      *rawScores `json:"scores"`
	Feedback    *string    `json:"feedback"`
	Suggestions *[]string  `json:"suggestions"`
	Rewrite     *string    `json:"rewrite"`
}

// ParseAssessment decodes model output into an Assessment. Markdown code
// fences around the JSON are tolerated; missing or mistyped fields are not.
func ParseAssessment(text string) (domain.Assessment, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return domain.Assessment{}, errors.New("empty assessment")
	}

	var raw rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return domain.Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	if raw.Scores == nil {
		return domain.Assessment{}, errors.New("missing scores")
	}
	missing := make([]string, 0, 4)
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"clarity", raw.Scores.Clarity},
		{"confidence", raw.Scores.Confidence},
		{"empathy", raw.Scores.Empathy},
		{"persuasion", raw.Scores.Persuasion},
	} {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return domain.Assessment{}, fmt.Errorf("missing scores: %s", strings.Join(missing, ", "))
	}
	if raw.Feedback == nil || raw.Suggestions == nil || raw.Rewrite == nil {
		return domain.Assessment{}, errors.New("missing feedback, suggestions or rewrite")
	}

	a := domain.Assessment{
		Scores: domain.Scores{
			Clarity:    *raw.Scores.Clarity,
			Confidence: *raw.Scores.Confidence,
			Empathy:    *raw.Scores.Empathy,
			Persuasion: *raw.Scores.Persuasion,
		},
		Feedback:    *raw.Feedback,
		Suggestions: *raw.Suggestions,
		Rewrite:     *raw.Rewrite,
	}
	if a.Suggestions == nil {
		a.Suggestions = []string{}
	}
	if err := a.Validate(); err != nil {
		return domain.Assessment{}, err
	}
	return a, nil
}
