package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chadiek/eloquence/internal/domain"
	"github.com/chadiek/eloquence/internal/prompts"
)

// DialogueClient generates the role-play partner's next line.
type DialogueClient struct {
	provider Provider
	prompts  *prompts.Catalog
}

func NewDialogueClient(p Provider, catalog *prompts.Catalog) *DialogueClient {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &DialogueClient{provider: p, prompts: catalog}
}

// GenerateReply primes the model with the scenario instruction, replays every
// turn but the last as history and sends the last turn as the new input.
// Every failure is reported as domain.ErrGenerationFailed.
func (c *DialogueClient) GenerateReply(ctx context.Context, transcript []domain.Turn, scenario domain.Scenario) (string, error) {
	if len(transcript) == 0 {
		return "", fmt.Errorf("%w: empty transcript", domain.ErrGenerationFailed)
	}
	last := transcript[len(transcript)-1]
	if strings.TrimSpace(last.Text) == "" {
		return "", fmt.Errorf("%w: empty input", domain.ErrGenerationFailed)
	}

	messages := make([]Message, 0, len(transcript))
	for _, t := range transcript {
		messages = append(messages, Message{Role: roleFor(t.Speaker), Content: t.Text})
	}

	reply, err := c.provider.Complete(ctx, CompletionRequest{
		SystemPrompt: c.prompts.ScenarioInstruction(scenario),
		Messages:     messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, errors.New("empty reply"))
	}
	return reply, nil
}

func roleFor(s domain.Speaker) Role {
	if s == domain.SpeakerUser {
		return RoleUser
	}
	return RoleAssistant
}
