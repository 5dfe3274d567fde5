package llm

import (
	"context"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a provider-agnostic generation request.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []Message
	// JSON asks the provider to return a JSON document instead of prose.
	JSON bool
}

// Provider generates a single completion.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Provider names accepted by New.
const (
	ProviderGemini   = "gemini"
	ProviderCerebras = "cerebras"
)

// New builds a provider by name. An empty name selects Gemini.
func New(name, apiKey, model, endpoint string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderGemini:
		var opts []GeminiOption
		if endpoint != "" {
			opts = append(opts, WithGeminiEndpoint(endpoint))
		}
		return NewGeminiProvider(apiKey, model, opts...), nil
	case ProviderCerebras:
		c := NewCerebrasClient(apiKey, model)
		if endpoint != "" {
			c.Endpoint = endpoint
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
