package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash"

type GeminiOption func(*GeminiProvider)

// GeminiProvider generates content through the Gemini API client.
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client

	once      sync.Once
	sdkClient *genai.Client
	sdkErr    error
}

func NewGeminiProvider(apiKey, model string, opts ...GeminiOption) *GeminiProvider {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	p := &GeminiProvider{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// WithGeminiEndpoint overrides the API base URL.
func WithGeminiEndpoint(endpoint string) GeminiOption {
	return func(p *GeminiProvider) {
		if trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/"); trimmed != "" {
			p.endpoint = trimmed + "/"
		}
	}
}

func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(p *GeminiProvider) {
		if client != nil {
			p.client = client
		}
	}
}

func (p *GeminiProvider) sdk(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:      p.apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  p.client,
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
		}
		if p.endpoint != "" {
			cfg.HTTPOptions.BaseURL = p.endpoint
		}
		p.sdkClient, p.sdkErr = genai.NewClient(ctx, cfg)
	})
	return p.sdkClient, p.sdkErr
}

// Complete sends the request and returns the concatenated text of the first
// candidate.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if p.apiKey == "" {
		return "", errors.New("gemini api key missing")
	}
	if len(req.Messages) == 0 {
		return "", errors.New("gemini: no messages")
	}
	client, err := p.sdk(ctx)
	if err != nil {
		return "", fmt.Errorf("gemini: create client: %w", err)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
