package ollama

import (
	"context"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
	"textgen-bridge/internal/provider/chatcompat"
)

const (
	// Kind identifies this provider family in model metadata.
	Kind           = "ollama"
	defaultBaseURL = "http://localhost:11434/v1"
)

// Provider talks to a self-hosted Ollama server through its
// OpenAI-compatible endpoint. It accepts tools but rejects tool_choice.
type Provider struct {
	backend *chatcompat.Backend
}

// New constructs an Ollama provider. The API key is optional; self-hosted
// servers usually run open and a bearer header is only sent when one is set.
func New(name string, cfg config.ProviderConfig, doer provider.HTTPDoer) (*Provider, error) {
	backend, err := chatcompat.NewBackend(name, Kind, defaultBaseURL, cfg, doer, mapFinishReason)
	if err != nil {
		return nil, err
	}
	return &Provider{backend: backend}, nil
}

func (p *Provider) Name() string {
	return p.backend.Name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	return p.backend.ListModels(), nil
}

// Generate validates, maps, sends and normalizes a single chat request.
func (p *Provider) Generate(ctx context.Context, req models.Request) (*models.Response, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}
	return p.backend.Exchange(ctx, req, buildChatPayload(req))
}

func (p *Provider) validate(req models.Request) error {
	if req.ToolChoice != nil {
		return provider.Unsupported(p.backend.Name, "tool_choice", "explicit tool choice is not supported")
	}
	return provider.ValidateRequest(p.backend.Name, req)
}

type chatPayload struct {
	Model       string               `json:"model"`
	Messages    []chatcompat.Message `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float64             `json:"temperature,omitempty"`
	TopP        *float64             `json:"top_p,omitempty"`
	Tools       []chatcompat.Tool    `json:"tools,omitempty"`
}

func buildChatPayload(req models.Request) chatPayload {
	return chatPayload{
		Model:       req.Model,
		Messages:    chatcompat.MapMessages(req.Messages, req.SystemPrompt),
		MaxTokens:   req.EffectiveMaxTokens(),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Tools:       chatcompat.MapTools(req.Tools),
	}
}
