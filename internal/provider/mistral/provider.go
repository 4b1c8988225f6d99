package mistral

import (
	"context"
	"encoding/json"
	"fmt"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
	"textgen-bridge/internal/provider/chatcompat"
)

const (
	// Kind identifies this provider family in model metadata.
	Kind           = "mistral"
	defaultBaseURL = "https://api.mistral.ai/v1"
)

// Provider implements the Provider interface for the Mistral chat API.
type Provider struct {
	backend *chatcompat.Backend
}

// New creates a new Mistral provider.
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
	if err := provider.ValidateRequest(p.backend.Name, req); err != nil {
		return nil, err
	}

	payload, err := buildChatPayload(req)
	if err != nil {
		return nil, &provider.RequestError{Provider: p.backend.Name, Model: req.Model, Err: err}
	}
	return p.backend.Exchange(ctx, req, payload)
}

type chatPayload struct {
	Model       string               `json:"model"`
	Messages    []chatcompat.Message `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float64             `json:"temperature,omitempty"`
	TopP        *float64             `json:"top_p,omitempty"`
	Tools       []chatcompat.Tool    `json:"tools,omitempty"`
	ToolChoice  json.RawMessage      `json:"tool_choice,omitempty"`
}

func buildChatPayload(req models.Request) (chatPayload, error) {
	toolChoice, err := chatcompat.MapToolChoice(req.ToolChoice)
	if err != nil {
		return chatPayload{}, fmt.Errorf("map tool_choice: %w", err)
	}

	return chatPayload{
		Model:       req.Model,
		Messages:    chatcompat.MapMessages(req.Messages, req.SystemPrompt),
		MaxTokens:   req.EffectiveMaxTokens(),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Tools:       chatcompat.MapTools(req.Tools),
		ToolChoice:  toolChoice,
	}, nil
}
