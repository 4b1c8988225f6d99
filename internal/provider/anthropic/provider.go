package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
)

const (
	// Kind identifies this provider family in model metadata.
	Kind              = "anthropic"
	defaultBaseURL    = "https://api.anthropic.com/v1"
	defaultAPIVersion = "2023-06-01"
)

type messagesClient interface {
	messages(ctx context.Context, payload []byte, opts models.ClientOptions) (provider.RawResponse, error)
}

// Provider implements Anthropic Messages API interactions.
type Provider struct {
	name   string
	models []models.Model
	client messagesClient
}

// New constructs an Anthropic provider instance.
func New(name string, cfg config.ProviderConfig, doer provider.HTTPDoer) (*Provider, error) {
	if doer == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key must not be empty")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, model := range cfg.Models {
		modelsList = append(modelsList, models.Model{
			ID:       model.ID,
			Provider: name,
			Kind:     Kind,
		})
	}

	return &Provider{
		name:   name,
		models: modelsList,
		client: newClient(baseURL, cfg.APIKey, version, cfg.Headers, doer),
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

// Generate validates, maps, sends and normalizes a single Messages request.
func (p *Provider) Generate(ctx context.Context, req models.Request) (*models.Response, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	payload, err := buildMessagePayload(req)
	if err != nil {
		return nil, &provider.RequestError{Provider: p.name, Model: req.Model, Err: err}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &provider.RequestError{Provider: p.name, Model: req.Model, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	raw, err := p.client.messages(ctx, body, req.ClientOptions)
	if err != nil {
		return nil, &provider.RequestError{Provider: p.name, Model: req.Model, Err: err}
	}
	if err := provider.CheckStatus(raw); err != nil {
		return nil, &provider.RequestError{Provider: p.name, Model: req.Model, Err: err}
	}

	return parseMessageResponse(p.name, raw)
}

func (p *Provider) validate(req models.Request) error {
	if err := provider.ValidateRequest(p.name, req); err != nil {
		return err
	}
	for _, msg := range req.Messages {
		if msg.Role != models.RoleSystem {
			return nil
		}
	}
	return &provider.ValidationError{Provider: p.name, Field: "messages", Reason: "at least one non-system message is required"}
}

type messagePayload struct {
	Model       string          `json:"model"`
	Messages    []message       `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Tools       []tool          `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`
}

func buildMessagePayload(req models.Request) (messagePayload, error) {
	messages, system := mapMessages(req.Messages, req.SystemPrompt)

	toolChoice, err := mapToolChoice(req.ToolChoice)
	if err != nil {
		return messagePayload{}, fmt.Errorf("map tool_choice: %w", err)
	}

	return messagePayload{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.EffectiveMaxTokens(),
		System:      system,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Tools:       mapTools(req.Tools),
		ToolChoice:  toolChoice,
	}, nil
}
