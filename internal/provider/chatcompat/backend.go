package chatcompat

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

// Sender posts an encoded chat/completions payload and returns the raw answer.
type Sender interface {
	Send(ctx context.Context, payload []byte, opts models.ClientOptions) (provider.RawResponse, error)
}

// Client is the HTTP Sender for a chat/completions endpoint.
type Client struct {
	url     string
	headers map[string]string
	doer    provider.HTTPDoer
}

// NewClient fixes the endpoint and headers for the lifetime of the provider.
// The Authorization header is omitted entirely when apiKey is empty.
func NewClient(baseURL, apiKey string, extra map[string]string, doer provider.HTTPDoer) *Client {
	headers := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		headers[k] = v
	}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &Client{
		url:     baseURL + "/chat/completions",
		headers: headers,
		doer:    doer,
	}
}

func (c *Client) Send(ctx context.Context, payload []byte, opts models.ClientOptions) (provider.RawResponse, error) {
	return provider.PostJSON(ctx, c.doer, c.url, c.headers, payload, opts)
}

// FinishMapper translates a provider finish_reason into the canonical value.
type FinishMapper func(reason string) models.FinishReason

// Backend holds what every chat/completions provider shares: identity, the
// served models, the wire client and the normalizer. Providers keep their
// own validation and payload shape.
type Backend struct {
	Name   string
	Models []models.Model
	Client Sender
	Finish FinishMapper
}

// NewBackend builds a Backend from a provider config block. An empty base
// URL falls back to defaultBaseURL.
func NewBackend(name, kind, defaultBaseURL string, cfg config.ProviderConfig, doer provider.HTTPDoer, finish FinishMapper) (*Backend, error) {
	if doer == nil {
		return nil, errors.New("http client must not be nil")
	}
	if finish == nil {
		return nil, errors.New("finish mapper must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	list := make([]models.Model, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		list = append(list, models.Model{ID: m.ID, Provider: name, Kind: kind})
	}

	return &Backend{
		Name:   name,
		Models: list,
		Client: NewClient(baseURL, cfg.APIKey, cfg.Headers, doer),
		Finish: finish,
	}, nil
}

// ListModels returns a copy of the served models.
func (b *Backend) ListModels() []models.Model {
	out := make([]models.Model, len(b.Models))
	copy(out, b.Models)
	return out
}

// Exchange encodes payload, sends it once and normalizes the answer.
// Encoding and transport failures, and non-JSON error statuses, become
// *provider.RequestError; body failures come back as *provider.ResponseError.
func (b *Backend) Exchange(ctx context.Context, req models.Request, payload any) (*models.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &provider.RequestError{Provider: b.Name, Model: req.Model, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	raw, err := b.Client.Send(ctx, body, req.ClientOptions)
	if err != nil {
		return nil, &provider.RequestError{Provider: b.Name, Model: req.Model, Err: err}
	}
	if err := provider.CheckStatus(raw); err != nil {
		return nil, &provider.RequestError{Provider: b.Name, Model: req.Model, Err: err}
	}

	return ParseResponse(b.Name, raw, b.Finish)
}

// ParseResponse normalizes a chat/completions body. Only the first choice is read.
func ParseResponse(name string, raw provider.RawResponse, finish FinishMapper) (*models.Response, error) {
	root, err := provider.ParseBody(name, raw)
	if err != nil {
		return nil, err
	}

	choice := root.Get("choices.0")
	return &models.Response{
		Text:      Text(choice.Get("message.content")),
		ToolCalls: ToolCalls(choice.Get("message.tool_calls")),
		Usage: models.Usage{
			PromptTokens:     provider.OptionalInt(root.Get("usage.prompt_tokens")),
			CompletionTokens: provider.OptionalInt(root.Get("usage.completion_tokens")),
		},
		FinishReason: finish(choice.Get("finish_reason").String()),
		Meta:         provider.Meta(root, "id", "model"),
	}, nil
}
