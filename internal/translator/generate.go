package translator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"textgen-bridge/internal/models"
)

var (
	errEmptyModel     = errors.New("model must be provided")
	errEmptyMessages  = errors.New("at least one message is required")
	errInvalidRole    = errors.New("invalid role")
	errInvalidContent = errors.New("invalid message content")
	errInvalidChoice  = errors.New("invalid tool_choice")
)

// GenerateRequest models the JSON body of POST /v1/generate.
type GenerateRequest struct {
	Model       string
	Messages    []GenerateMessage
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	System      string
	Tools       []GenerateTool
	ToolChoice  *models.ToolChoice
	Timeout     time.Duration
}

// UnmarshalJSON implements custom parsing to enforce validation.
func (r *GenerateRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Model       string            `json:"model"`
		Messages    []GenerateMessage `json:"messages"`
		MaxTokens   *int              `json:"max_tokens"`
		Temperature *float64          `json:"temperature"`
		TopP        *float64          `json:"top_p"`
		System      string            `json:"system"`
		Tools       []GenerateTool    `json:"tools"`
		ToolChoice  json.RawMessage   `json:"tool_choice"`
		TimeoutMS   int               `json:"timeout_ms"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode generate request: %w", err)
	}

	choice, err := parseToolChoice(raw.ToolChoice)
	if err != nil {
		return err
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.MaxTokens = raw.MaxTokens
	r.Temperature = raw.Temperature
	r.TopP = raw.TopP
	r.System = raw.System
	r.Tools = raw.Tools
	r.ToolChoice = choice
	if raw.TimeoutMS > 0 {
		r.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}

	if r.Model == "" {
		return errEmptyModel
	}
	if len(r.Messages) == 0 {
		return errEmptyMessages
	}
	return nil
}

// ToCanonical converts the HTTP request into the canonical request.
func (r GenerateRequest) ToCanonical() models.Request {
	msgs := make([]models.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, m.toCanonical())
	}

	var tools []models.Tool
	for _, t := range r.Tools {
		tools = append(tools, models.Tool{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}

	req := models.Request{
		Model:        r.Model,
		Messages:     msgs,
		Temperature:  r.Temperature,
		TopP:         r.TopP,
		SystemPrompt: r.System,
		Tools:        tools,
		ToolChoice:   r.ToolChoice,
		ClientOptions: models.ClientOptions{
			Timeout: r.Timeout,
		},
	}
	if r.MaxTokens != nil {
		req.MaxTokens = *r.MaxTokens
	}
	return req
}

// parseToolChoice accepts a mode string, a tool name string, or an object
// that is forwarded to the provider untouched.
func parseToolChoice(raw json.RawMessage) (*models.ToolChoice, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		switch models.ToolChoiceMode(s) {
		case models.ToolChoiceModeAuto, models.ToolChoiceModeAny, models.ToolChoiceModeNone:
			return &models.ToolChoice{Mode: models.ToolChoiceMode(s)}, nil
		}
		if s == "" {
			return nil, fmt.Errorf("%w: empty string", errInvalidChoice)
		}
		return models.ToolChoiceTool(s), nil
	}

	if raw[0] == '{' {
		return models.ToolChoiceRaw(append(json.RawMessage(nil), raw...)), nil
	}
	return nil, fmt.Errorf("%w: must be a string or an object", errInvalidChoice)
}

// GenerateMessage captures a single message within the request.
type GenerateMessage struct {
	Role       string
	Content    string
	Parts      []models.ContentPart
	ToolCalls  []GenerateToolCall
	ToolCallID string
}

// UnmarshalJSON supports string and array-of-parts content formats.
func (m *GenerateMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role       string             `json:"role"`
		Content    json.RawMessage    `json:"content"`
		ToolCalls  []GenerateToolCall `json:"tool_calls"`
		ToolCallID string             `json:"tool_call_id"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	m.Role = strings.TrimSpace(raw.Role)
	m.ToolCalls = raw.ToolCalls
	m.ToolCallID = strings.TrimSpace(raw.ToolCallID)

	if !models.Role(m.Role).Valid() {
		return fmt.Errorf("%w: %s", errInvalidRole, m.Role)
	}
	return m.parseContent(raw.Content)
}

func (m *GenerateMessage) parseContent(raw json.RawMessage) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		m.Content = text
		return nil
	}

	var segments []struct {
		Type      string `json:"type"`
		Text      string `json:"text"`
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(raw, &segments); err != nil {
		return fmt.Errorf("%w: unsupported content structure", errInvalidContent)
	}

	for _, segment := range segments {
		switch models.PartType(segment.Type) {
		case models.PartText:
			m.Parts = append(m.Parts, models.TextPart(segment.Text))
		case models.PartImage:
			if segment.URL == "" && segment.Data == "" {
				return fmt.Errorf("%w: image segment needs data or url", errInvalidContent)
			}
			m.Parts = append(m.Parts, models.ContentPart{
				Type:      models.PartImage,
				MediaType: segment.MediaType,
				Data:      segment.Data,
				URL:       segment.URL,
			})
		default:
			return fmt.Errorf("%w: segment type %q not supported", errInvalidContent, segment.Type)
		}
	}
	return nil
}

func (m GenerateMessage) toCanonical() models.Message {
	msg := models.Message{
		Role:       models.Role(m.Role),
		Content:    m.Content,
		Parts:      m.Parts,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	return msg
}

// GenerateTool declares a tool in the request.
type GenerateTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// GenerateToolCall is a tool call in either direction. Arguments is the
// provider's raw JSON value.
type GenerateToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// GenerateResponse models the JSON body returned by POST /v1/generate.
type GenerateResponse struct {
	ID           string             `json:"id,omitempty"`
	Model        string             `json:"model"`
	Provider     string             `json:"provider"`
	Text         string             `json:"text"`
	ToolCalls    []GenerateToolCall `json:"tool_calls"`
	Usage        GenerateUsage      `json:"usage"`
	FinishReason string             `json:"finish_reason"`
	Meta         map[string]string  `json:"meta,omitempty"`
}

// GenerateUsage keeps unreported counts as null.
type GenerateUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// FromCanonical constructs the HTTP response from canonical data.
func FromCanonical(model models.Model, resp *models.Response) GenerateResponse {
	calls := make([]GenerateToolCall, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		calls = append(calls, GenerateToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}

	usage := GenerateUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if total, ok := resp.Usage.Total(); ok {
		usage.TotalTokens = models.Int(total)
	}

	return GenerateResponse{
		ID:           resp.Meta["id"],
		Model:        model.ID,
		Provider:     model.Provider,
		Text:         resp.Text,
		ToolCalls:    calls,
		Usage:        usage,
		FinishReason: string(resp.FinishReason),
		Meta:         resp.Meta,
	}
}

// ModelList models the body of GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

type ModelInfo struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
}

// FromModels converts registry metadata to the list response.
func FromModels(list []models.Model) ModelList {
	out := ModelList{Object: "list", Data: make([]ModelInfo, 0, len(list))}
	for _, m := range list {
		out.Data = append(out.Data, ModelInfo{ID: m.ID, Object: "model", Provider: m.Provider, Kind: m.Kind})
	}
	return out
}
