package models

import (
	"encoding/json"
	"time"
)

// DefaultMaxTokens is sent when a request leaves MaxTokens unset.
const DefaultMaxTokens = 2048

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// PartType identifies the kind of a structured content part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// ContentPart is one element of a multi-modal message.
// Image parts carry either base64 Data with a MediaType, or a URL.
type ContentPart struct {
	Type      PartType
	Text      string
	Data      string
	MediaType string
	URL       string
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart builds a base64 image content part.
func ImagePart(mediaType, data string) ContentPart {
	return ContentPart{Type: PartImage, MediaType: mediaType, Data: data}
}

// ImageURLPart builds an image content part referenced by URL.
func ImageURLPart(url string) ContentPart {
	return ContentPart{Type: PartImage, URL: url}
}

// Message represents a single conversational message in the canonical schema.
// When Parts is non-empty it takes precedence over Content.
type Message struct {
	Role       Role
	Content    string
	Parts      []ContentPart
	ToolCalls  []ToolCall
	ToolCallID string
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message with optional extra content parts.
func UserMessage(content string, parts ...ContentPart) Message {
	m := Message{Role: RoleUser, Content: content}
	if len(parts) > 0 {
		m.Parts = make([]ContentPart, 0, len(parts)+1)
		if content != "" {
			m.Parts = append(m.Parts, TextPart(content))
		}
		m.Parts = append(m.Parts, parts...)
	}
	return m
}

// AssistantMessage builds an assistant message, optionally carrying tool calls.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage builds the result message for a previous tool call.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// Tool declares a function the model may elect to invoke.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolChoiceMode is the enumerated form of a tool-choice directive.
type ToolChoiceMode string

const (
	ToolChoiceModeAuto ToolChoiceMode = "auto"
	ToolChoiceModeAny  ToolChoiceMode = "any"
	ToolChoiceModeNone ToolChoiceMode = "none"
)

// ToolChoice tells the model how to pick tools. Exactly one of Mode, Name or
// Raw is set; Raw is passed to the provider untouched.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string
	Raw  json.RawMessage
}

func ToolChoiceAuto() *ToolChoice { return &ToolChoice{Mode: ToolChoiceModeAuto} }
func ToolChoiceAny() *ToolChoice  { return &ToolChoice{Mode: ToolChoiceModeAny} }
func ToolChoiceNone() *ToolChoice { return &ToolChoice{Mode: ToolChoiceModeNone} }

// ToolChoiceTool forces the named tool.
func ToolChoiceTool(name string) *ToolChoice { return &ToolChoice{Name: name} }

// ToolChoiceRaw passes a provider-native directive through as-is.
func ToolChoiceRaw(raw json.RawMessage) *ToolChoice { return &ToolChoice{Raw: raw} }

// ClientOptions are per-call transport overrides.
type ClientOptions struct {
	Timeout time.Duration
	Headers map[string]string
}

// Request is the canonical representation of a text-generation call.
type Request struct {
	Model         string
	Messages      []Message
	MaxTokens     int
	Temperature   *float64
	TopP          *float64
	SystemPrompt  string
	Tools         []Tool
	ToolChoice    *ToolChoice
	ClientOptions ClientOptions
}

// EffectiveMaxTokens returns MaxTokens or DefaultMaxTokens when unset.
func (r Request) EffectiveMaxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Float returns a pointer to v, for the optional sampling parameters.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// ToolCall is a tool invocation produced by the model. Arguments holds the
// raw JSON value exactly as the provider sent it: a JSON string for
// OpenAI-style dialects, an object for the Anthropic dialect.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ArgumentsText returns the arguments as text. A JSON string value is
// unquoted; any other value is returned byte-for-byte.
func (tc ToolCall) ArgumentsText() string {
	if len(tc.Arguments) > 0 && tc.Arguments[0] == '"' {
		var s string
		if err := json.Unmarshal(tc.Arguments, &s); err == nil {
			return s
		}
	}
	return string(tc.Arguments)
}

// HasStructuredArguments reports whether the provider sent a JSON object.
func (tc ToolCall) HasStructuredArguments() bool {
	return len(tc.Arguments) > 0 && tc.Arguments[0] == '{'
}

// Usage records token accounting; nil fields were not reported.
type Usage struct {
	PromptTokens     *int
	CompletionTokens *int
}

// Total sums both counts when both were reported.
func (u Usage) Total() (int, bool) {
	if u.PromptTokens == nil || u.CompletionTokens == nil {
		return 0, false
	}
	return *u.PromptTokens + *u.CompletionTokens, true
}

// FinishReason is the normalized cause for ending generation.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishUnknown       FinishReason = "unknown"
)

// Response captures a provider response in the canonical schema.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason FinishReason
	Meta         map[string]string
}

// Model identifies a known model with provider metadata.
type Model struct {
	ID       string
	Provider string
	Kind     string
}
