// Package chatcompat formats canonical messages and tool declarations for
// the OpenAI-compatible chat/completions dialect.
package chatcompat

import (
	"encoding/json"
	"fmt"

	"textgen-bridge/internal/models"
)

// Message is one chat/completions message.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Part is one element of an array-form message content.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a function declaration.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// MapMessages converts canonical messages to the dialect's message array. A
// non-empty systemPrompt is emitted as a leading system message.
func MapMessages(msgs []models.Message, systemPrompt string) []Message {
	out := make([]Message, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, Message{Role: string(models.RoleSystem), Content: systemPrompt})
	}

	for _, m := range msgs {
		msg := Message{Role: string(m.Role), Content: mapContent(m)}
		switch m.Role {
		case models.RoleTool:
			msg.ToolCallID = m.ToolCallID
		case models.RoleAssistant:
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: tc.ArgumentsText(),
					},
				})
			}
		}
		out = append(out, msg)
	}
	return out
}

func mapContent(m models.Message) any {
	if len(m.Parts) == 0 {
		return m.Content
	}
	parts := make([]Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case models.PartImage:
			url := p.URL
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", p.MediaType, p.Data)
			}
			parts = append(parts, Part{Type: "image_url", ImageURL: &ImageURL{URL: url}})
		default:
			parts = append(parts, Part{Type: "text", Text: p.Text})
		}
	}
	return parts
}

// MapTools converts tool declarations; it returns nil when there are none.
func MapTools(tools []models.Tool) []Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, Tool{
			Type: "function",
			Function: Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// MapToolChoice renders a tool-choice directive: modes become bare strings,
// a tool name becomes a function selector, raw directives pass through.
func MapToolChoice(tc *models.ToolChoice) (json.RawMessage, error) {
	if tc == nil {
		return nil, nil
	}
	if len(tc.Raw) > 0 {
		return tc.Raw, nil
	}
	if tc.Name != "" {
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tc.Name},
		})
	}
	return json.Marshal(string(tc.Mode))
}
