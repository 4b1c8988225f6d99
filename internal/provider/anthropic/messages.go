package anthropic

import (
	"encoding/json"
	"strings"

	"textgen-bridge/internal/models"
)

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *imageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   any             `json:"content,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

var emptyInput = json.RawMessage(`{}`)

// mapMessages converts canonical messages to the Messages API shape.
// System-role messages are lifted into the returned system string after
// systemPrompt; consecutive tool results share one user message.
func mapMessages(msgs []models.Message, systemPrompt string) ([]message, string) {
	var systemParts []string
	if systemPrompt != "" {
		systemParts = append(systemParts, systemPrompt)
	}

	out := make([]message, 0, len(msgs))
	mergeable := false
	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			if strings.TrimSpace(m.Content) != "" {
				systemParts = append(systemParts, m.Content)
			}
			continue

		case models.RoleTool:
			block := contentBlock{Type: "tool_result", ToolUseID: m.ToolCallID, Content: toolResultContent(m)}
			if n := len(out); mergeable && n > 0 {
				out[n-1].Content = append(out[n-1].Content.([]contentBlock), block)
				continue
			}
			out = append(out, message{Role: string(models.RoleUser), Content: []contentBlock{block}})
			mergeable = true
			continue

		case models.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				blocks := make([]contentBlock, 0, len(m.ToolCalls)+1)
				if m.Content != "" {
					blocks = append(blocks, contentBlock{Type: "text", Text: m.Content})
				}
				for _, tc := range m.ToolCalls {
					blocks = append(blocks, contentBlock{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: toolInput(tc),
					})
				}
				out = append(out, message{Role: string(m.Role), Content: blocks})
				mergeable = false
				continue
			}
		}

		out = append(out, message{Role: string(m.Role), Content: mapContent(m)})
		mergeable = false
	}

	return out, strings.Join(systemParts, "\n\n")
}

func mapContent(m models.Message) any {
	if len(m.Parts) == 0 {
		return m.Content
	}
	blocks := make([]contentBlock, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case models.PartImage:
			src := &imageSource{Type: "base64", MediaType: p.MediaType, Data: p.Data}
			if p.URL != "" {
				src = &imageSource{Type: "url", URL: p.URL}
			}
			blocks = append(blocks, contentBlock{Type: "image", Source: src})
		default:
			blocks = append(blocks, contentBlock{Type: "text", Text: p.Text})
		}
	}
	return blocks
}

// toolResultContent keeps multi-part results as content blocks and plain
// results as a string. Empty results carry no content at all.
func toolResultContent(m models.Message) any {
	if len(m.Parts) > 0 {
		return mapContent(m)
	}
	if m.Content == "" {
		return nil
	}
	return m.Content
}

// toolInput returns the call's arguments as a JSON object. String-encoded
// arguments are unwrapped when they hold an object; anything else becomes {}.
func toolInput(tc models.ToolCall) json.RawMessage {
	if tc.HasStructuredArguments() {
		return tc.Arguments
	}
	text := strings.TrimSpace(tc.ArgumentsText())
	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return json.RawMessage(text)
	}
	return emptyInput
}

func mapTools(tools []models.Tool) []tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]tool, 0, len(tools))
	for _, t := range tools {
		schema := t.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, tool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out
}

func mapToolChoice(tc *models.ToolChoice) (json.RawMessage, error) {
	if tc == nil {
		return nil, nil
	}
	if len(tc.Raw) > 0 {
		return tc.Raw, nil
	}
	if tc.Name != "" {
		return json.Marshal(map[string]string{"type": "tool", "name": tc.Name})
	}
	return json.Marshal(map[string]string{"type": string(tc.Mode)})
}
