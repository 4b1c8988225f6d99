package mistral

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"textgen-bridge/internal/models"
)

func encodeChatPayload(req models.Request) map[string]any {
	payload, err := buildChatPayload(req)
	if err != nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func TestChatPayloadProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("minimal requests carry defaults and no optional keys", prop.ForAll(
		func(model, content string) bool {
			m := encodeChatPayload(models.Request{
				Model:    model,
				Messages: []models.Message{models.UserMessage(content)},
			})
			if m == nil || m["model"] != model || m["max_tokens"] != float64(models.DefaultMaxTokens) {
				return false
			}
			for _, key := range []string{"temperature", "top_p", "tools", "tool_choice"} {
				if _, ok := m[key]; ok {
					return false
				}
			}
			msgs, _ := m["messages"].([]any)
			return len(msgs) == 1
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("sampling values are emitted even when zero", prop.ForAll(
		func(temperature, topP float64, maxTokens int) bool {
			m := encodeChatPayload(models.Request{
				Model:       "m",
				Messages:    []models.Message{models.UserMessage("hi")},
				MaxTokens:   maxTokens,
				Temperature: models.Float(temperature),
				TopP:        models.Float(topP),
			})
			return m != nil &&
				m["temperature"] == temperature &&
				m["top_p"] == topP &&
				m["max_tokens"] == float64(maxTokens)
		},
		gen.OneConstOf(0.0, 0.2, 0.7, 1.0),
		gen.OneConstOf(0.0, 0.5, 1.0),
		gen.IntRange(1, 8192),
	))

	properties.Property("system prompt leads the message list", prop.ForAll(
		func(system string) bool {
			m := encodeChatPayload(models.Request{
				Model:        "m",
				Messages:     []models.Message{models.UserMessage("hi")},
				SystemPrompt: system,
			})
			msgs, _ := m["messages"].([]any)
			if len(msgs) != 2 {
				return false
			}
			first, _ := msgs[0].(map[string]any)
			return first["role"] == "system" && first["content"] == system
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}
