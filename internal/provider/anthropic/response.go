package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
)

func parseMessageResponse(name string, raw provider.RawResponse) (*models.Response, error) {
	root, err := provider.ParseBody(name, raw)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	calls := make([]models.ToolCall, 0)
	root.Get("content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			text.WriteString(block.Get("text").String())
		case "tool_use":
			call := models.ToolCall{
				ID:   block.Get("id").String(),
				Name: block.Get("name").String(),
			}
			if input := block.Get("input"); input.Exists() {
				call.Arguments = json.RawMessage(input.Raw)
			}
			calls = append(calls, call)
		}
		return true
	})

	return &models.Response{
		Text:      text.String(),
		ToolCalls: calls,
		Usage: models.Usage{
			PromptTokens:     provider.OptionalInt(root.Get("usage.input_tokens")),
			CompletionTokens: provider.OptionalInt(root.Get("usage.output_tokens")),
		},
		FinishReason: mapFinishReason(root.Get("stop_reason").String()),
		Meta:         provider.Meta(root, "id", "model"),
	}, nil
}

func mapFinishReason(reason string) models.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence", "stop":
		return models.FinishStop
	case "tool_use":
		return models.FinishToolCalls
	case "max_tokens":
		return models.FinishLength
	case "refusal":
		return models.FinishContentFilter
	default:
		return models.FinishUnknown
	}
}
