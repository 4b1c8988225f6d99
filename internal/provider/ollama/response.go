package ollama

import "textgen-bridge/internal/models"

func mapFinishReason(reason string) models.FinishReason {
	switch reason {
	case "stop":
		return models.FinishStop
	case "tool_calls":
		return models.FinishToolCalls
	case "length":
		return models.FinishLength
	case "content_filter":
		return models.FinishContentFilter
	default:
		return models.FinishUnknown
	}
}
