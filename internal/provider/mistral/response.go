package mistral

import "textgen-bridge/internal/models"

func mapFinishReason(reason string) models.FinishReason {
	switch reason {
	case "stop":
		return models.FinishStop
	case "tool_calls":
		return models.FinishToolCalls
	case "length", "model_length":
		return models.FinishLength
	default:
		return models.FinishUnknown
	}
}
