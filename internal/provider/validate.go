package provider

import (
	"fmt"
	"strings"

	"textgen-bridge/internal/models"
)

// ValidateRequest checks the invariants every provider relies on. Provider
// facades run it before their own capability checks.
func ValidateRequest(providerName string, req models.Request) error {
	if strings.TrimSpace(req.Model) == "" {
		return &ValidationError{Provider: providerName, Field: "model", Reason: "must be provided"}
	}
	if len(req.Messages) == 0 {
		return &ValidationError{Provider: providerName, Field: "messages", Reason: "at least one message is required"}
	}
	for i, msg := range req.Messages {
		if !msg.Role.Valid() {
			return &ValidationError{Provider: providerName, Field: fmt.Sprintf("messages[%d].role", i), Reason: fmt.Sprintf("unknown role %q", msg.Role)}
		}
		if msg.Role == models.RoleTool && msg.ToolCallID == "" {
			return &ValidationError{Provider: providerName, Field: fmt.Sprintf("messages[%d].tool_call_id", i), Reason: "tool results must reference a tool call"}
		}
	}
	if req.MaxTokens < 0 {
		return &ValidationError{Provider: providerName, Field: "max_tokens", Reason: "must be positive"}
	}

	names := make(map[string]struct{}, len(req.Tools))
	for i, tool := range req.Tools {
		if strings.TrimSpace(tool.Name) == "" {
			return &ValidationError{Provider: providerName, Field: fmt.Sprintf("tools[%d].name", i), Reason: "must not be empty"}
		}
		if _, dup := names[tool.Name]; dup {
			return &ValidationError{Provider: providerName, Field: fmt.Sprintf("tools[%d].name", i), Reason: fmt.Sprintf("duplicate tool %q", tool.Name)}
		}
		names[tool.Name] = struct{}{}
	}

	if tc := req.ToolChoice; tc != nil {
		if len(req.Tools) == 0 {
			return &ValidationError{Provider: providerName, Field: "tool_choice", Reason: "requires at least one tool"}
		}
		if tc.Name != "" {
			if _, ok := names[tc.Name]; !ok {
				return &ValidationError{Provider: providerName, Field: "tool_choice", Reason: fmt.Sprintf("references undeclared tool %q", tc.Name)}
			}
		}
		switch tc.Mode {
		case "", models.ToolChoiceModeAuto, models.ToolChoiceModeAny, models.ToolChoiceModeNone:
		default:
			return &ValidationError{Provider: providerName, Field: "tool_choice", Reason: fmt.Sprintf("unknown mode %q", tc.Mode)}
		}
		set := 0
		for _, present := range []bool{tc.Mode != "", tc.Name != "", len(tc.Raw) > 0} {
			if present {
				set++
			}
		}
		if set != 1 {
			return &ValidationError{Provider: providerName, Field: "tool_choice", Reason: "must set exactly one of a mode, a tool name or a raw directive"}
		}
	}
	return nil
}
