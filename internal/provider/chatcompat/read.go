package chatcompat

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"textgen-bridge/internal/models"
)

// Text reads a message content value. String content is returned as-is;
// array content has its text chunks concatenated. Anything else is "".
func Text(content gjson.Result) string {
	if !content.IsArray() {
		if content.Type == gjson.String {
			return content.Str
		}
		return ""
	}
	var b strings.Builder
	content.ForEach(func(_, chunk gjson.Result) bool {
		if chunk.Type == gjson.String {
			b.WriteString(chunk.Str)
			return true
		}
		if t := chunk.Get("type").String(); t == "" || t == "text" {
			b.WriteString(chunk.Get("text").String())
		}
		return true
	})
	return b.String()
}

// ToolCalls re-shapes a tool_calls array. Arguments keep the exact raw JSON
// the provider sent; they are not parsed.
func ToolCalls(list gjson.Result) []models.ToolCall {
	calls := make([]models.ToolCall, 0)
	if !list.IsArray() {
		return calls
	}
	list.ForEach(func(_, tc gjson.Result) bool {
		call := models.ToolCall{
			ID:   tc.Get("id").String(),
			Name: tc.Get("function.name").String(),
		}
		if args := tc.Get("function.arguments"); args.Exists() {
			call.Arguments = json.RawMessage(args.Raw)
		}
		calls = append(calls, call)
		return true
	})
	return calls
}
