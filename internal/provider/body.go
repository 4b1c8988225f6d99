package provider

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"

	"textgen-bridge/internal/models"
)

const maxStatusBodyPreview = 512

// CheckStatus returns a *StatusError when the provider answered with a non-2xx
// status and a body that is not JSON. Such responses are transport-level
// failures; parseable error bodies are left to the normalizer.
func CheckStatus(raw RawResponse) error {
	if raw.OK() {
		return nil
	}
	if trimmed := bytes.TrimSpace(raw.Body); len(trimmed) > 0 && gjson.ValidBytes(trimmed) {
		return nil
	}
	body := strings.TrimSpace(string(raw.Body))
	if len(body) > maxStatusBodyPreview {
		body = body[:maxStatusBodyPreview] + "..."
	}
	return &StatusError{StatusCode: raw.StatusCode, Body: body}
}

// ParseBody validates a raw body and returns its root for safe-path lookups.
// It fails with a *ResponseError when the body is empty, not JSON, an empty
// object, carries an "error" member (even an empty one), or arrived with a
// non-2xx status.
func ParseBody(providerName string, raw RawResponse) (gjson.Result, error) {
	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return gjson.Result{}, NewResponseError(providerName, raw.StatusCode, "", "")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() || len(root.Map()) == 0 {
		return gjson.Result{}, NewResponseError(providerName, raw.StatusCode, "", "")
	}

	if e := root.Get("error"); errorPresent(e) {
		switch {
		case e.IsObject():
			return gjson.Result{}, NewResponseError(providerName, raw.StatusCode, e.Get("type").String(), e.Get("message").String())
		case e.Type == gjson.String:
			return gjson.Result{}, NewResponseError(providerName, raw.StatusCode, "", e.Str)
		default:
			return gjson.Result{}, NewResponseError(providerName, raw.StatusCode, "", "")
		}
	}

	if !raw.OK() {
		return gjson.Result{}, NewResponseError(providerName, raw.StatusCode, root.Get("type").String(), root.Get("message").String())
	}
	return root, nil
}

// OptionalInt returns a pointer to the numeric value at r, or nil when the
// field is missing or not a number.
func OptionalInt(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	return models.Int(int(r.Int()))
}

// Meta collects the string values at the given paths, skipping missing ones.
// Keys are the last path segment.
func Meta(root gjson.Result, paths ...string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		if v := root.Get(p); v.Exists() && v.Type != gjson.Null {
			key := p
			if i := strings.LastIndexByte(p, '.'); i >= 0 {
				key = p[i+1:]
			}
			out[key] = v.String()
		}
	}
	return out
}

// errorPresent reports whether an "error" member signals a failure. Any
// object or array counts, empty ones included; null, false and "" do not.
func errorPresent(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	}
	return r.Exists()
}
