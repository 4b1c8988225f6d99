package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
	"textgen-bridge/internal/provider/chatcompat"
)

type fakeClient struct {
	calls   int
	payload []byte
	opts    models.ClientOptions
	resp    provider.RawResponse
	err     error
}

func (f *fakeClient) Send(_ context.Context, payload []byte, opts models.ClientOptions) (provider.RawResponse, error) {
	f.calls++
	f.payload = payload
	f.opts = opts
	return f.resp, f.err
}

func okResponse(body string) provider.RawResponse {
	return provider.RawResponse{StatusCode: http.StatusOK, Body: []byte(body)}
}

func newTestProvider(client chatcompat.Sender) *Provider {
	return &Provider{backend: &chatcompat.Backend{Name: "mistral", Client: client, Finish: mapFinishReason}}
}

func decodePayload(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return m
}

func TestGenerateOverHTTP(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		wantHeader string
	}{
		{"with key", "secret", "Bearer secret"},
		{"without key", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth string
			var sawAuth bool
			var payload map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				_, sawAuth = r.Header["Authorization"]
				data, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(data, &payload)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"cmpl-1","model":"mistral-small-latest","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`))
			}))
			defer srv.Close()

			p, err := New("mistral", config.ProviderConfig{
				APIKey:  tt.apiKey,
				BaseURL: srv.URL + "/",
				Models:  []config.ModelConfig{{ID: "mistral-small-latest"}},
			}, srv.Client())
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			resp, err := p.Generate(context.Background(), models.Request{
				Model:    "mistral-small-latest",
				Messages: []models.Message{models.UserMessage("hi")},
			})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}

			if gotPath != "/chat/completions" {
				t.Errorf("path = %q", gotPath)
			}
			if gotAuth != tt.wantHeader {
				t.Errorf("Authorization = %q, want %q", gotAuth, tt.wantHeader)
			}
			if tt.apiKey == "" && sawAuth {
				t.Error("Authorization header must be omitted without a key")
			}
			if payload["max_tokens"] != float64(models.DefaultMaxTokens) {
				t.Errorf("max_tokens = %v", payload["max_tokens"])
			}

			if resp.Text != "hello" || resp.FinishReason != models.FinishStop {
				t.Errorf("unexpected response %+v", resp)
			}
			if total, ok := resp.Usage.Total(); !ok || total != 7 {
				t.Errorf("usage total = %d, %v", total, ok)
			}
			if resp.Meta["id"] != "cmpl-1" || resp.Meta["model"] != "mistral-small-latest" {
				t.Errorf("meta = %v", resp.Meta)
			}
		})
	}
}

func TestGenerateToolRoundTrip(t *testing.T) {
	const args = `"{\"city\": \"Paris\",  \"unit\":\"c\"}"`
	fake := &fakeClient{resp: okResponse(`{"id":"x","choices":[{"message":{"content":null,"tool_calls":[{"id":"call_9","type":"function","function":{"name":"weather","arguments":` + args + `}}]},"finish_reason":"tool_calls"}]}`)}
	p := newTestProvider(fake)

	resp, err := p.Generate(context.Background(), models.Request{
		Model:    "mistral-large-latest",
		Messages: []models.Message{models.UserMessage("weather in Paris?")},
		Tools: []models.Tool{
			{Name: "weather", Description: "current weather", Parameters: map[string]any{"type": "object"}},
			{Name: "search"},
		},
		ToolChoice: models.ToolChoiceTool("weather"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	sent := decodePayload(t, fake.payload)
	if tools, _ := sent["tools"].([]any); len(tools) != 2 {
		t.Errorf("expected 2 tools in payload, got %v", sent["tools"])
	}
	choice, _ := sent["tool_choice"].(map[string]any)
	if fn, _ := choice["function"].(map[string]any); fn["name"] != "weather" || choice["type"] != "function" {
		t.Errorf("unexpected tool_choice %v", sent["tool_choice"])
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_9" || call.Name != "weather" {
		t.Errorf("unexpected call %+v", call)
	}
	if string(call.Arguments) != args {
		t.Errorf("arguments = %s, want %s", call.Arguments, args)
	}
	if resp.Text != "" || resp.FinishReason != models.FinishToolCalls {
		t.Errorf("unexpected text/finish %q/%s", resp.Text, resp.FinishReason)
	}
}

func TestGenerateErrors(t *testing.T) {
	transportErr := errors.New("connection refused")

	tests := []struct {
		name      string
		req       models.Request
		client    *fakeClient
		wantKind  provider.Kind
		wantCalls int
	}{
		{
			name:      "validation",
			req:       models.Request{Model: "m"},
			client:    &fakeClient{},
			wantKind:  provider.KindValidation,
			wantCalls: 0,
		},
		{
			name:      "unencodable tool schema",
			req:       withNaNTool(validRequest()),
			client:    &fakeClient{},
			wantKind:  provider.KindRequest,
			wantCalls: 0,
		},
		{
			name:      "oversized body",
			req:       validRequest(),
			client:    &fakeClient{err: fmt.Errorf("%w: limit 8 bytes", provider.ErrResponseTooLarge)},
			wantKind:  provider.KindRequest,
			wantCalls: 1,
		},
		{
			name:      "empty error object",
			req:       validRequest(),
			client:    &fakeClient{resp: okResponse(`{"id":"x","error":{}}`)},
			wantKind:  provider.KindResponse,
			wantCalls: 1,
		},
		{
			name:      "transport",
			req:       validRequest(),
			client:    &fakeClient{err: transportErr},
			wantKind:  provider.KindRequest,
			wantCalls: 1,
		},
		{
			name:      "non-json failure status",
			req:       validRequest(),
			client:    &fakeClient{resp: provider.RawResponse{StatusCode: 503, Body: []byte("upstream down")}},
			wantKind:  provider.KindRequest,
			wantCalls: 1,
		},
		{
			name:      "error body",
			req:       validRequest(),
			client:    &fakeClient{resp: provider.RawResponse{StatusCode: 401, Body: []byte(`{"error":{"type":"unauthorized","message":"bad key"}}`)}},
			wantKind:  provider.KindResponse,
			wantCalls: 1,
		},
		{
			name:      "empty object",
			req:       validRequest(),
			client:    &fakeClient{resp: okResponse(`{}`)},
			wantKind:  provider.KindResponse,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestProvider(tt.client).Generate(context.Background(), tt.req)
			if got := provider.Classify(err); got != tt.wantKind {
				t.Fatalf("kind = %s, want %s (%v)", got, tt.wantKind, err)
			}
			if tt.client.calls != tt.wantCalls {
				t.Errorf("wire calls = %d, want %d", tt.client.calls, tt.wantCalls)
			}
		})
	}

	nanClient := &fakeClient{}
	_, err := newTestProvider(nanClient).Generate(context.Background(), withNaNTool(validRequest()))
	var reqErr *provider.RequestError
	if !errors.As(err, &reqErr) || nanClient.calls != 0 {
		t.Errorf("unencodable schema: err=%v calls=%d", err, nanClient.calls)
	}

	_, err = newTestProvider(&fakeClient{err: transportErr}).Generate(context.Background(), validRequest())
	if !errors.Is(err, transportErr) {
		t.Errorf("request error should wrap the transport cause, got %v", err)
	}

	_, err = newTestProvider(&fakeClient{resp: provider.RawResponse{StatusCode: 401, Body: []byte(`{"error":{"type":"unauthorized","message":"bad key"}}`)}}).Generate(context.Background(), validRequest())
	var respErr *provider.ResponseError
	if !errors.As(err, &respErr) || respErr.Type != "unauthorized" || respErr.Message != "bad key" {
		t.Errorf("unexpected response error %v", err)
	}
}

func TestUsageAbsentStaysNil(t *testing.T) {
	fake := &fakeClient{resp: okResponse(`{"choices":[{"message":{"content":"x"},"finish_reason":"stop"}]}`)}
	resp, err := newTestProvider(fake).Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Usage.PromptTokens != nil || resp.Usage.CompletionTokens != nil {
		t.Errorf("usage should be absent, got %+v", resp.Usage)
	}
	if resp.ToolCalls == nil {
		t.Error("tool calls should be an empty, non-nil list")
	}
}

func TestClientOptionsPassThrough(t *testing.T) {
	fake := &fakeClient{resp: okResponse(`{"choices":[{"message":{"content":"x"}}]}`)}
	req := validRequest()
	req.ClientOptions.Headers = map[string]string{"X-Trace": "1"}

	if _, err := newTestProvider(fake).Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fake.opts.Headers["X-Trace"] != "1" {
		t.Errorf("client options not forwarded: %+v", fake.opts)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]models.FinishReason{
		"stop":           models.FinishStop,
		"tool_calls":     models.FinishToolCalls,
		"length":         models.FinishLength,
		"model_length":   models.FinishLength,
		"content_filter": models.FinishUnknown,
		"error":          models.FinishUnknown,
		"":               models.FinishUnknown,
	}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %s, want %s", in, got, want)
		}
	}
}

func validRequest() models.Request {
	return models.Request{
		Model:    "mistral-small-latest",
		Messages: []models.Message{models.UserMessage("hi")},
	}
}

func withNaNTool(req models.Request) models.Request {
	req.Tools = []models.Tool{{Name: "score", Parameters: map[string]any{"type": "object", "default": math.NaN()}}}
	return req
}
