package chatcompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
)

func stopOnly(reason string) models.FinishReason {
	if reason == "stop" {
		return models.FinishStop
	}
	return models.FinishUnknown
}

func TestNewBackend(t *testing.T) {
	if _, err := NewBackend("x", "x", "http://default", config.ProviderConfig{}, nil, stopOnly); err == nil {
		t.Error("expected error without http client")
	}
	if _, err := NewBackend("x", "x", "http://default", config.ProviderConfig{}, http.DefaultClient, nil); err == nil {
		t.Error("expected error without finish mapper")
	}

	b, err := NewBackend("local", "ollama", "http://default/v1", config.ProviderConfig{
		Models: []config.ModelConfig{{ID: "a"}, {ID: "b"}},
	}, http.DefaultClient, stopOnly)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if got := b.Client.(*Client).url; got != "http://default/v1/chat/completions" {
		t.Errorf("url = %q", got)
	}

	list := b.ListModels()
	list[0].ID = "mutated"
	if b.Models[0].ID != "a" || b.Models[1].Kind != "ollama" || b.Models[1].Provider != "local" {
		t.Errorf("unexpected models %+v", b.Models)
	}
}

func TestBackendExchange(t *testing.T) {
	var sent map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = w.Write([]byte(`{"id":"c1","model":"m","choices":[{"message":{"content":"done"},"finish_reason":"stop"}],"usage":{"prompt_tokens":2}}`))
	}))
	defer srv.Close()

	b, err := NewBackend("local", "ollama", "", config.ProviderConfig{BaseURL: srv.URL}, srv.Client(), stopOnly)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	resp, err := b.Exchange(context.Background(), models.Request{Model: "m"}, map[string]string{"model": "m"})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if sent["model"] != "m" {
		t.Errorf("payload not forwarded: %v", sent)
	}
	if resp.Text != "done" || resp.FinishReason != models.FinishStop || resp.Meta["id"] != "c1" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Usage.PromptTokens == nil || *resp.Usage.PromptTokens != 2 || resp.Usage.CompletionTokens != nil {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}

	_, err = b.Exchange(context.Background(), models.Request{Model: "m"}, map[string]any{"bad": func() {}})
	if provider.Classify(err) != provider.KindRequest {
		t.Errorf("unencodable payload should be a request error, got %v", err)
	}
}
