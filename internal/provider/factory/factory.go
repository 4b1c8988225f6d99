package factory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/provider"
	anthropicProvider "textgen-bridge/internal/provider/anthropic"
	mistralProvider "textgen-bridge/internal/provider/mistral"
	ollamaProvider "textgen-bridge/internal/provider/ollama"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// constructor builds a provider from its config block and transport.
type constructor func(name string, cfg config.ProviderConfig, doer provider.HTTPDoer) (provider.Provider, error)

var constructors = []struct {
	name  string
	build constructor
	block func(config.ProvidersConfig) *config.ProviderConfig
}{
	{
		name: anthropicProvider.Kind,
		build: func(name string, cfg config.ProviderConfig, doer provider.HTTPDoer) (provider.Provider, error) {
			return anthropicProvider.New(name, cfg, doer)
		},
		block: func(p config.ProvidersConfig) *config.ProviderConfig { return p.Anthropic },
	},
	{
		name: mistralProvider.Kind,
		build: func(name string, cfg config.ProviderConfig, doer provider.HTTPDoer) (provider.Provider, error) {
			return mistralProvider.New(name, cfg, doer)
		},
		block: func(p config.ProvidersConfig) *config.ProviderConfig { return p.Mistral },
	},
	{
		name: ollamaProvider.Kind,
		build: func(name string, cfg config.ProviderConfig, doer provider.HTTPDoer) (provider.Provider, error) {
			return ollamaProvider.New(name, cfg, doer)
		},
		block: func(p config.ProvidersConfig) *config.ProviderConfig { return p.Ollama },
	},
}

// RegisterConfiguredProviders constructs providers from configuration and stores them in the registry.
// Each provider gets its own HTTP client so timeouts and pools stay independent.
func RegisterConfiguredProviders(ctx context.Context, cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	for _, c := range constructors {
		block := c.block(cfg.Providers)
		if block == nil {
			continue
		}

		p, err := c.build(c.name, *block, newHTTPClient(block.TimeoutDuration()))
		if err != nil {
			return fmt.Errorf("initialise %s provider: %w", c.name, err)
		}
		if err := registry.RegisterProvider(ctx, p, block.Aliases); err != nil {
			return fmt.Errorf("register %s provider: %w", c.name, err)
		}
	}

	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
