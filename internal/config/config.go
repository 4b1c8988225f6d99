package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultTimeout = 60 * time.Second

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProvidersConfig catalogues configured upstream providers. Every block is
// optional but at least one must be present.
type ProvidersConfig struct {
	Anthropic *ProviderConfig `yaml:"anthropic"`
	Mistral   *ProviderConfig `yaml:"mistral"`
	Ollama    *ProviderConfig `yaml:"ollama"`
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	APIKey     string            `yaml:"api_key"`
	APIVersion string            `yaml:"api_version"`
	BaseURL    string            `yaml:"base_url"`
	Timeout    string            `yaml:"timeout"`
	Models     []ModelConfig     `yaml:"models"`
	Headers    Headers           `yaml:"headers"`
	Aliases    map[string]string `yaml:"aliases"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ModelConfig describes a model exposed by a provider.
type ModelConfig struct {
	ID string `yaml:"id"`
}

// TimeoutDuration returns the configured HTTP timeout or the default.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(p.Timeout); err == nil && d > 0 {
		return d
	}
	return defaultTimeout
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${NAME} with the environment value, leaving unknown
// variables untouched so validation can report them.
func expandEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		if val, ok := os.LookupEnv(string(match[2 : len(match)-1])); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	providers := c.Providers.Enabled()
	if len(providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	for name, provider := range providers {
		if err := validateProvider(name, *provider, name != "ollama"); err != nil {
			return err
		}
	}

	return nil
}

// Enabled returns the configured provider blocks keyed by provider kind.
func (p ProvidersConfig) Enabled() map[string]*ProviderConfig {
	out := make(map[string]*ProviderConfig, 3)
	if p.Anthropic != nil {
		out["anthropic"] = p.Anthropic
	}
	if p.Mistral != nil {
		out["mistral"] = p.Mistral
	}
	if p.Ollama != nil {
		out["ollama"] = p.Ollama
	}
	return out
}

func validateProvider(name string, provider ProviderConfig, requireKey bool) error {
	if requireKey && strings.TrimSpace(provider.APIKey) == "" {
		return fmt.Errorf("provider %s: api_key must be provided", name)
	}
	if strings.HasPrefix(provider.APIKey, "${") {
		return fmt.Errorf("provider %s: api_key contains unexpanded env var %s", name, provider.APIKey)
	}
	if len(provider.Models) == 0 {
		return fmt.Errorf("provider %s: at least one model must be configured", name)
	}
	if provider.Timeout != "" {
		if d, err := time.ParseDuration(provider.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("provider %s: timeout %q must be a positive duration", name, provider.Timeout)
		}
	}

	for _, model := range provider.Models {
		if strings.TrimSpace(model.ID) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", name)
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	for alias, target := range provider.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("provider %s: alias name must not be empty", name)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("provider %s: alias %q target must not be empty", name, alias)
		}
	}

	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
