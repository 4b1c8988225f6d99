package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"textgen-bridge/internal/config"
	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
	providerfactory "textgen-bridge/internal/provider/factory"
	"textgen-bridge/internal/router"
	"textgen-bridge/internal/translator"
)

const generateUsage = `Usage:
  textgen-bridge generate --config <path> --model <id> --prompt <text> [flags]

Flags:
  --config      string    Path to YAML configuration file (required)
  --model       string    Model id or alias (required)
  --prompt      string    User message; "-" reads it from stdin (required)
  --system      string    System prompt
  --max-tokens  int       Maximum tokens to generate (default 2048)
  --temperature float     Sampling temperature
  --top-p       float     Nucleus sampling probability
  --timeout     duration  Per-call timeout, e.g. 30s`

func generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, generateUsage)
	}

	var (
		cfgPath, model, prompt, system string
		maxTokens                      int
		timeout                        time.Duration
		temperature, topP              *float64
	)
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&model, "model", "", "model id or alias")
	fs.StringVar(&prompt, "prompt", "", "user message")
	fs.StringVar(&system, "system", "", "system prompt")
	fs.IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate")
	fs.DurationVar(&timeout, "timeout", 0, "per-call timeout")
	fs.Func("temperature", "sampling temperature", optionalFloat(&temperature))
	fs.Func("top-p", "nucleus sampling probability", optionalFloat(&topP))

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse generate flags: %w", err)
	}

	if cfgPath == "" || model == "" || prompt == "" {
		return errors.New("generate command requires --config, --model and --prompt")
	}
	if prompt == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log)

	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(ctx, cfg, registry); err != nil {
		return err
	}
	rt := router.New(registry, logger)

	resp, modelInfo, err := rt.Generate(ctx, models.Request{
		Model:        model,
		Messages:     []models.Message{models.UserMessage(prompt)},
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		TopP:         topP,
		SystemPrompt: system,
		ClientOptions: models.ClientOptions{
			Timeout: timeout,
		},
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(translator.FromCanonical(modelInfo, resp))
}

func optionalFloat(target **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*target = &v
		return nil
	}
}
