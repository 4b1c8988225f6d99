package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `textgen-bridge exposes Anthropic, Mistral and Ollama behind one request model.

Usage:
  textgen-bridge serve --config <path> [flags]
  textgen-bridge generate --config <path> --model <id> --prompt <text> [flags]

Commands:
  serve      Start the HTTP server
  generate   Send a single request and print the normalized response

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "generate":
		return generate(ctx, args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
