package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"textgen-bridge/internal/models"
	"textgen-bridge/internal/provider"
)

// Router dispatches canonical requests to the appropriate provider.
type Router struct {
	registry *provider.Registry
	logger   *slog.Logger
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		logger:   logger,
	}
}

// Generate routes a request to the provider serving req.Model, resolving aliases.
func (r *Router) Generate(ctx context.Context, req models.Request) (*models.Response, models.Model, error) {
	modelInfo, providerImpl, err := r.registry.LookupModel(req.Model)
	if err != nil {
		return nil, models.Model{}, err
	}

	sanitisedReq := req
	sanitisedReq.Model = modelInfo.ID
	sanitisedReq.ClientOptions.Headers = cloneHeaders(req.ClientOptions.Headers)

	start := time.Now()
	resp, err := providerImpl.Generate(ctx, sanitisedReq)
	if err != nil {
		r.logger.Warn("provider call failed",
			"provider", providerImpl.Name(),
			"model", modelInfo.ID,
			"kind", provider.Classify(err).String(),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, modelInfo, fmt.Errorf("provider %s generate: %w", providerImpl.Name(), err)
	}

	r.logger.Debug("provider call completed",
		"provider", providerImpl.Name(),
		"model", modelInfo.ID,
		"finish_reason", resp.FinishReason,
		"tool_calls", len(resp.ToolCalls),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, modelInfo, nil
}

// Models lists the models available for routing.
func (r *Router) Models() []models.Model {
	return r.registry.Models()
}

func cloneHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}
