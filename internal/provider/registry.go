package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"textgen-bridge/internal/models"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// ErrUnsupportedOperation indicates the provider cannot fulfill the requested action.
var ErrUnsupportedOperation = errors.New("unsupported provider operation")

// Provider is one text-generation backend behind the canonical request model.
// Generate performs at most one network call and never retries; failures are
// *ValidationError, *RequestError or *ResponseError.
type Provider interface {
	Name() string
	ListModels(ctx context.Context) ([]models.Model, error)
	Generate(ctx context.Context, req models.Request) (*models.Response, error)
}

type modelEntry struct {
	model    models.Model
	provider Provider
}

// Registry maintains a mapping of model IDs to providers.
type Registry struct {
	mu     sync.RWMutex
	models map[string]modelEntry
	byName map[string]Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]modelEntry),
		byName: make(map[string]Provider),
	}
}

// RegisterProvider adds p, its models and the given aliases. Registration
// is all-or-nothing: on any conflict the registry is left unchanged.
func (r *Registry) RegisterProvider(ctx context.Context, p Provider, aliases map[string]string) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}

	offered, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models for provider %q: %w", p.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}

	staged := make(map[string]modelEntry, len(offered)+len(aliases))
	for _, m := range offered {
		if _, taken := r.models[m.ID]; taken {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, m.ID)
		}
		if _, taken := staged[m.ID]; taken {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, m.ID)
		}
		staged[m.ID] = modelEntry{model: m, provider: p}
	}

	for alias, target := range aliases {
		if _, taken := r.models[alias]; taken {
			return fmt.Errorf("alias %q conflicts with existing model", alias)
		}
		if _, taken := staged[alias]; taken {
			return fmt.Errorf("alias %q conflicts with existing model", alias)
		}
		if _, ok := staged[target]; !ok {
			return fmt.Errorf("alias %q references model %q not served by provider %q", alias, target, p.Name())
		}
	}
	for alias, target := range aliases {
		staged[alias] = staged[target]
	}

	r.byName[p.Name()] = p
	for id, entry := range staged {
		r.models[id] = entry
	}
	return nil
}

// LookupModel returns the provider and metadata for a given model ID.
func (r *Registry) LookupModel(modelID string) (models.Model, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[modelID]
	if !ok {
		return models.Model{}, nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return entry.model, entry.provider, nil
}

// Models lists every registered model id, aliases excluded, sorted by id.
func (r *Registry) Models() []models.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Model, 0, len(r.models))
	for id, entry := range r.models {
		if id != entry.model.ID {
			continue
		}
		out = append(out, entry.model)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
