// Package provider adapts vendor SDKs to the router's dispatch boundary.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hochfrequenz/twodo/internal/router"
	"github.com/rs/zerolog"
)

const (
	defaultMaxTokens   = 4000
	defaultTemperature = 0.7
)

// Adapter completes a prompt with one vendor's API
type Adapter interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// KeySource supplies API keys by provider name
type KeySource interface {
	APIKey(provider string) string
}

// Dispatcher routes a model to the adapter of its provider
type Dispatcher struct {
	adapters map[router.Provider]Adapter
	logger   zerolog.Logger
}

// NewDispatcher creates an empty Dispatcher
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		adapters: make(map[router.Provider]Adapter),
		logger:   logger.With().Str("component", "provider").Logger(),
	}
}

// FromKeys creates a Dispatcher with an adapter for every provider that has a key
func FromKeys(ctx context.Context, keys KeySource, logger zerolog.Logger) (*Dispatcher, error) {
	d := NewDispatcher(logger)
	for _, p := range router.AllProviders {
		key := keys.APIKey(string(p))
		if key == "" {
			continue
		}
		a, err := newAdapter(ctx, p, key)
		if err != nil {
			return nil, fmt.Errorf("initializing %s client: %w", p, err)
		}
		d.Register(p, a)
	}
	return d, nil
}

func newAdapter(ctx context.Context, p router.Provider, key string) (Adapter, error) {
	switch p {
	case router.ProviderOpenAI:
		return NewOpenAI(p, key, ""), nil
	case router.ProviderAnthropic:
		return NewAnthropic(key, ""), nil
	case router.ProviderGoogle:
		return NewGemini(ctx, key, "")
	default:
		base, ok := compatibleBaseURLs[p]
		if !ok {
			return nil, fmt.Errorf("unsupported provider %q", p)
		}
		return NewOpenAI(p, key, base), nil
	}
}

// Register installs the adapter for a provider
func (d *Dispatcher) Register(p router.Provider, a Adapter) {
	d.adapters[p] = a
}

// Providers returns the providers with a registered adapter in catalog order
func (d *Dispatcher) Providers() []router.Provider {
	var ps []router.Provider
	for _, p := range router.AllProviders {
		if _, ok := d.adapters[p]; ok {
			ps = append(ps, p)
		}
	}
	return ps
}

// Dispatch sends prompt to model. Errors are always *router.DispatchError.
func (d *Dispatcher) Dispatch(ctx context.Context, model router.Model, prompt string) (string, error) {
	a, ok := d.adapters[model.Provider]
	if !ok {
		return "", router.NewDispatchError(model.Provider, model.Name, 0,
			fmt.Errorf("no client for provider %q", model.Provider))
	}

	start := time.Now()
	text, err := a.Complete(ctx, model.Name, prompt)
	d.logger.Debug().
		Str("provider", string(model.Provider)).
		Str("model", model.Name).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("dispatch")

	if err != nil {
		var de *router.DispatchError
		if errors.As(err, &de) {
			return "", de
		}
		return "", router.NewDispatchError(model.Provider, model.Name, 0, err)
	}
	return text, nil
}
