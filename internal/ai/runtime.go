package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Runtime is implemented by text-generation backends such as OpenRouter
// and a local Ollama daemon.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// StreamRuntime is an optional extension that supports streaming output.
// Implementors should invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// ErrUnknownProvider is returned by NewRuntime for names nothing registered.
var ErrUnknownProvider = errors.New("unknown provider")

// RuntimeConfig carries the knobs shared by runtimes. Zero fields take the
// provider's defaults.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpenRouter
	APIKey string
	// Ollama
	Host string
	// Breaker, when set, guards every HTTP attempt. It is never defaulted.
	Breaker *Breaker
}

func (c RuntimeConfig) fill(d RuntimeConfig) RuntimeConfig {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.RetryMax <= 0 {
		c.RetryMax = d.RetryMax
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Host == "" {
		c.Host = d.Host
	}
	return c
}

// RuntimeFactory builds a Runtime from a config with defaults applied.
type RuntimeFactory func(RuntimeConfig) Runtime

type providerEntry struct {
	defaults RuntimeConfig
	build    RuntimeFactory
}

var providers = map[string]providerEntry{}

// RegisterRuntime makes a provider available to NewRuntime.
func RegisterRuntime(name string, defaults RuntimeConfig, f RuntimeFactory) {
	providers[name] = providerEntry{defaults: defaults, build: f}
}

// ResolveProvider maps a user-facing provider name or vendor alias to a
// registered provider. Hosted vendors route through OpenRouter and "local"
// means Ollama.
func ResolveProvider(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "openai", "anthropic", "google", "gemini", "meta", "llama":
		return ProviderOpenRouter
	case "local":
		return ProviderOllama
	default:
		return n
	}
}

// NewRuntime builds the runtime registered under name.
func NewRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	p, ok := providers[ResolveProvider(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p.build(cfg.fill(p.defaults)), nil
}

func init() {
	RegisterRuntime(ProviderOpenRouter, RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}, func(c RuntimeConfig) Runtime {
		return NewClient(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay).WithBreaker(c.Breaker)
	})
	RegisterRuntime(ProviderOllama, RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    time.Second,
		Host:        "http://127.0.0.1:11434",
	}, func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay).WithBreaker(c.Breaker)
	})
}
