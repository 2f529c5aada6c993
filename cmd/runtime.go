package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/sheetloom-cli/internal/config"
	"github.com/KaramelBytes/sheetloom-cli/internal/suggest"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// buildRuntime resolves the provider and returns its runtime with a circuit
// breaker guarding each HTTP attempt.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions, log *zap.Logger) (ai.Runtime, string, error) {
	var rc ai.RuntimeConfig
	breaker := ai.BreakerConfig{}
	providerFlag := opts.ProviderFlag
	if cfg != nil {
		rc.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		rc.RetryMax = cfg.RetryMaxAttempts
		rc.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		rc.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		rc.APIKey = cfg.APIKey
		breaker.MaxFailures = uint32(cfg.BreakerMaxFailures)
		breaker.Timeout = time.Duration(cfg.BreakerTimeoutSec) * time.Second
		if strings.TrimSpace(providerFlag) == "" {
			providerFlag = cfg.DefaultProvider
		}
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		rc.APIKey = key
	}

	providerName := ai.ResolveProvider(providerFlag)
	if providerName == ai.ProviderOllama {
		rc.Host = strings.TrimSpace(opts.OllamaHost)
		if rc.Host == "" {
			rc.Host = os.Getenv("SHEETLOOM_OLLAMA_HOST")
		}
		if rc.Host == "" && cfg != nil {
			rc.Host = cfg.OllamaHost
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
		if v := os.Getenv("SHEETLOOM_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
	}

	breaker.Name = providerName
	rc.Breaker = ai.NewBreaker(breaker, log)
	client, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return "openai/gpt-4o-mini"
}

// runtimeHint turns a provider failure into a one-line suggestion for the user.
func runtimeHint(err error, providerName, model string) string {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "model calls paused after repeated failures"
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Sprintf("Ollama not reachable at %s; start it or set SHEETLOOM_OLLAMA_HOST / config 'ollama_host'", unreach.Host)
		}
		return "endpoint unreachable; check your network and provider settings"
	case errors.As(err, &authErr):
		return "authentication failed; set OPENROUTER_API_KEY or api_key in ~/.sheetloom/config.yaml"
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("rate limited; try again in ~%ds", int(rlErr.RetryAfter.Seconds()))
		}
		return "rate limited by provider"
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Sprintf("local model not available; install it with 'ollama pull %s'", model)
		}
		return fmt.Sprintf("model not found (%s)", model)
	case errors.As(err, &brErr):
		return "request rejected by provider; try a smaller max_tokens"
	case errors.As(err, &qErr):
		return "quota or billing issue; check your provider account"
	case errors.As(err, &sErr):
		return "provider error; retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return "model timed out"
	}
	return "model request failed"
}

// watchedGenerator records the last generation error so the CLI can explain a fallback.
type watchedGenerator struct {
	inner   suggest.TextGenerator
	lastErr error
}

func (w *watchedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := w.inner.Complete(ctx, prompt)
	w.lastErr = err
	return out, err
}
