package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker shared by a runtime's HTTP attempts.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	Timeout     time.Duration
}

// Breaker counts failed HTTP attempts to a provider. Once MaxFailures
// attempts fail in a row it opens, and further attempts fail immediately
// with gobreaker.ErrOpenState instead of reaching the provider.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker builds a breaker. A nil logger disables state-change logging.
func NewBreaker(cfg BreakerConfig, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "runtime"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: countsAsSuccess,
	})
	return &Breaker{cb: cb}
}

// countsAsSuccess keeps caller-side problems from tripping the breaker.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || callerError(err)
}

// State reports the breaker's current state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Do runs one attempt through the breaker. A nil Breaker runs fn directly.
func (b *Breaker) Do(fn func() error) error {
	if b == nil {
		return fn()
	}
	_, err := b.cb.Execute(func() (any, error) { return nil, fn() })
	return err
}

// shortCircuited reports whether err came from the breaker rather than the provider.
func shortCircuited(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// stopRetrying is returned when the breaker cuts a retry loop short.
func stopRetrying(err, lastErr error) error {
	if lastErr == nil {
		return err
	}
	return &breakerStop{err: err, last: lastErr}
}

type breakerStop struct {
	err, last error
}

func (e *breakerStop) Error() string { return e.err.Error() + " after: " + e.last.Error() }

func (e *breakerStop) Unwrap() []error { return []error{e.err, e.last} }
