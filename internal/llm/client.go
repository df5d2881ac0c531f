// Resilient completion client: rate limiting, circuit breaking, and
// bounded retry around a single provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	maxAttempts  = 3
	retryBackoff = 1500 * time.Millisecond
)

// Completer is the narrow surface the simulation depends on.
type Completer interface {
	Complete(system, userPrompt string, maxTokens int) (string, error)
}

// Client wraps a provider with a per-minute rate limiter, a circuit
// breaker, and retry on transient failures. A nil Client is valid and
// reports itself disabled.
type Client struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
}

// NewClient builds a client over the provider. Returns nil when the
// provider is nil (LLM features disabled).
func NewClient(provider Provider, callsPerMinute int) *Client {
	if provider == nil {
		return nil
	}
	if callsPerMinute <= 0 {
		callsPerMinute = 20
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    provider.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("llm circuit breaker state change",
				"provider", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		provider: provider,
		breaker:  breaker,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(callsPerMinute)), 1),
	}
}

// Enabled returns true if the client can make calls.
func (c *Client) Enabled() bool {
	return c != nil && c.provider != nil
}

// Complete sends a prompt through the limiter and breaker, retrying
// transient failures with a fixed backoff. Permanent failures and an
// open breaker return immediately.
func (c *Client) Complete(system, userPrompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("LLM client not configured")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		out, err := c.breaker.Execute(func() (any, error) {
			return c.provider.Complete(system, userPrompt, maxTokens)
		})
		if err == nil {
			return out.(string), nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if !IsTransient(err) {
			break
		}
		if attempt < maxAttempts {
			slog.Warn("llm call failed, retrying",
				"provider", c.provider.Name(), "attempt", attempt, "error", err)
			time.Sleep(retryBackoff)
		}
	}
	return "", lastErr
}
