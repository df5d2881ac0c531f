// Package llm provides chat-completion providers and the resilient
// client the simulation reasons through.
package llm

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Provider is a single chat-completion backend.
type Provider interface {
	Name() string
	Complete(system, user string, maxTokens int) (string, error)
}

// ProviderConfig selects and configures a backend.
type ProviderConfig struct {
	Name    string // "anthropic" or "openai"
	APIKey  string
	Model   string
	BaseURL string // openai-compatible endpoints only
}

// NewProvider builds a provider from config. Returns nil (LLM features
// disabled) when no API key is configured for the selected backend.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case "anthropic", "":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return newAnthropicProvider(cfg.APIKey, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, nil
		}
		return newOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Name)
	}
}

// apiError is a non-2xx response from a provider.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.status, e.body)
}

// transient reports whether the status is worth retrying.
func (e *apiError) transient() bool {
	switch e.status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529: // anthropic overloaded
		return true
	}
	return false
}

// IsTransient reports whether an error is a retryable provider or
// network failure as opposed to a permanent one (bad request, auth).
func IsTransient(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.transient()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
