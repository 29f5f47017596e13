// Package samplers provides reference sample executors for the baseline
// harness, including an LLM-backed executor with pluggable provider
// adapters. These sit at the collaborator boundary: they invoke the
// operation under study once per sample and report a recorded outcome.
package samplers

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

// ClientConfig holds provider-agnostic client settings.
type ClientConfig struct {
	// APIKey authenticates against the provider.
	APIKey string

	// Model is the default model when a factor configuration names none.
	Model string

	// BaseURL optionally overrides the provider endpoint.
	BaseURL string

	// Timeout bounds individual provider requests. Zero uses the
	// provider default.
	Timeout time.Duration
}

// CompletionRequest is one provider-agnostic text completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int
}

// CompletionResponse carries the provider's response and token usage.
type CompletionResponse struct {
	Content   string
	TokensIn  int
	TokensOut int
}

// ProviderClient is a minimal provider-agnostic completion client.
// Implementations must be safe for concurrent use.
type ProviderClient interface {
	// Provider returns the provider's registered name.
	Provider() string

	// Complete performs one completion request.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// ProviderFactory constructs a provider client from configuration.
type ProviderFactory func(config ClientConfig) (ProviderClient, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ProviderFactory)
)

// RegisterProviderFactory registers a provider by name. Built-in providers
// register themselves in init; tests may register fakes.
func RegisterProviderFactory(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// NewProviderClient constructs a client for the named provider.
func NewProviderClient(name string, config ClientConfig) (ProviderClient, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return factory(config)
}

// defaultMaxTokens bounds completion length when a factor configuration
// sets none.
const defaultMaxTokens = 1024

// estimateTokens approximates token usage when the provider response
// omits usage metadata, using the common ~4 characters per token
// heuristic for English text.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return utf8.RuneCountInString(text)/4 + 1
}
