package samplers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.SampleExecutor = (*LLMExecutor)(nil)

// Factor dimension names the executor reads from each configuration.
const (
	FactorProvider    = "provider"
	FactorModel       = "model"
	FactorPrompt      = "prompt"
	FactorSystem      = "system"
	FactorTemperature = "temperature"
	FactorMaxTokens   = "max_tokens"
	FactorReference   = "reference"
)

// maxObservedResponse bounds the response excerpt stored on each outcome.
const maxObservedResponse = 512

// LLMExecutor is a SampleExecutor that runs one LLM completion per sample
// and scores it against the configured criteria. Each factor configuration
// selects the provider, model, prompt, and expected reference output for
// that sample.
//
// A sample succeeds when every criterion passes. With no criteria
// configured, any non-empty completion counts as success. Provider errors
// surface to the caller, which records them as exceptions without
// aborting the run.
type LLMExecutor struct {
	clients         map[string]ProviderClient
	defaultProvider string
	criteria        []ports.Criterion
}

// ExecutorOption configures an LLMExecutor.
type ExecutorOption func(*LLMExecutor)

// WithCriteria sets the criteria evaluated against each completion.
func WithCriteria(criteria ...ports.Criterion) ExecutorOption {
	return func(e *LLMExecutor) { e.criteria = append(e.criteria, criteria...) }
}

// NewLLMExecutor creates an executor over the given provider clients.
// The default provider is used when a factor configuration names none;
// it must be one of the supplied clients.
func NewLLMExecutor(clients []ProviderClient, defaultProvider string, opts ...ExecutorOption) (*LLMExecutor, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: at least one provider client is required", domain.ErrInvalidConfiguration)
	}

	byName := make(map[string]ProviderClient, len(clients))
	for _, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("%w: nil provider client", domain.ErrInvalidConfiguration)
		}
		if _, dup := byName[c.Provider()]; dup {
			return nil, fmt.Errorf("%w: duplicate provider client %q", domain.ErrInvalidConfiguration, c.Provider())
		}
		byName[c.Provider()] = c
	}

	if defaultProvider == "" {
		defaultProvider = clients[0].Provider()
	}
	if _, ok := byName[defaultProvider]; !ok {
		return nil, fmt.Errorf("%w: default provider %q has no client", domain.ErrInvalidConfiguration, defaultProvider)
	}

	e := &LLMExecutor{clients: byName, defaultProvider: defaultProvider}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExecuteSample runs one completion for the given factor configuration
// and evaluates it against the executor's criteria.
func (e *LLMExecutor) ExecuteSample(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
	req, client, err := e.buildRequest(factors)
	if err != nil {
		return domain.SampleOutcome{}, err
	}

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)

	outcome := domain.SampleOutcome{
		Cost: domain.CostVector{
			Elapsed: elapsed,
			Tokens:  int64(resp.TokensIn + resp.TokensOut),
		},
	}
	if err != nil {
		return outcome, err
	}

	outcome.Observations = map[string]string{
		"provider": client.Provider(),
		"model":    req.Model,
		"response": truncate(resp.Content, maxObservedResponse),
	}

	reference, _ := factors.GetString(FactorReference)
	if len(e.criteria) == 0 {
		outcome.Success = resp.Content != ""
		if !outcome.Success {
			outcome.FailureCategory = "empty_response"
		}
		return outcome, nil
	}

	outcome.Success = true
	for _, criterion := range e.criteria {
		result, evalErr := criterion.Evaluate(ctx, resp.Content, reference)
		if evalErr != nil {
			return outcome, fmt.Errorf("criterion %q: %w", criterion.Name(), evalErr)
		}
		outcome.Criteria = append(outcome.Criteria, result)
		if !result.Passed {
			outcome.Success = false
			if outcome.FailureCategory == "" {
				outcome.FailureCategory = result.Name
			}
		}
	}
	return outcome, nil
}

// buildRequest assembles the completion request from a factor
// configuration and selects the provider client to serve it.
func (e *LLMExecutor) buildRequest(factors domain.FactorConfiguration) (CompletionRequest, ProviderClient, error) {
	prompt, ok := factors.GetString(FactorPrompt)
	if !ok || prompt == "" {
		return CompletionRequest{}, nil, fmt.Errorf("%w: factor configuration has no %q value", domain.ErrInvalidConfiguration, FactorPrompt)
	}

	providerName, ok := factors.GetString(FactorProvider)
	if !ok || providerName == "" {
		providerName = e.defaultProvider
	}
	client, ok := e.clients[providerName]
	if !ok {
		return CompletionRequest{}, nil, fmt.Errorf("%w: no client for provider %q", domain.ErrInvalidConfiguration, providerName)
	}

	req := CompletionRequest{Prompt: prompt}
	if model, ok := factors.GetString(FactorModel); ok {
		req.Model = model
	}
	if system, ok := factors.GetString(FactorSystem); ok {
		req.System = system
	}
	if temp, ok := factorFloat(factors, FactorTemperature); ok {
		req.Temperature = &temp
	}
	if maxTokens, ok := factorInt(factors, FactorMaxTokens); ok {
		req.MaxTokens = maxTokens
	}
	return req, client, nil
}

// factorFloat reads a numeric factor value as float64, tolerating the
// numeric types a YAML or literal declaration commonly produces.
func factorFloat(factors domain.FactorConfiguration, name string) (float64, bool) {
	v, ok := factors.Get(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// factorInt reads a numeric factor value as int.
func factorInt(factors domain.FactorConfiguration, name string) (int, bool) {
	v, ok := factors.Get(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// truncate shortens s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n] + "..."
}

// ErrNoProviders reports that no provider clients could be constructed
// from the environment, used by callers that build executors from
// ambient API keys.
var ErrNoProviders = errors.New("no provider clients available")

// ClientsFromKeys builds clients for each provider whose API key is
// non-empty, in a stable order. Returns ErrNoProviders when no key is set.
func ClientsFromKeys(openaiKey, anthropicKey, googleKey string) ([]ProviderClient, error) {
	type keyed struct {
		name string
		key  string
	}
	var clients []ProviderClient
	for _, k := range []keyed{
		{"openai", openaiKey},
		{"anthropic", anthropicKey},
		{"google", googleKey},
	} {
		if k.key == "" {
			continue
		}
		client, err := NewProviderClient(k.name, ClientConfig{APIKey: k.key})
		if err != nil {
			return nil, fmt.Errorf("build %s client: %w", k.name, err)
		}
		clients = append(clients, client)
	}
	if len(clients) == 0 {
		return nil, ErrNoProviders
	}
	return clients, nil
}
