// Package application wires run configuration, factor resolution, and
// orchestration for the empirical baseline harness.
package application

import (
	"strings"
	"sync"

	"github.com/ahrav/go-baseline/infrastructure/factors"
	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// FactorRegistry maps string identifiers to validated factor providers.
// It replaces lookup-by-name reflection with explicit registration:
// providers are checked when registered, not when first resolved.
// Registrations are keyed by "scope#name", where the scope is a dotted
// namespace such as "checkout.RefundFlow".
type FactorRegistry struct {
	// mu protects concurrent access to the sources map.
	mu sync.RWMutex

	// sources maps "scope#name" keys to constructed factor sources.
	sources map[string]ports.FactorSource
}

// NewFactorRegistry creates an empty registry.
func NewFactorRegistry() *FactorRegistry {
	return &FactorRegistry{sources: make(map[string]ports.FactorSource)}
}

// RegisterFactors registers a materializing provider under scope#name.
// The provider's configuration slice is lazily materialized once on first
// use and cached; it must not be empty when sampling begins.
func (r *FactorRegistry) RegisterFactors(scope, name string, provider factors.ProviderFunc) error {
	if err := validateSlot(scope, name); err != nil {
		return err
	}
	if provider == nil {
		return &domain.RegistrationError{Scope: scope, Name: name, Reason: "provider function is nil"}
	}

	source, err := factors.NewMaterializingSource(name, provider)
	if err != nil {
		return err
	}
	return r.put(scope, name, source)
}

// RegisterStream registers a streaming provider under scope#name. Streams
// are consumed sequentially, exactly once per element, and are never fully
// materialized.
func (r *FactorRegistry) RegisterStream(scope, name string, provider factors.StreamProviderFunc) error {
	if err := validateSlot(scope, name); err != nil {
		return err
	}
	if provider == nil {
		return &domain.RegistrationError{Scope: scope, Name: name, Reason: "provider function is nil"}
	}

	source, err := factors.NewStreamingSource(scope, name, provider)
	if err != nil {
		return err
	}
	return r.put(scope, name, source)
}

func (r *FactorRegistry) put(scope, name string, source ports.FactorSource) error {
	key := scope + "#" + name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[key]; exists {
		return &domain.RegistrationError{Scope: scope, Name: name, Reason: "already registered"}
	}
	r.sources[key] = source
	return nil
}

// Resolve locates a factor source by reference. Three reference forms are
// supported:
//
//   - a bare name, searched in the declaring scope and then the fallback
//     scope;
//   - "Scope#name", searched as a sibling of the declaring scope's
//     namespace and then of the fallback scope's namespace;
//   - a fully-qualified "dotted.scope#name", looked up directly.
//
// A miss returns a ResolutionError listing every location searched.
func (r *FactorRegistry) Resolve(reference, declaringScope, fallbackScope string) (ports.FactorSource, error) {
	candidates := candidateKeys(reference, declaringScope, fallbackScope)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range candidates {
		if source, ok := r.sources[key]; ok {
			return source, nil
		}
	}
	return nil, &domain.ResolutionError{Reference: reference, Searched: candidates}
}

// candidateKeys expands a reference into the ordered list of registry keys
// to probe, deduplicated while preserving order.
func candidateKeys(reference, declaringScope, fallbackScope string) []string {
	var raw []string
	scopePart, name, qualified := strings.Cut(reference, "#")

	switch {
	case !qualified:
		// Bare name: declaring scope first, then fallback.
		raw = append(raw, declaringScope+"#"+reference)
		if fallbackScope != "" {
			raw = append(raw, fallbackScope+"#"+reference)
		}

	case strings.Contains(scopePart, "."):
		// Fully qualified: direct lookup only.
		raw = append(raw, reference)

	default:
		// "Scope#name": resolve Scope as a sibling within the declaring
		// namespace, then the fallback namespace, then as a root scope.
		if ns := namespaceOf(declaringScope); ns != "" {
			raw = append(raw, ns+"."+scopePart+"#"+name)
		}
		if ns := namespaceOf(fallbackScope); ns != "" {
			raw = append(raw, ns+"."+scopePart+"#"+name)
		}
		raw = append(raw, reference)
	}

	seen := make(map[string]struct{}, len(raw))
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// namespaceOf returns the dotted namespace enclosing a scope, or "" for a
// root scope.
func namespaceOf(scope string) string {
	idx := strings.LastIndex(scope, ".")
	if idx < 0 {
		return ""
	}
	return scope[:idx]
}

func validateSlot(scope, name string) error {
	if scope == "" {
		return &domain.RegistrationError{Scope: scope, Name: name, Reason: "scope is empty"}
	}
	if name == "" {
		return &domain.RegistrationError{Scope: scope, Name: name, Reason: "name is empty"}
	}
	if strings.Contains(name, "#") {
		return &domain.RegistrationError{Scope: scope, Name: name, Reason: "name must not contain '#'"}
	}
	return nil
}
