// Package factors provides the factor-source implementations used to select
// which input configuration each sample consumes. Two consumption models are
// supported: materializing sources cache their full configuration sequence
// and cycle over it with wraparound, while streaming sources consume a
// single-pass sequence exactly once per element.
package factors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.FactorSource = (*MaterializingSource)(nil)

// ProviderFunc produces the full configuration sequence for a
// materializing source. It is invoked at most once per source; the result
// is cached for the lifetime of the source.
type ProviderFunc func() ([]domain.FactorConfiguration, error)

// MaterializingSource caches a provider's full configuration sequence in
// memory and serves cycling iterators over it. Materialization is lazy and
// happens exactly once, even under concurrent first access. Its identity
// hash derives from the serialized configuration values, so reusing the
// same configurations yields a stable identity.
type MaterializingSource struct {
	name     string
	provider ProviderFunc

	// once guards lazy materialization; concurrent first access must not
	// race-materialize the source twice.
	once    sync.Once
	configs []domain.FactorConfiguration
	err     error

	identityOnce sync.Once
	identity     string
}

// NewMaterializingSource creates a materializing source backed by the given
// provider. The provider is validated now but not invoked until first use.
func NewMaterializingSource(name string, provider ProviderFunc) (*MaterializingSource, error) {
	if name == "" {
		return nil, fmt.Errorf("materializing source: %w: name is empty", domain.ErrInvalidConfiguration)
	}
	if provider == nil {
		return nil, fmt.Errorf("materializing source %s: %w: provider is nil", name, domain.ErrInvalidConfiguration)
	}
	return &MaterializingSource{name: name, provider: provider}, nil
}

// Name returns the source's registered name.
func (s *MaterializingSource) Name() string { return s.name }

// materialize invokes the provider once and caches its output.
func (s *MaterializingSource) materialize() error {
	s.once.Do(func() {
		configs, err := s.provider()
		if err != nil {
			s.err = fmt.Errorf("factor source %s: provider failed: %w", s.name, err)
			return
		}
		if len(configs) == 0 {
			s.err = fmt.Errorf("factor source %s: %w", s.name, domain.ErrEmptyFactorSource)
			return
		}
		s.configs = configs
	})
	return s.err
}

// Identity returns a hex-encoded SHA-256 hash over the serialized
// configuration values, stable across runs that reuse the same values.
func (s *MaterializingSource) Identity() (string, error) {
	if err := s.materialize(); err != nil {
		return "", err
	}
	s.identityOnce.Do(func() {
		var b strings.Builder
		for _, c := range s.configs {
			b.WriteString(c.String())
			b.WriteByte('\n')
		}
		sum := sha256.Sum256([]byte(b.String()))
		s.identity = hex.EncodeToString(sum[:])
	})
	return s.identity, nil
}

// FactorCount returns the number of distinct configurations in the source.
func (s *MaterializingSource) FactorCount() (int, error) {
	if err := s.materialize(); err != nil {
		return 0, err
	}
	return len(s.configs), nil
}

// Iterator returns a cycling iterator for the requested sample count.
// It fails if the source materializes to zero configurations.
func (s *MaterializingSource) Iterator(requested int) (ports.FactorIterator, error) {
	if err := s.materialize(); err != nil {
		return nil, err
	}
	return NewCyclingIterator(s.configs, requested)
}

// CyclingIterator walks a fixed configuration set with wraparound: sample
// index i (0-based) consumes configuration i mod N. It is defined for any
// requested count S >= 0, including S > N (wraps) and S < N (partial pass),
// and is safe for concurrent Next calls.
type CyclingIterator struct {
	configs   []domain.FactorConfiguration
	requested int

	// next is the monotonically increasing 0-based sample index.
	next atomic.Int64
}

// NewCyclingIterator creates a cycling iterator over the given
// configurations. Construction fails when the set is empty or the
// requested count is negative.
func NewCyclingIterator(configs []domain.FactorConfiguration, requested int) (*CyclingIterator, error) {
	if len(configs) == 0 {
		return nil, domain.ErrEmptyFactorSource
	}
	if requested < 0 {
		return nil, fmt.Errorf("%w: requested sample count %d is negative", domain.ErrInvalidConfiguration, requested)
	}
	return &CyclingIterator{configs: configs, requested: requested}, nil
}

// HasNext reports whether another sample index remains.
func (it *CyclingIterator) HasNext() bool {
	return it.next.Load() < int64(it.requested)
}

// Next returns the configuration for the next sample index.
func (it *CyclingIterator) Next() (domain.FactorConfiguration, error) {
	i := it.next.Add(1) - 1
	if i >= int64(it.requested) {
		return domain.FactorConfiguration{}, domain.ErrIteratorExhausted
	}
	return it.configs[int(i)%len(it.configs)], nil
}

// FactorCount returns the number of distinct configurations. It never
// changes across iteration.
func (it *CyclingIterator) FactorCount() int { return len(it.configs) }

// ApproximateUsagePerFactor returns how often each configuration will be
// consumed across the full run, rounded up: ceil(requested / N).
func (it *CyclingIterator) ApproximateUsagePerFactor() int {
	n := len(it.configs)
	return (it.requested + n - 1) / n
}
