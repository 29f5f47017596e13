package factors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.FactorSource = (*StreamingSource)(nil)

// Stream is a single-pass pull over factor configurations. Each call
// returns the next configuration, or ok=false once the supply is drained.
type Stream func() (domain.FactorConfiguration, bool)

// StreamProviderFunc produces a fresh single-pass stream. It is invoked
// once per iterator, so unbounded or generative sources are never fully
// materialized.
type StreamProviderFunc func() (Stream, error)

// StreamingSource serves sequential, consume-exactly-once iterators over a
// lazily produced stream. Its identity hash derives from the declaration
// path (scope + name) rather than the values, because the values are never
// fully materialized.
type StreamingSource struct {
	scope    string
	name     string
	provider StreamProviderFunc
}

// NewStreamingSource creates a streaming source declared at the given
// scope and name. The provider is validated now but not invoked until an
// iterator is built.
func NewStreamingSource(scope, name string, provider StreamProviderFunc) (*StreamingSource, error) {
	if name == "" {
		return nil, fmt.Errorf("streaming source: %w: name is empty", domain.ErrInvalidConfiguration)
	}
	if provider == nil {
		return nil, fmt.Errorf("streaming source %s: %w: provider is nil", name, domain.ErrInvalidConfiguration)
	}
	return &StreamingSource{scope: scope, name: name, provider: provider}, nil
}

// Name returns the source's registered name.
func (s *StreamingSource) Name() string { return s.name }

// Identity returns a hex-encoded SHA-256 hash over the declaration path.
func (s *StreamingSource) Identity() (string, error) {
	sum := sha256.Sum256([]byte(s.scope + "#" + s.name))
	return hex.EncodeToString(sum[:]), nil
}

// Iterator returns a sequential iterator for the requested sample count.
// The first element is prefetched so an empty stream is rejected before
// sampling begins rather than mid-run.
func (s *StreamingSource) Iterator(requested int) (ports.FactorIterator, error) {
	if requested < 0 {
		return nil, fmt.Errorf("%w: requested sample count %d is negative", domain.ErrInvalidConfiguration, requested)
	}

	stream, err := s.provider()
	if err != nil {
		return nil, fmt.Errorf("factor source %s: provider failed: %w", s.name, err)
	}
	if stream == nil {
		return nil, fmt.Errorf("factor source %s: %w: provider returned nil stream", s.name, domain.ErrInvalidConfiguration)
	}

	it := &SequentialIterator{source: s.name, stream: stream, requested: requested}
	if requested > 0 {
		first, ok := stream()
		if !ok {
			return nil, fmt.Errorf("factor source %s: %w", s.name, domain.ErrEmptyFactorSource)
		}
		it.buffered = &first
	}
	return it, nil
}

// SequentialIterator consumes an underlying single-pass stream exactly once
// per Next call. Exhaustion of the stream before the requested count is a
// distinguishable SourceExhaustedError, never a silent truncation. It is
// safe for concurrent Next calls.
type SequentialIterator struct {
	source    string
	stream    Stream
	requested int

	mu       sync.Mutex
	buffered *domain.FactorConfiguration
	produced int
	failed   bool
}

// HasNext reports whether another configuration will be produced. It turns
// false once the requested count has been reached or the underlying supply
// proved insufficient.
func (it *SequentialIterator) HasNext() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return !it.failed && it.produced < it.requested
}

// Next returns the next configuration from the stream. When the stream
// drains before the requested count is reached it returns a
// SourceExhaustedError identifying the under-populated source.
func (it *SequentialIterator) Next() (domain.FactorConfiguration, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.failed {
		return domain.FactorConfiguration{}, &domain.SourceExhaustedError{
			Source: it.source, Requested: it.requested, Supplied: it.produced,
		}
	}
	if it.produced >= it.requested {
		return domain.FactorConfiguration{}, domain.ErrIteratorExhausted
	}

	if it.buffered != nil {
		next := *it.buffered
		it.buffered = nil
		it.produced++
		return next, nil
	}

	next, ok := it.stream()
	if !ok {
		it.failed = true
		return domain.FactorConfiguration{}, &domain.SourceExhaustedError{
			Source: it.source, Requested: it.requested, Supplied: it.produced,
		}
	}
	it.produced++
	return next, nil
}
