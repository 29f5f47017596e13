// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the harness testable.
package ports

import (
	"context"

	"github.com/ahrav/go-baseline/internal/domain"
)

// FactorSource is a named provider of a sequence of factor configurations.
// A source is never empty once sampling begins; resolving an empty source
// is a reportable error, not a silent short run.
type FactorSource interface {
	// Name returns the source's registered name.
	Name() string

	// Identity returns a stable hex-encoded hash identifying this source.
	// Materializing sources derive it from their serialized values;
	// streaming sources derive it from their declaration path, because
	// their values are never fully materialized.
	Identity() (string, error)

	// Iterator returns an iterator producing configurations for the
	// requested number of samples. Construction fails for an empty source.
	Iterator(requested int) (FactorIterator, error)
}

// FactorIterator walks the configurations selected for one run.
// Implementations must be safe for concurrent Next calls, because the
// owning host may run sample slots in parallel.
type FactorIterator interface {
	// HasNext reports whether another configuration is available.
	HasNext() bool

	// Next returns the next configuration. Sequential iterators return a
	// SourceExhaustedError when supply runs out before the requested
	// count is reached.
	Next() (domain.FactorConfiguration, error)
}

// SampleExecutor is the collaborator boundary to the host test-runtime.
// The executor invokes the user-supplied sampled operation once and
// returns its recorded outcome, or an error if the operation raised one.
// Per-sample errors are recorded as categorized failures by the caller
// and never abort the run.
type SampleExecutor interface {
	ExecuteSample(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error)
}

// SampleExecutorFunc adapts a plain function to the SampleExecutor interface.
type SampleExecutorFunc func(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error)

// ExecuteSample invokes the wrapped function.
func (f SampleExecutorFunc) ExecuteSample(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
	return f(ctx, factors)
}

// SpecificationStore persists and reloads frozen specifications.
type SpecificationStore interface {
	// Save persists the specification and returns the path it was
	// written to. Filenames derive deterministically from the use-case
	// identifier so re-runs against an unchanged configuration overwrite
	// the same file.
	Save(ctx context.Context, spec *domain.Specification) (string, error)

	// Load reloads the specification for a use case, verifying its
	// content fingerprint when present. A fingerprint mismatch is a
	// hard validation error.
	Load(ctx context.Context, useCaseID string) (*domain.Specification, error)
}

// RunObserver provides observability hooks for run lifecycle events.
// Implementations can add tracing, metrics, and logging without coupling
// observability concerns to orchestration logic.
type RunObserver interface {
	// SampleRecorded is called after each sample's outcome is folded
	// into the aggregate.
	SampleRecorded(ctx context.Context, outcome domain.SampleOutcome, err error)

	// RunTerminated is called exactly once when the run reaches a
	// terminal state.
	RunTerminated(ctx context.Context, termination domain.Termination, stats domain.Stats)
}

// Criterion evaluates one named pass/fail check against a sample's output.
// Implementations must be stateless and safe for concurrent use.
type Criterion interface {
	// Name returns the criterion's unique name.
	Name() string

	// Evaluate checks the candidate output against the reference.
	Evaluate(ctx context.Context, candidate, reference string) (domain.CriterionResult, error)
}
