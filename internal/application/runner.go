package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-baseline/infrastructure/baseline"
	"github.com/ahrav/go-baseline/infrastructure/middleware"
	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// RunResult is what one completed experiment run yields: the frozen
// specification, the final statistics snapshot, and, when a store is
// configured, the path the specification was persisted to.
type RunResult struct {
	// Specification is the immutable frozen snapshot.
	Specification *domain.Specification

	// Stats is the final aggregate snapshot the specification was built from.
	Stats domain.Stats

	// Path is where the specification was persisted, or "" without a store.
	Path string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStore configures specification persistence for the run.
func WithStore(store ports.SpecificationStore) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithObserver attaches a run observer. Multiple observers may be attached.
func WithObserver(observer ports.RunObserver) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, observer) }
}

// Runner orchestrates one experiment run: it pulls factor configurations,
// hands control to the sample executor, feeds outcomes into the aggregate
// and budget controller, and freezes the evidence into a specification
// exactly once at termination. A Runner is single-use; each run owns an
// independent aggregate, controller, and factor iterator.
type Runner struct {
	cfg      RunConfig
	registry *FactorRegistry
	executor ports.SampleExecutor

	store     ports.SpecificationStore
	observers []ports.RunObserver

	// generated guards exactly-once specification generation under
	// concurrent completion triggers.
	generated atomic.Bool
}

// NewRunner creates a runner for one experiment run. The configuration is
// validated immediately; resolution and iteration errors surface on Run,
// before any sample executes.
func NewRunner(cfg RunConfig, registry *FactorRegistry, executor ports.SampleExecutor, opts ...RunnerOption) (*Runner, error) {
	loader, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	if err := loader.Validate(&cfg); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: factor registry is required", domain.ErrInvalidConfiguration)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: sample executor is required", domain.ErrInvalidConfiguration)
	}

	r := &Runner{cfg: cfg, registry: registry, executor: executor}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes the experiment to completion or early termination and
// freezes the resulting evidence. Budget exhaustion with zero executed
// samples yields no specification and ErrNoSamplesExecuted. Sequential
// source exhaustion aborts the run with a SourceExhaustedError.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if !r.generated.CompareAndSwap(false, true) {
		return nil, domain.ErrSpecificationGenerated
	}

	// Factor-source resolution failures are configuration errors and
	// surface before any sample runs.
	source, err := r.registry.Resolve(r.cfg.FactorSource, r.cfg.DeclaringScope, r.cfg.FallbackScope)
	if err != nil {
		return nil, err
	}
	iterator, err := source.Iterator(r.cfg.Samples)
	if err != nil {
		return nil, err
	}

	aggregate := domain.NewResultAggregate(r.cfg.Samples)
	controller := middleware.NewRunController(r.cfg.Budget(), r.cfg.Pacing())
	goal := r.cfg.Goal.ToGoal()

	runErr := r.executeSamples(ctx, iterator, aggregate, controller, goal)

	// Mark normal completion if no earlier transition happened.
	if controller.Complete() {
		aggregate.MarkTerminated(domain.TerminationCompleted, "")
	}
	stats := aggregate.Snapshot()
	lastSample := time.Now()

	if stats.Termination != nil {
		r.notifyTerminated(ctx, *stats.Termination, stats)
	}

	if runErr != nil {
		return nil, runErr
	}
	if stats.Executed == 0 {
		// Nothing statistically meaningful to freeze.
		return nil, fmt.Errorf("use case %s: %w", r.cfg.UseCaseID, domain.ErrNoSamplesExecuted)
	}

	buildOpts := []baseline.BuildOption{baseline.WithFootprint(r.cfg.Footprint)}
	if r.cfg.ValidityDays > 0 {
		buildOpts = append(buildOpts, baseline.WithExpiration(r.cfg.ValidityDays, lastSample))
	}
	spec, err := baseline.Build(r.cfg.UseCaseID, stats, buildOpts...)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Specification: spec, Stats: stats}
	if r.store != nil {
		path, err := r.store.Save(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to persist specification: %w", err)
		}
		result.Path = path
	}
	return result, nil
}

// executeSamples drives the sample loop across one or more parallel slots.
// The aggregate, controller, and iterator are all safe under concurrent
// slots; no slot blocks another except via the explicit pacing delay.
func (r *Runner) executeSamples(
	ctx context.Context,
	iterator ports.FactorIterator,
	aggregate *domain.ResultAggregate,
	controller *middleware.RunController,
	goal domain.Goal,
) error {
	slots := r.cfg.Concurrency
	if slots < 1 {
		slots = 1
	}

	var stop atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < slots; i++ {
		g.Go(func() error {
			for !stop.Load() {
				if err := gctx.Err(); err != nil {
					aggregate.MarkTerminated(domain.TerminationCompleted,
						fmt.Sprintf("run cancelled after %d samples: %v", aggregate.Executed(), err))
					controller.Complete()
					return nil
				}

				if reason, ok := controller.CheckBefore(); !ok {
					aggregate.MarkTerminated(reason, r.terminationDetail(reason, aggregate, controller))
					stop.Store(true)
					return nil
				}
				if !iterator.HasNext() {
					return nil
				}

				controller.Pace(gctx)

				factors, err := iterator.Next()
				if errors.Is(err, domain.ErrIteratorExhausted) {
					return nil
				}
				if err != nil {
					// Sequential under-supply is a config mismatch, not truncation.
					stop.Store(true)
					return err
				}

				r.executeOne(gctx, factors, aggregate, controller)

				if goal.Evaluate(aggregate.Snapshot()) == domain.GoalMet {
					if controller.Complete() {
						aggregate.MarkTerminated(domain.TerminationCompleted,
							fmt.Sprintf("goal criteria met after %d samples", aggregate.Executed()))
					}
					stop.Store(true)
					return nil
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// executeOne runs a single sample and folds its outcome into the
// aggregate. Errors raised by the sampled operation are recorded as
// categorized failures and never abort the run.
func (r *Runner) executeOne(
	ctx context.Context,
	factors domain.FactorConfiguration,
	aggregate *domain.ResultAggregate,
	controller *middleware.RunController,
) {
	outcome, err := r.executor.ExecuteSample(ctx, factors)
	switch {
	case err != nil:
		aggregate.RecordException(err)
	case outcome.Success:
		aggregate.RecordSuccess(outcome)
	default:
		aggregate.RecordFailure(outcome, outcome.FailureCategory)
	}
	if err == nil {
		aggregate.RecordCriteria(outcome.Criteria)
		controller.AddTokens(outcome.Cost.Tokens)
	}

	for _, observer := range r.observers {
		observer.SampleRecorded(ctx, outcome, err)
	}
}

func (r *Runner) terminationDetail(
	reason domain.TerminationReason,
	aggregate *domain.ResultAggregate,
	controller *middleware.RunController,
) string {
	switch reason {
	case domain.TerminationTimeBudgetExhausted:
		return fmt.Sprintf("time budget of %dms exhausted after %d of %d samples",
			r.cfg.TimeBudgetMs, aggregate.Executed(), r.cfg.Samples)
	case domain.TerminationTokenBudgetExhausted:
		return fmt.Sprintf("token budget of %d exhausted after %d of %d samples (used %d)",
			r.cfg.TokenBudget, aggregate.Executed(), r.cfg.Samples, controller.TokensUsed())
	default:
		return ""
	}
}

func (r *Runner) notifyTerminated(ctx context.Context, termination domain.Termination, stats domain.Stats) {
	for _, observer := range r.observers {
		observer.RunTerminated(ctx, termination, stats)
	}
}
