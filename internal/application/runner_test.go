package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-baseline/infrastructure/baseline"
	"github.com/ahrav/go-baseline/infrastructure/factors"
	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// recordingObserver captures run lifecycle notifications for assertions.
type recordingObserver struct {
	mu           sync.Mutex
	samples      int
	terminations []domain.Termination
}

func (o *recordingObserver) SampleRecorded(ctx context.Context, outcome domain.SampleOutcome, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples++
}

func (o *recordingObserver) RunTerminated(ctx context.Context, termination domain.Termination, stats domain.Stats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.terminations = append(o.terminations, termination)
}

func registryWithConfigs(t *testing.T, scope, name string, count int) *FactorRegistry {
	t.Helper()
	registry := NewFactorRegistry()
	err := registry.RegisterFactors(scope, name, func() ([]domain.FactorConfiguration, error) {
		configs := make([]domain.FactorConfiguration, count)
		for i := range configs {
			configs[i] = domain.NewFactorConfiguration(domain.FactorValue{Name: "index", Value: i})
		}
		return configs, nil
	})
	require.NoError(t, err)
	return registry
}

func alwaysSucceed(tokens int64) ports.SampleExecutorFunc {
	return func(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
		return domain.SampleOutcome{Success: true, Cost: domain.CostVector{Tokens: tokens}}, nil
	}
}

func TestRunnerHappyPath(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 3)
	observer := &recordingObserver{}

	var calls atomic.Int64
	executor := ports.SampleExecutorFunc(func(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
		n := calls.Add(1)
		if n%5 == 0 {
			return domain.SampleOutcome{FailureCategory: "wrong_answer"}, nil
		}
		return domain.SampleOutcome{Success: true, Cost: domain.CostVector{Tokens: 10}}, nil
	})

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        10,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
	}, registry, executor, WithObserver(observer))
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, result.Stats.Executed)
	assert.Equal(t, 8, result.Stats.Successes)
	assert.Equal(t, 2, result.Stats.Failures)
	require.NotNil(t, result.Stats.Termination)
	assert.Equal(t, domain.TerminationCompleted, result.Stats.Termination.Reason)

	require.NotNil(t, result.Specification)
	assert.Equal(t, "checkout-refund", result.Specification.UseCaseID)
	assert.InDelta(t, 0.8, result.Specification.Statistics.Observed, 1e-9)
	assert.Equal(t, result.Stats.CILower, result.Specification.Requirements.MinPassRate)
	assert.Empty(t, result.Path)

	assert.Equal(t, 10, observer.samples)
	require.Len(t, observer.terminations, 1)
	assert.Equal(t, domain.TerminationCompleted, observer.terminations[0].Reason)
}

func TestRunnerPersistsSpecification(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 2)
	store := baseline.NewFileStore(t.TempDir())

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        4,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
		ValidityDays:   30,
	}, registry, alwaysSucceed(5), WithStore(store))
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.Path)

	loaded, err := store.LoadFile(context.Background(), result.Path)
	require.NoError(t, err)
	assert.Equal(t, "checkout-refund", loaded.UseCaseID)
	assert.Equal(t, 4, loaded.Execution.SamplesExecuted)
	require.NotNil(t, loaded.Expiration)
	assert.Equal(t, 30, loaded.Expiration.ValidityDays)
	assert.NotEmpty(t, loaded.ContentFingerprint)
}

func TestRunnerExceptionsDoNotAbortTheRun(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 1)

	var calls atomic.Int64
	executor := ports.SampleExecutorFunc(func(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
		if calls.Add(1) == 2 {
			return domain.SampleOutcome{}, errors.New("model timeout")
		}
		return domain.SampleOutcome{Success: true}, nil
	})

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        5,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
	}, registry, executor)
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Stats.Executed)
	assert.Equal(t, 4, result.Stats.Successes)
	assert.Equal(t, 1, result.Stats.Failures)
	require.Len(t, result.Stats.FailureDistribution, 1)
	assert.Equal(t, "errorString", result.Stats.FailureDistribution[0].Category)
}

func TestRunnerTokenBudgetTermination(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 1)

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        100,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
		TokenBudget:    100,
	}, registry, alwaysSucceed(60))
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	// 60 tokens after sample one, 120 after sample two trips the ceiling.
	assert.Equal(t, 2, result.Stats.Executed)
	require.NotNil(t, result.Stats.Termination)
	assert.Equal(t, domain.TerminationTokenBudgetExhausted, result.Stats.Termination.Reason)
	assert.Contains(t, result.Stats.Termination.Details, "token budget of 100")

	// Partial evidence is still frozen.
	require.NotNil(t, result.Specification)
	assert.Equal(t, domain.TerminationTokenBudgetExhausted, result.Specification.Execution.TerminationReason)
	assert.Equal(t, 100, result.Specification.Execution.SamplesPlanned)
	assert.Equal(t, 2, result.Specification.Execution.SamplesExecuted)
}

func TestRunnerZeroSamplesYieldsNoSpecification(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 1)
	observer := &recordingObserver{}

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        10,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
	}, registry, alwaysSucceed(0), WithObserver(observer))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.Run(ctx)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNoSamplesExecuted)

	// The terminal notification still fires even without a specification.
	require.Len(t, observer.terminations, 1)
}

func TestRunnerGoalMetStopsEarly(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 1)

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        100,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
		Goal:           GoalConfig{MinSuccessRate: floatPtr(0.5)},
	}, registry, alwaysSucceed(0))
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, result.Stats.Executed, 100)
	require.NotNil(t, result.Stats.Termination)
	assert.Equal(t, domain.TerminationCompleted, result.Stats.Termination.Reason)
	assert.Contains(t, result.Stats.Termination.Details, "goal criteria met")
}

func TestRunnerIsSingleUse(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 1)

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        2,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
	}, registry, alwaysSucceed(0))
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrSpecificationGenerated)
}

func TestRunnerResolutionFailsBeforeSampling(t *testing.T) {
	registry := NewFactorRegistry()

	var calls atomic.Int64
	executor := ports.SampleExecutorFunc(func(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
		calls.Add(1)
		return domain.SampleOutcome{Success: true}, nil
	})

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        10,
		FactorSource:   "Missing",
		DeclaringScope: "suite.Checkout",
	}, registry, executor)
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Zero(t, calls.Load())
}

func TestRunnerSequentialExhaustionAbortsRun(t *testing.T) {
	registry := NewFactorRegistry()
	err := registry.RegisterStream("suite.Checkout", "Events", func() (factors.Stream, error) {
		i := 0
		return func() (domain.FactorConfiguration, bool) {
			if i >= 2 {
				return domain.FactorConfiguration{}, false
			}
			i++
			return domain.NewFactorConfiguration(domain.FactorValue{Name: "index", Value: i}), true
		}, nil
	})
	require.NoError(t, err)

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        5,
		FactorSource:   "Events",
		DeclaringScope: "suite.Checkout",
	}, registry, alwaysSucceed(0))
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	var exhausted *domain.SourceExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Requested)
	assert.Equal(t, 2, exhausted.Supplied)
}

func TestRunnerParallelSlotsExecuteEverySample(t *testing.T) {
	const samples = 200
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 7)

	var calls atomic.Int64
	executor := ports.SampleExecutorFunc(func(ctx context.Context, factors domain.FactorConfiguration) (domain.SampleOutcome, error) {
		calls.Add(1)
		return domain.SampleOutcome{Success: true, Cost: domain.CostVector{Tokens: 1}}, nil
	})

	runner, err := NewRunner(RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        samples,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
		Concurrency:    8,
	}, registry, executor)
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(samples), calls.Load())
	assert.Equal(t, samples, result.Stats.Executed)
	assert.Equal(t, int64(samples), result.Stats.Tokens)
}

func TestNewRunnerValidation(t *testing.T) {
	registry := registryWithConfigs(t, "suite.Checkout", "EdgeCases", 1)
	cfg := RunConfig{
		UseCaseID:      "checkout-refund",
		Samples:        1,
		FactorSource:   "EdgeCases",
		DeclaringScope: "suite.Checkout",
	}

	_, err := NewRunner(RunConfig{}, registry, alwaysSucceed(0))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewRunner(cfg, nil, alwaysSucceed(0))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewRunner(cfg, registry, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
