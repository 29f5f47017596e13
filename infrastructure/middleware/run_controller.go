// Package middleware provides cross-cutting concerns for the baseline
// harness: budget enforcement, sample pacing, metrics, and tracing hooks
// kept out of the orchestration logic.
package middleware

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-baseline/internal/domain"
)

// RunState is the controller's position in the per-run state machine.
// RUNNING is the only non-terminal state.
type RunState int32

const (
	// StateRunning indicates the run may execute further samples.
	StateRunning RunState = iota

	// StateTimeExhausted indicates the time budget was hit.
	StateTimeExhausted

	// StateTokenExhausted indicates the token budget was hit.
	StateTokenExhausted

	// StateCompleted indicates the run finished normally.
	StateCompleted
)

// RunController tracks elapsed time and cumulative token cost for one run,
// decides termination against the configured budget, and enforces the
// minimum inter-sample delay. All methods are safe for concurrent use from
// multiple sample slots; the terminal transition happens exactly once even
// when several slots observe exhaustion simultaneously.
type RunController struct {
	budget  domain.Budget
	started time.Time

	// now is injectable for tests.
	now func() time.Time

	tokens atomic.Int64
	state  atomic.Int32

	// samples counts sample executions started, driving pacing skips for
	// the very first sample and run metrics.
	samples atomic.Int64

	// pacer spaces sample starts globally across configuration
	// boundaries. Burst 1 leaves the first sample unpaced. Nil when
	// pacing is disabled.
	pacer *rate.Limiter
}

// NewRunController creates a controller for a run starting now.
// Zero budget fields mean unlimited; a zero pacing delay disables pacing.
func NewRunController(budget domain.Budget, pacing domain.PacingPolicy) *RunController {
	c := &RunController{
		budget: budget,
		now:    time.Now,
	}
	c.started = c.now()
	if pacing.MinDelay > 0 {
		c.pacer = rate.NewLimiter(rate.Every(pacing.MinDelay), 1)
	}
	return c
}

// CheckBefore decides whether the next sample may run. When a budget
// ceiling has been reached it performs the terminal transition (first
// caller wins) and returns the termination reason with ok=false, meaning
// "skip remaining samples". While the run may continue it returns ok=true.
func (c *RunController) CheckBefore() (domain.TerminationReason, bool) {
	if s := RunState(c.state.Load()); s != StateRunning {
		return s.terminationReason(), false
	}

	if c.budget.MaxDuration > 0 && c.now().Sub(c.started) >= c.budget.MaxDuration {
		c.transition(StateTimeExhausted)
		return RunState(c.state.Load()).terminationReason(), false
	}

	if c.budget.MaxTokens > 0 && c.tokens.Load() >= c.budget.MaxTokens {
		c.transition(StateTokenExhausted)
		return RunState(c.state.Load()).terminationReason(), false
	}

	return "", true
}

// Pace blocks until the minimum inter-sample delay has elapsed. The very
// first sample in the run is never delayed, and the delay is continuous
// across configuration boundaries so external rate limits are respected
// globally. A context cancellation only shortens the wait; it never fails
// the run.
func (c *RunController) Pace(ctx context.Context) {
	c.samples.Add(1)
	if c.pacer == nil {
		return
	}
	// A cancelled wait returns early with an error; the budget check and
	// the caller's own context handling decide whether the run ends.
	_ = c.pacer.Wait(ctx)
}

// AddTokens records token cost consumed by a completed sample.
func (c *RunController) AddTokens(n int64) {
	if n > 0 {
		c.tokens.Add(n)
	}
}

// Complete transitions the run to COMPLETED. It returns true when this
// call performed the transition, false when the run already terminated.
func (c *RunController) Complete() bool { return c.transition(StateCompleted) }

// State returns the controller's current state.
func (c *RunController) State() RunState { return RunState(c.state.Load()) }

// Elapsed returns the wall-clock time since the run started.
func (c *RunController) Elapsed() time.Duration { return c.now().Sub(c.started) }

// TokensUsed returns the cumulative token cost recorded so far.
func (c *RunController) TokensUsed() int64 { return c.tokens.Load() }

// SamplesStarted returns the number of sample executions started.
func (c *RunController) SamplesStarted() int64 { return c.samples.Load() }

// transition performs the single allowed terminal transition via
// compare-and-set. Exactly one caller ever succeeds.
func (c *RunController) transition(to RunState) bool {
	return c.state.CompareAndSwap(int32(StateRunning), int32(to))
}

// terminationReason maps a terminal state to its reason. It must not be
// called for StateRunning.
func (s RunState) terminationReason() domain.TerminationReason {
	switch s {
	case StateTimeExhausted:
		return domain.TerminationTimeBudgetExhausted
	case StateTokenExhausted:
		return domain.TerminationTokenBudgetExhausted
	default:
		return domain.TerminationCompleted
	}
}
