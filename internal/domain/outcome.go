// Package domain contains pure, dependency-free domain models and the
// statistics engine for the empirical baseline harness.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// FactorValue is a single named value within a factor configuration,
// such as model="gpt-4" or temperature=0.7.
type FactorValue struct {
	// Name identifies the factor dimension.
	Name string

	// Value holds the concrete value for this dimension.
	Value any
}

// FactorConfiguration is an ordered, named tuple of values representing one
// input variant used for one or more samples. It is immutable once produced;
// accessors return copies so callers cannot mutate shared configurations.
type FactorConfiguration struct {
	values []FactorValue
}

// NewFactorConfiguration creates an immutable configuration from the given
// values, preserving their order.
func NewFactorConfiguration(values ...FactorValue) FactorConfiguration {
	copied := make([]FactorValue, len(values))
	copy(copied, values)
	return FactorConfiguration{values: copied}
}

// Len returns the number of values in the configuration.
func (c FactorConfiguration) Len() int { return len(c.values) }

// Values returns a copy of the ordered values.
func (c FactorConfiguration) Values() []FactorValue {
	copied := make([]FactorValue, len(c.values))
	copy(copied, c.values)
	return copied
}

// Get returns the value for the named dimension and whether it exists.
func (c FactorConfiguration) Get(name string) (any, bool) {
	for _, v := range c.values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// GetString returns the value for the named dimension as a string.
// It returns false if the dimension is absent or not a string.
func (c FactorConfiguration) GetString(name string) (string, bool) {
	v, ok := c.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// String renders the configuration as "name=value, ..." for logging
// and error messages.
func (c FactorConfiguration) String() string {
	var b strings.Builder
	for i, v := range c.values {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", v.Name, v.Value)
	}
	return b.String()
}

// CostVector captures the resources consumed by a single sample execution.
type CostVector struct {
	// Elapsed is the wall-clock duration of the sample.
	Elapsed time.Duration

	// Tokens is the number of token units consumed, zero when the
	// sampled operation does not involve token-metered calls.
	Tokens int64
}

// CriterionResult is the outcome of evaluating one named criterion
// against a single sample.
type CriterionResult struct {
	// Name identifies the criterion.
	Name string

	// Passed reports whether the sample satisfied the criterion.
	Passed bool

	// Detail optionally explains the evaluation, e.g. a similarity score.
	Detail string
}

// SampleOutcome is the recorded result of one execution of the operation
// under study.
type SampleOutcome struct {
	// Success reports whether the sample met its overall pass condition.
	Success bool

	// FailureCategory optionally classifies a failed sample. Empty
	// categories collapse into the "unknown" bucket during aggregation.
	FailureCategory string

	// Criteria holds optional structured per-criterion results.
	Criteria []CriterionResult

	// Cost records the time and tokens consumed by this sample.
	Cost CostVector

	// Observations carries free-form fields captured during execution,
	// e.g. the raw model response or a truncated prompt.
	Observations map[string]string
}

// TerminationReason enumerates why an experiment run stopped.
type TerminationReason string

const (
	// TerminationCompleted indicates every planned sample executed,
	// or the goal criteria were met early.
	TerminationCompleted TerminationReason = "COMPLETED"

	// TerminationTimeBudgetExhausted indicates the run hit its time ceiling.
	TerminationTimeBudgetExhausted TerminationReason = "TIME_BUDGET_EXHAUSTED"

	// TerminationTokenBudgetExhausted indicates the run hit its token ceiling.
	TerminationTokenBudgetExhausted TerminationReason = "TOKEN_BUDGET_EXHAUSTED"
)

// Termination records why and with what detail a run stopped.
type Termination struct {
	// Reason is the terminal state the run reached.
	Reason TerminationReason

	// Details carries free-text context, e.g. "goal criteria met after 40 samples".
	Details string
}

// Budget defines optional resource ceilings for one experiment run.
// A zero value for either field means unlimited.
type Budget struct {
	// MaxDuration is the wall-clock ceiling for the whole run.
	MaxDuration time.Duration

	// MaxTokens is the cumulative token ceiling for the whole run.
	MaxTokens int64
}

// PacingPolicy configures the minimum delay enforced between consecutive
// sample executions, used to respect external rate limits. The delay is
// continuous across factor-configuration boundaries within one run.
// A zero MinDelay disables pacing.
type PacingPolicy struct {
	// MinDelay is the minimum gap between the starts of consecutive samples.
	MinDelay time.Duration
}
