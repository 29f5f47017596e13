package domain

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// UnknownFailureCategory is the bucket that failures without an explicit
// category collapse into.
const UnknownFailureCategory = "unknown"

// zCritical95 is the two-sided z value for a 95% normal-approximation
// confidence interval.
const zCritical95 = 1.96

// CategoryCount is one bucket of the failure-category histogram.
type CategoryCount struct {
	// Category names the failure bucket.
	Category string

	// Count is the number of failures recorded in this bucket.
	Count int
}

// CriterionRate summarizes the recorded evaluations for one named criterion.
type CriterionRate struct {
	// Name identifies the criterion.
	Name string

	// Passed is the number of passing evaluations.
	Passed int

	// Evaluated is the total number of evaluations.
	Evaluated int
}

// Rate returns the pass fraction, or 0 if the criterion was never evaluated.
func (c CriterionRate) Rate() float64 {
	if c.Evaluated == 0 {
		return 0
	}
	return float64(c.Passed) / float64(c.Evaluated)
}

// Stats is an immutable point-in-time view of a ResultAggregate, consumed
// by the goal evaluator, run metrics, and the specification builder.
type Stats struct {
	// Planned is the sample count the run was configured for.
	Planned int

	// Executed is the number of samples actually recorded.
	Executed int

	// Successes and Failures partition the executed samples.
	Successes int
	Failures  int

	// ObservedRate is successes / executed, 0 when nothing executed.
	ObservedRate float64

	// StandardError is sqrt(p(1-p)/n) for n >= 2, else 0.
	StandardError float64

	// CILower and CIUpper bound the 95% confidence interval, clamped to [0,1].
	CILower float64
	CIUpper float64

	// FailureDistribution lists failure buckets in insertion order.
	FailureDistribution []CategoryCount

	// CriteriaRates lists per-criterion tallies in insertion order.
	CriteriaRates []CriterionRate

	// Elapsed is the cumulative wall-clock cost across samples.
	Elapsed time.Duration

	// Tokens is the cumulative token cost across samples.
	Tokens int64

	// Termination is non-nil once the run has stopped.
	Termination *Termination
}

// AvgTimePerSample returns the mean sample duration, 0 when nothing executed.
func (s Stats) AvgTimePerSample() time.Duration {
	if s.Executed == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Executed)
}

// AvgTokensPerSample returns the mean token cost, 0 when nothing executed.
func (s Stats) AvgTokensPerSample() float64 {
	if s.Executed == 0 {
		return 0
	}
	return float64(s.Tokens) / float64(s.Executed)
}

// ResultAggregate is the mutable, append-only statistical accumulator for
// one experiment run. Record methods are O(1) and safe for concurrent use
// from multiple sample slots; derived statistics are computed on read so
// late mutations are always reflected. An aggregate is owned by exactly
// one run and never shared across runs.
type ResultAggregate struct {
	planned int

	mu        sync.Mutex
	successes int
	failures  int

	// categoryOrder preserves first-seen ordering of failure buckets.
	categoryOrder  []string
	categoryCounts map[string]int

	criterionOrder []string
	criteria       map[string]*criterionTally

	elapsed time.Duration
	tokens  int64

	termination *Termination
}

type criterionTally struct {
	passed    int
	evaluated int
}

// NewResultAggregate creates an empty aggregate for a run planned to
// execute the given number of samples.
func NewResultAggregate(plannedSamples int) *ResultAggregate {
	return &ResultAggregate{
		planned:        plannedSamples,
		categoryCounts: make(map[string]int),
		criteria:       make(map[string]*criterionTally),
	}
}

// RecordSuccess records one successful sample and its cost.
func (a *ResultAggregate) RecordSuccess(outcome SampleOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successes++
	a.addCostLocked(outcome.Cost)
}

// RecordFailure records one failed sample under the given category.
// An empty category collapses into the "unknown" bucket.
func (a *ResultAggregate) RecordFailure(outcome SampleOutcome, category string) {
	if category == "" {
		category = UnknownFailureCategory
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
	a.bumpCategoryLocked(category)
	a.addCostLocked(outcome.Cost)
}

// RecordException records one sample that raised an error, categorized by
// the concrete error kind name. The run is expected to continue; a single
// bad sample is evidence, not a crash.
func (a *ResultAggregate) RecordException(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
	a.bumpCategoryLocked(errorKindName(err))
}

// RecordCriteria folds a structured pass/fail vector into the running
// per-criterion tallies. Criteria are tracked in first-seen order.
func (a *ResultAggregate) RecordCriteria(results []CriterionResult) {
	if len(results) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range results {
		tally, ok := a.criteria[r.Name]
		if !ok {
			tally = &criterionTally{}
			a.criteria[r.Name] = tally
			a.criterionOrder = append(a.criterionOrder, r.Name)
		}
		tally.evaluated++
		if r.Passed {
			tally.passed++
		}
	}
}

// MarkTerminated sets the termination marker. Only the first call takes
// effect; it returns true when this call performed the transition.
func (a *ResultAggregate) MarkTerminated(reason TerminationReason, details string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.termination != nil {
		return false
	}
	a.termination = &Termination{Reason: reason, Details: details}
	return true
}

// Planned returns the configured sample count for this run.
func (a *ResultAggregate) Planned() int { return a.planned }

// Executed returns the number of samples recorded so far.
func (a *ResultAggregate) Executed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.successes + a.failures
}

// Successes returns the number of successful samples recorded so far.
func (a *ResultAggregate) Successes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.successes
}

// Failures returns the number of failed samples recorded so far.
func (a *ResultAggregate) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}

// TotalTokens returns the cumulative token cost recorded so far.
func (a *ResultAggregate) TotalTokens() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokens
}

// ObservedRate returns successes / executed, or 0 when nothing executed.
func (a *ResultAggregate) ObservedRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return observedRate(a.successes, a.successes+a.failures)
}

// StandardError returns sqrt(p(1-p)/n). With fewer than two samples the
// estimate is meaningless, so it returns 0.
func (a *ResultAggregate) StandardError() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return standardError(a.successes, a.successes+a.failures)
}

// ConfidenceInterval95 returns the normal-approximation 95% interval for
// the true success rate, clamped to [0,1]. With fewer than two samples the
// interval collapses to [p, p].
func (a *ResultAggregate) ConfidenceInterval95() (lower, upper float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return confidenceInterval95(a.successes, a.successes+a.failures)
}

// Snapshot returns an immutable view of the aggregate's current state.
func (a *ResultAggregate) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	executed := a.successes + a.failures
	lower, upper := confidenceInterval95(a.successes, executed)

	dist := make([]CategoryCount, 0, len(a.categoryOrder))
	for _, cat := range a.categoryOrder {
		dist = append(dist, CategoryCount{Category: cat, Count: a.categoryCounts[cat]})
	}

	rates := make([]CriterionRate, 0, len(a.criterionOrder))
	for _, name := range a.criterionOrder {
		t := a.criteria[name]
		rates = append(rates, CriterionRate{Name: name, Passed: t.passed, Evaluated: t.evaluated})
	}

	var term *Termination
	if a.termination != nil {
		copied := *a.termination
		term = &copied
	}

	return Stats{
		Planned:             a.planned,
		Executed:            executed,
		Successes:           a.successes,
		Failures:            a.failures,
		ObservedRate:        observedRate(a.successes, executed),
		StandardError:       standardError(a.successes, executed),
		CILower:             lower,
		CIUpper:             upper,
		FailureDistribution: dist,
		CriteriaRates:       rates,
		Elapsed:             a.elapsed,
		Tokens:              a.tokens,
		Termination:         term,
	}
}

// Termination returns a copy of the termination marker, or nil while the
// run is still in progress.
func (a *ResultAggregate) Termination() *Termination {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.termination == nil {
		return nil
	}
	copied := *a.termination
	return &copied
}

func (a *ResultAggregate) addCostLocked(cost CostVector) {
	a.elapsed += cost.Elapsed
	a.tokens += cost.Tokens
}

func (a *ResultAggregate) bumpCategoryLocked(category string) {
	if _, ok := a.categoryCounts[category]; !ok {
		a.categoryOrder = append(a.categoryOrder, category)
	}
	a.categoryCounts[category]++
}

func observedRate(successes, executed int) float64 {
	if executed == 0 {
		return 0
	}
	return float64(successes) / float64(executed)
}

func standardError(successes, executed int) float64 {
	if executed < 2 {
		return 0
	}
	p := float64(successes) / float64(executed)
	return math.Sqrt(p * (1 - p) / float64(executed))
}

func confidenceInterval95(successes, executed int) (lower, upper float64) {
	p := observedRate(successes, executed)
	se := standardError(successes, executed)
	lower = math.Max(0, p-zCritical95*se)
	upper = math.Min(1, p+zCritical95*se)
	return lower, upper
}

// errorKindName reduces an error's concrete type to a short bucket name,
// e.g. *fs.PathError -> "PathError".
func errorKindName(err error) string {
	if err == nil {
		return UnknownFailureCategory
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return UnknownFailureCategory
	}
	return name
}
