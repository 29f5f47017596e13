package domain

import "time"

// SpecSchemaVersion is the current schema version written into persisted
// specifications.
const SpecSchemaVersion = "1.0.0"

// ExecutionSummary describes how a run proceeded and why it stopped.
type ExecutionSummary struct {
	// SamplesPlanned is the sample count the run was configured for.
	SamplesPlanned int

	// SamplesExecuted is the number of samples actually recorded.
	SamplesExecuted int

	// TerminationReason is the terminal state the run reached.
	TerminationReason TerminationReason

	// TerminationDetails carries free-text context for the termination.
	TerminationDetails string
}

// StatisticsSummary freezes the derived statistics of a completed run.
type StatisticsSummary struct {
	// Observed is the measured success rate.
	Observed float64

	// StandardError is the standard error of the observed rate.
	StandardError float64

	// CILower and CIUpper bound the 95% confidence interval.
	CILower float64
	CIUpper float64

	// Successes and Failures partition the executed samples.
	Successes int
	Failures  int

	// FailureDistribution lists failure buckets in insertion order.
	FailureDistribution []CategoryCount

	// CriteriaPassRates lists per-criterion tallies in insertion order.
	CriteriaPassRates []CriterionRate
}

// CostSummary freezes the resource consumption of a completed run.
type CostSummary struct {
	// ElapsedMs is the cumulative sample wall-clock time in milliseconds.
	ElapsedMs int64

	// AvgTimePerSampleMs is the mean sample duration in milliseconds.
	AvgTimePerSampleMs float64

	// TotalTokens is the cumulative token cost.
	TotalTokens int64

	// AvgTokensPerSample is the mean token cost per sample.
	AvgTokensPerSample float64
}

// Requirements holds the pass/fail thresholds derived from the statistics
// for judging future probabilistic test runs.
type Requirements struct {
	// MinPassRate is the minimum success rate a future run must observe.
	// It defaults to the 95% CI lower bound: the harness is 95% confident
	// the true rate is at least this.
	MinPassRate float64
}

// Specification is the immutable, durable snapshot of statistical evidence
// frozen from a completed or terminated run. It is created exactly once at
// run completion and never mutated afterward.
type Specification struct {
	// UseCaseID identifies the operation under study.
	UseCaseID string

	// GeneratedAt is when the specification was frozen.
	GeneratedAt time.Time

	// SchemaVersion is the persisted schema version.
	SchemaVersion string

	// Execution summarizes the run that produced this specification.
	Execution ExecutionSummary

	// Statistics summarizes the frozen statistical evidence.
	Statistics StatisticsSummary

	// Cost summarizes the resources the run consumed.
	Cost CostSummary

	// Requirements holds the derived pass thresholds.
	Requirements Requirements

	// Expiration optionally bounds the validity of this evidence in time.
	// Nil means the specification never expires.
	Expiration *ExpirationPolicy

	// Footprint optionally carries covariate metadata (e.g. model version,
	// prompt hash) describing the configuration the evidence was collected
	// under. Used for covariate-aware file naming.
	Footprint map[string]string

	// ContentFingerprint is the hex-encoded hash computed over the
	// serialized specification, excluding this field. Empty when
	// fingerprinting is disabled.
	ContentFingerprint string
}
