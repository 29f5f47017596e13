package domain

import "time"

// GoalStatus is the result of evaluating goal criteria against a snapshot.
type GoalStatus int

const (
	// GoalNone indicates no goal criteria are configured; the evaluator
	// never signals early success in this state.
	GoalNone GoalStatus = iota

	// GoalNotMet indicates at least one configured criterion does not hold.
	GoalNotMet

	// GoalMet indicates every configured criterion holds.
	GoalMet
)

// String returns the human-readable name of the status.
func (s GoalStatus) String() string {
	switch s {
	case GoalNone:
		return "no goal"
	case GoalNotMet:
		return "not met"
	case GoalMet:
		return "met"
	default:
		return "unknown"
	}
}

// Goal is a stateless predicate over aggregate state combining zero or
// more independent criteria. All configured criteria must hold for the
// goal to be met. Nil fields are unconfigured.
type Goal struct {
	// MinSuccessRate is the minimum observed success rate, in [0,1].
	MinSuccessRate *float64

	// MaxAvgSampleTime is the maximum mean wall-clock time per sample.
	MaxAvgSampleTime *time.Duration

	// MaxAvgTokensPerSample is the maximum mean token cost per sample.
	MaxAvgTokensPerSample *float64
}

// Configured reports whether any criterion is set.
func (g Goal) Configured() bool {
	return g.MinSuccessRate != nil || g.MaxAvgSampleTime != nil || g.MaxAvgTokensPerSample != nil
}

// Evaluate checks every configured criterion against the snapshot.
// With no criteria configured it returns GoalNone. A snapshot with zero
// executed samples never meets a configured goal.
func (g Goal) Evaluate(stats Stats) GoalStatus {
	if !g.Configured() {
		return GoalNone
	}
	if stats.Executed == 0 {
		return GoalNotMet
	}

	if g.MinSuccessRate != nil && stats.ObservedRate < *g.MinSuccessRate {
		return GoalNotMet
	}
	if g.MaxAvgSampleTime != nil && stats.AvgTimePerSample() > *g.MaxAvgSampleTime {
		return GoalNotMet
	}
	if g.MaxAvgTokensPerSample != nil && stats.AvgTokensPerSample() > *g.MaxAvgTokensPerSample {
		return GoalNotMet
	}
	return GoalMet
}
