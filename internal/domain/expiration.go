package domain

import "time"

// ExpirationState is the computed validity of a specification at a given
// evaluation instant. It is never stored: "expired" is a function of
// wall-clock time at evaluation, not at creation.
type ExpirationState int

const (
	// NoExpiration indicates the specification carries no validity window.
	NoExpiration ExpirationState = iota

	// ExpirationValid indicates more than the warning fraction of the
	// validity window remains.
	ExpirationValid

	// ExpiringSoon indicates the remaining validity has dropped to the
	// warning fraction of the window.
	ExpiringSoon

	// ExpiringImminently indicates the remaining validity has dropped to
	// the imminent fraction of the window.
	ExpiringImminently

	// Expired indicates the validity window has fully elapsed.
	Expired
)

// String returns the human-readable name of the state.
func (s ExpirationState) String() string {
	switch s {
	case NoExpiration:
		return "no expiration"
	case ExpirationValid:
		return "valid"
	case ExpiringSoon:
		return "expiring soon"
	case ExpiringImminently:
		return "expiring imminently"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Warning thresholds are fractions of the validity window rather than
// absolute durations, so a 7-day and a 90-day policy warn proportionally.
const (
	expiringSoonFraction       = 0.25
	expiringImminentlyFraction = 0.10
)

// ExpirationPolicy bounds the validity of a specification relative to when
// its underlying samples were collected.
type ExpirationPolicy struct {
	// ValidityDays is the length of the validity window in days.
	ValidityDays int

	// Anchor is the instant the window is measured from, typically the
	// last-sample timestamp of the run.
	Anchor time.Time
}

// Evaluate computes the expiration state at the given instant.
func (p *ExpirationPolicy) Evaluate(at time.Time) ExpirationState {
	if p == nil || p.ValidityDays <= 0 {
		return NoExpiration
	}

	window := time.Duration(p.ValidityDays) * 24 * time.Hour
	remaining := window - at.Sub(p.Anchor)

	switch {
	case remaining <= 0:
		return Expired
	case remaining <= time.Duration(float64(window)*expiringImminentlyFraction):
		return ExpiringImminently
	case remaining <= time.Duration(float64(window)*expiringSoonFraction):
		return ExpiringSoon
	default:
		return ExpirationValid
	}
}

// Remaining returns the validity time left at the given instant; it is
// negative once the window has elapsed and zero without a policy.
func (p *ExpirationPolicy) Remaining(at time.Time) time.Duration {
	if p == nil || p.ValidityDays <= 0 {
		return 0
	}
	window := time.Duration(p.ValidityDays) * 24 * time.Hour
	return window - at.Sub(p.Anchor)
}
