package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpirationPolicyEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		policy *ExpirationPolicy
		at     time.Time
		want   ExpirationState
	}{
		{
			name:   "nil policy never expires",
			policy: nil,
			at:     now,
			want:   NoExpiration,
		},
		{
			name:   "zero validity days never expires",
			policy: &ExpirationPolicy{ValidityDays: 0, Anchor: now.AddDate(-1, 0, 0)},
			at:     now,
			want:   NoExpiration,
		},
		{
			name:   "fresh evidence is valid",
			policy: &ExpirationPolicy{ValidityDays: 30, Anchor: now.Add(-24 * time.Hour)},
			at:     now,
			want:   ExpirationValid,
		},
		{
			name:   "29 of 30 days elapsed is imminent",
			policy: &ExpirationPolicy{ValidityDays: 30, Anchor: now.Add(-29 * 24 * time.Hour)},
			at:     now,
			want:   ExpiringImminently,
		},
		{
			name:   "24 of 30 days elapsed is expiring soon",
			policy: &ExpirationPolicy{ValidityDays: 30, Anchor: now.Add(-24 * 24 * time.Hour)},
			at:     now,
			want:   ExpiringSoon,
		},
		{
			name:   "20 of 30 days elapsed is still valid",
			policy: &ExpirationPolicy{ValidityDays: 30, Anchor: now.Add(-20 * 24 * time.Hour)},
			at:     now,
			want:   ExpirationValid,
		},
		{
			name:   "35 of 30 days elapsed is expired",
			policy: &ExpirationPolicy{ValidityDays: 30, Anchor: now.Add(-35 * 24 * time.Hour)},
			at:     now,
			want:   Expired,
		},
		{
			name:   "exactly at the window boundary is expired",
			policy: &ExpirationPolicy{ValidityDays: 30, Anchor: now.Add(-30 * 24 * time.Hour)},
			at:     now,
			want:   Expired,
		},
		{
			name:   "short window warns proportionally",
			policy: &ExpirationPolicy{ValidityDays: 7, Anchor: now.Add(-6 * 24 * time.Hour)},
			at:     now,
			want:   ExpiringImminently,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Evaluate(tt.at))
		})
	}
}

func TestExpirationStateIsComputedNotStored(t *testing.T) {
	policy := &ExpirationPolicy{
		ValidityDays: 30,
		Anchor:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	// The same policy reads differently at different evaluation instants.
	assert.Equal(t, ExpirationValid, policy.Evaluate(policy.Anchor.Add(24*time.Hour)))
	assert.Equal(t, Expired, policy.Evaluate(policy.Anchor.Add(31*24*time.Hour)))
}

func TestExpirationPolicyRemaining(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := &ExpirationPolicy{ValidityDays: 10, Anchor: anchor}

	assert.Equal(t, 10*24*time.Hour, policy.Remaining(anchor))
	assert.Equal(t, 5*24*time.Hour, policy.Remaining(anchor.Add(5*24*time.Hour)))
	assert.Negative(t, policy.Remaining(anchor.Add(11*24*time.Hour)))

	var nilPolicy *ExpirationPolicy
	assert.Equal(t, time.Duration(0), nilPolicy.Remaining(anchor))
}

func TestExpirationStateString(t *testing.T) {
	assert.Equal(t, "no expiration", NoExpiration.String())
	assert.Equal(t, "valid", ExpirationValid.String())
	assert.Equal(t, "expiring soon", ExpiringSoon.String())
	assert.Equal(t, "expiring imminently", ExpiringImminently.String())
	assert.Equal(t, "expired", Expired.String())
}
