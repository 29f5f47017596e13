package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{
		Reference: "EdgeCases",
		Searched:  []string{"Checkout#EdgeCases", "Global#EdgeCases"},
	}

	msg := err.Error()
	assert.Contains(t, msg, `"EdgeCases"`)
	assert.Contains(t, msg, "Checkout#EdgeCases")
	assert.Contains(t, msg, "Global#EdgeCases")
}

func TestSourceExhaustedError(t *testing.T) {
	err := &SourceExhaustedError{Source: "stream", Requested: 100, Supplied: 40}

	msg := err.Error()
	assert.Contains(t, msg, `"stream"`)
	assert.Contains(t, msg, "40")
	assert.Contains(t, msg, "100")
}

func TestFingerprintMismatchError(t *testing.T) {
	err := &FingerprintMismatchError{
		Path:     "baselines/checkout.baseline.yaml",
		Expected: "abc123",
		Actual:   "def456",
	}

	msg := err.Error()
	assert.Contains(t, msg, "baselines/checkout.baseline.yaml")
	assert.Contains(t, msg, "abc123")
	assert.Contains(t, msg, "def456")
}

func TestRegistrationError(t *testing.T) {
	err := &RegistrationError{Scope: "Checkout", Name: "EdgeCases", Reason: "duplicate registration"}
	assert.Contains(t, err.Error(), "Checkout#EdgeCases")
	assert.Contains(t, err.Error(), "duplicate registration")
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"no samples executed", ErrNoSamplesExecuted},
		{"empty factor source", ErrEmptyFactorSource},
		{"invalid configuration", ErrInvalidConfiguration},
		{"iterator exhausted", ErrIteratorExhausted},
		{"specification generated", ErrSpecificationGenerated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("run %q: %w", "checkout", tt.sentinel)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}
}
