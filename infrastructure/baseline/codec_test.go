package baseline

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-baseline/internal/domain"
)

func sampleSpecification() *domain.Specification {
	return &domain.Specification{
		UseCaseID:     "checkout-refund",
		GeneratedAt:   time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		SchemaVersion: domain.SpecSchemaVersion,
		Execution: domain.ExecutionSummary{
			SamplesPlanned:    1000,
			SamplesExecuted:   1000,
			TerminationReason: domain.TerminationCompleted,
		},
		Statistics: domain.StatisticsSummary{
			Observed:      0.90,
			StandardError: 0.009486,
			CILower:       0.881406,
			CIUpper:       0.918594,
			Successes:     900,
			Failures:      100,
			FailureDistribution: []domain.CategoryCount{
				{Category: "wrong_answer", Count: 70},
				{Category: "timeout", Count: 30},
			},
			CriteriaPassRates: []domain.CriterionRate{
				{Name: "exact", Passed: 900, Evaluated: 1000},
			},
		},
		Cost: domain.CostSummary{
			ElapsedMs:          500000,
			AvgTimePerSampleMs: 500,
			TotalTokens:        250000,
			AvgTokensPerSample: 250,
		},
		Requirements: domain.Requirements{MinPassRate: 0.881406},
		Expiration: &domain.ExpirationPolicy{
			ValidityDays: 30,
			Anchor:       time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		Footprint: map[string]string{"model": "gpt-4o-mini"},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	spec := sampleSpecification()

	data, fingerprint, err := Marshal(spec, true)
	require.NoError(t, err)
	require.NotEmpty(t, fingerprint)
	assert.Contains(t, string(data), "content_fingerprint: "+fingerprint)

	loaded, err := Unmarshal(data, "test.baseline.yaml")
	require.NoError(t, err)

	assert.Equal(t, spec.UseCaseID, loaded.UseCaseID)
	assert.True(t, spec.GeneratedAt.Equal(loaded.GeneratedAt))
	assert.Equal(t, spec.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, spec.Execution, loaded.Execution)
	assert.InDelta(t, spec.Statistics.Observed, loaded.Statistics.Observed, 1e-9)
	assert.InDelta(t, spec.Statistics.CILower, loaded.Statistics.CILower, 1e-9)
	assert.InDelta(t, spec.Statistics.CIUpper, loaded.Statistics.CIUpper, 1e-9)
	assert.Equal(t, spec.Statistics.FailureDistribution, loaded.Statistics.FailureDistribution)
	assert.Equal(t, spec.Statistics.CriteriaPassRates, loaded.Statistics.CriteriaPassRates)
	assert.Equal(t, spec.Cost, loaded.Cost)
	assert.Equal(t, spec.Requirements, loaded.Requirements)
	require.NotNil(t, loaded.Expiration)
	assert.Equal(t, spec.Expiration.ValidityDays, loaded.Expiration.ValidityDays)
	assert.Equal(t, spec.Footprint, loaded.Footprint)
	assert.Equal(t, fingerprint, loaded.ContentFingerprint)
}

func TestMarshalIsDeterministic(t *testing.T) {
	spec := sampleSpecification()

	data1, fp1, err := Marshal(spec, true)
	require.NoError(t, err)
	data2, fp2, err := Marshal(spec, true)
	require.NoError(t, err)

	assert.Equal(t, data1, data2)
	assert.Equal(t, fp1, fp2)
}

func TestMarshalWithoutFingerprint(t *testing.T) {
	data, fingerprint, err := Marshal(sampleSpecification(), false)
	require.NoError(t, err)
	assert.Empty(t, fingerprint)
	assert.NotContains(t, string(data), "content_fingerprint")

	// Files without fingerprints still load.
	loaded, err := Unmarshal(data, "test.baseline.yaml")
	require.NoError(t, err)
	assert.Empty(t, loaded.ContentFingerprint)
	assert.Equal(t, "checkout-refund", loaded.UseCaseID)
}

func TestUnmarshalDetectsTampering(t *testing.T) {
	data, _, err := Marshal(sampleSpecification(), true)
	require.NoError(t, err)

	tampered := bytes.Replace(data, []byte("observed: 0.9"), []byte("observed: 1.0"), 1)
	require.NotEqual(t, data, tampered)

	_, err = Unmarshal(tampered, "tampered.baseline.yaml")
	var mismatch *domain.FingerprintMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "tampered.baseline.yaml", mismatch.Path)
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
}

func TestUnmarshalLegacyDefaults(t *testing.T) {
	legacy := []byte(`
use_case_id: legacy-case
statistics:
  observed: 0.75
`)

	loaded, err := Unmarshal(legacy, "legacy.baseline.yaml")
	require.NoError(t, err)

	// Absent fields degrade gracefully.
	assert.Equal(t, "legacy-case", loaded.UseCaseID)
	assert.Equal(t, domain.SpecSchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, domain.TerminationCompleted, loaded.Execution.TerminationReason)
	assert.Nil(t, loaded.Expiration)
}

func TestUnmarshalRejectsMissingUseCase(t *testing.T) {
	_, err := Unmarshal([]byte("schema_version: 1.0.0\n"), "anonymous.baseline.yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestCriteriaRatesSerializedWithRate(t *testing.T) {
	data, _, err := Marshal(sampleSpecification(), false)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rate: 0.9")
}
