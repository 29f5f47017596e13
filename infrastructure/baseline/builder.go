// Package baseline freezes aggregate run state into immutable, fingerprinted
// specifications and persists them as structured text for later pass/fail
// judgement of probabilistic tests.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ahrav/go-baseline/internal/domain"
)

// BuildOption customizes specification construction.
type BuildOption func(*buildOptions)

type buildOptions struct {
	generatedAt  time.Time
	validityDays int
	anchor       time.Time
	footprint    map[string]string
}

// WithExpiration attaches a validity window of the given number of days,
// anchored at the given instant (typically the last-sample timestamp).
func WithExpiration(validityDays int, anchor time.Time) BuildOption {
	return func(o *buildOptions) {
		o.validityDays = validityDays
		o.anchor = anchor
	}
}

// WithFootprint attaches covariate metadata describing the configuration
// the evidence was collected under.
func WithFootprint(footprint map[string]string) BuildOption {
	return func(o *buildOptions) { o.footprint = footprint }
}

// WithGeneratedAt overrides the generation timestamp, primarily for tests.
func WithGeneratedAt(t time.Time) BuildOption {
	return func(o *buildOptions) { o.generatedAt = t }
}

// Build freezes a statistics snapshot into an immutable specification.
// The derived minimum pass rate is the two-sided 95% CI lower bound: the
// harness is 95% confident the true rate is at least this. A snapshot with
// zero executed samples carries no statistical evidence and is rejected.
func Build(useCaseID string, stats domain.Stats, opts ...BuildOption) (*domain.Specification, error) {
	if useCaseID == "" {
		return nil, fmt.Errorf("%w: use case id is empty", domain.ErrInvalidConfiguration)
	}
	if stats.Executed == 0 {
		return nil, fmt.Errorf("use case %s: %w", useCaseID, domain.ErrNoSamplesExecuted)
	}

	options := buildOptions{generatedAt: time.Now()}
	for _, opt := range opts {
		opt(&options)
	}

	execution := domain.ExecutionSummary{
		SamplesPlanned:    stats.Planned,
		SamplesExecuted:   stats.Executed,
		TerminationReason: domain.TerminationCompleted,
	}
	if stats.Termination != nil {
		execution.TerminationReason = stats.Termination.Reason
		execution.TerminationDetails = stats.Termination.Details
	}

	spec := &domain.Specification{
		UseCaseID:     useCaseID,
		GeneratedAt:   options.generatedAt,
		SchemaVersion: domain.SpecSchemaVersion,
		Execution:     execution,
		Statistics: domain.StatisticsSummary{
			Observed:            stats.ObservedRate,
			StandardError:       stats.StandardError,
			CILower:             stats.CILower,
			CIUpper:             stats.CIUpper,
			Successes:           stats.Successes,
			Failures:            stats.Failures,
			FailureDistribution: stats.FailureDistribution,
			CriteriaPassRates:   stats.CriteriaRates,
		},
		Cost: domain.CostSummary{
			ElapsedMs:          stats.Elapsed.Milliseconds(),
			AvgTimePerSampleMs: float64(stats.AvgTimePerSample().Microseconds()) / 1000.0,
			TotalTokens:        stats.Tokens,
			AvgTokensPerSample: stats.AvgTokensPerSample(),
		},
		Requirements: domain.Requirements{MinPassRate: stats.CILower},
		Footprint:    options.footprint,
	}

	if options.validityDays > 0 {
		anchor := options.anchor
		if anchor.IsZero() {
			anchor = options.generatedAt
		}
		spec.Expiration = &domain.ExpirationPolicy{
			ValidityDays: options.validityDays,
			Anchor:       anchor,
		}
	}

	return spec, nil
}

// FootprintHash returns a short, stable hex digest over the covariate
// metadata for covariate-aware file naming. It returns "" for an empty
// footprint.
func FootprintHash(footprint map[string]string) string {
	if len(footprint) == 0 {
		return ""
	}

	keys := make([]string, 0, len(footprint))
	for k := range footprint {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(footprint[k])
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:12]
}

// FileName derives the deterministic specification filename for a use case,
// optionally suffixed by a footprint hash when covariate-aware naming is
// enabled. Re-runs against an unchanged configuration overwrite the same
// file.
func FileName(useCaseID, footprintHash string) string {
	name := sanitizeFileName(useCaseID)
	if footprintHash != "" {
		name += "-" + footprintHash
	}
	return name + ".baseline.yaml"
}

// sanitizeFileName replaces characters outside [A-Za-z0-9._-] so use-case
// identifiers map safely onto the filesystem.
func sanitizeFileName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
