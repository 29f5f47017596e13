package baseline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-baseline/internal/domain"
)

// fingerprintField is the serialized name of the content fingerprint.
// The writer appends it after the hashed content; the loader excludes it
// when recomputing the hash.
const fingerprintField = "content_fingerprint"

// specFile is the serialized form of a specification. Field names are the
// stable on-disk schema; the in-memory domain type stays free of
// serialization tags.
type specFile struct {
	UseCaseID        string            `yaml:"use_case_id"`
	GeneratedAt      time.Time         `yaml:"generated_at"`
	SchemaVersion    string            `yaml:"schema_version"`
	Execution        executionFile     `yaml:"execution"`
	Statistics       statisticsFile    `yaml:"statistics"`
	Cost             costFile          `yaml:"cost"`
	Requirements     requirementsFile  `yaml:"requirements"`
	ExpirationPolicy *expirationFile   `yaml:"expiration_policy,omitempty"`
	Footprint        map[string]string `yaml:"footprint,omitempty"`
}

type executionFile struct {
	SamplesPlanned     int    `yaml:"samples_planned"`
	SamplesExecuted    int    `yaml:"samples_executed"`
	TerminationReason  string `yaml:"termination_reason"`
	TerminationDetails string `yaml:"termination_details,omitempty"`
}

type statisticsFile struct {
	Observed             float64         `yaml:"observed"`
	StandardError        float64         `yaml:"standard_error"`
	ConfidenceInterval95 []float64       `yaml:"confidence_interval_95,flow"`
	Successes            int             `yaml:"successes"`
	Failures             int             `yaml:"failures"`
	FailureDistribution  []categoryFile  `yaml:"failure_distribution,omitempty"`
	CriteriaPassRates    []criterionFile `yaml:"criteria_pass_rates,omitempty"`
}

// categoryFile keeps the failure histogram's insertion order on disk,
// which a plain YAML map would not guarantee.
type categoryFile struct {
	Category string `yaml:"category"`
	Count    int    `yaml:"count"`
}

type criterionFile struct {
	Name      string  `yaml:"name"`
	Passed    int     `yaml:"passed"`
	Evaluated int     `yaml:"evaluated"`
	Rate      float64 `yaml:"rate"`
}

type costFile struct {
	ElapsedMs          int64   `yaml:"elapsed_ms"`
	AvgTimePerSampleMs float64 `yaml:"avg_time_per_sample_ms"`
	TotalTokens        int64   `yaml:"total_tokens"`
	AvgTokensPerSample float64 `yaml:"avg_tokens_per_sample"`
}

type requirementsFile struct {
	MinPassRate float64 `yaml:"min_pass_rate"`
}

type expirationFile struct {
	ValidityDays int       `yaml:"validity_days"`
	Anchor       time.Time `yaml:"anchor"`
}

// Marshal serializes a specification to YAML. With fingerprinting enabled
// it appends a content_fingerprint line holding the hex-encoded SHA-256 of
// the exact bytes written before it, letting a loader detect post-write
// tampering or corruption. The computed fingerprint is also returned.
func Marshal(spec *domain.Specification, withFingerprint bool) ([]byte, string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toFile(spec)); err != nil {
		return nil, "", fmt.Errorf("failed to encode specification: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize specification encoding: %w", err)
	}

	if !withFingerprint {
		return buf.Bytes(), "", nil
	}

	sum := sha256.Sum256(buf.Bytes())
	fingerprint := hex.EncodeToString(sum[:])
	fmt.Fprintf(&buf, "%s: %s\n", fingerprintField, fingerprint)
	return buf.Bytes(), fingerprint, nil
}

// Unmarshal parses a serialized specification. Absent or legacy fields
// degrade gracefully to defaults, but a fingerprint mismatch when a
// fingerprint is present is a hard validation error, never a warning.
// The path parameter is used only for error reporting.
func Unmarshal(data []byte, path string) (*domain.Specification, error) {
	stored, body := splitFingerprint(data)
	if stored != "" {
		sum := sha256.Sum256(body)
		actual := hex.EncodeToString(sum[:])
		if actual != stored {
			return nil, &domain.FingerprintMismatchError{Path: path, Expected: stored, Actual: actual}
		}
	}

	var f specFile
	if err := yaml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("failed to parse specification %s: %w", path, err)
	}
	if f.UseCaseID == "" {
		return nil, fmt.Errorf("specification %s: %w: use_case_id is missing", path, domain.ErrInvalidConfiguration)
	}
	return fromFile(&f, stored), nil
}

// splitFingerprint extracts a trailing content_fingerprint line, returning
// the stored fingerprint and the content bytes it was computed over.
// It returns an empty fingerprint when the file carries none.
func splitFingerprint(data []byte) (fingerprint string, body []byte) {
	marker := []byte("\n" + fingerprintField + ":")
	idx := bytes.LastIndex(data, marker)
	if idx < 0 {
		if bytes.HasPrefix(data, []byte(fingerprintField+":")) {
			// Degenerate file holding only a fingerprint.
			line := data[len(fingerprintField)+1:]
			return strings.TrimSpace(string(bytes.SplitN(line, []byte("\n"), 2)[0])), nil
		}
		return "", data
	}

	line := data[idx+len(marker):]
	value := strings.TrimSpace(string(bytes.SplitN(line, []byte("\n"), 2)[0]))
	return value, data[:idx+1]
}

func toFile(spec *domain.Specification) *specFile {
	f := &specFile{
		UseCaseID:     spec.UseCaseID,
		GeneratedAt:   spec.GeneratedAt,
		SchemaVersion: spec.SchemaVersion,
		Execution: executionFile{
			SamplesPlanned:     spec.Execution.SamplesPlanned,
			SamplesExecuted:    spec.Execution.SamplesExecuted,
			TerminationReason:  string(spec.Execution.TerminationReason),
			TerminationDetails: spec.Execution.TerminationDetails,
		},
		Statistics: statisticsFile{
			Observed:             spec.Statistics.Observed,
			StandardError:        spec.Statistics.StandardError,
			ConfidenceInterval95: []float64{spec.Statistics.CILower, spec.Statistics.CIUpper},
			Successes:            spec.Statistics.Successes,
			Failures:             spec.Statistics.Failures,
		},
		Cost: costFile{
			ElapsedMs:          spec.Cost.ElapsedMs,
			AvgTimePerSampleMs: spec.Cost.AvgTimePerSampleMs,
			TotalTokens:        spec.Cost.TotalTokens,
			AvgTokensPerSample: spec.Cost.AvgTokensPerSample,
		},
		Requirements: requirementsFile{MinPassRate: spec.Requirements.MinPassRate},
		Footprint:    spec.Footprint,
	}

	for _, c := range spec.Statistics.FailureDistribution {
		f.Statistics.FailureDistribution = append(f.Statistics.FailureDistribution,
			categoryFile{Category: c.Category, Count: c.Count})
	}
	for _, c := range spec.Statistics.CriteriaPassRates {
		f.Statistics.CriteriaPassRates = append(f.Statistics.CriteriaPassRates,
			criterionFile{Name: c.Name, Passed: c.Passed, Evaluated: c.Evaluated, Rate: c.Rate()})
	}

	if spec.Expiration != nil {
		f.ExpirationPolicy = &expirationFile{
			ValidityDays: spec.Expiration.ValidityDays,
			Anchor:       spec.Expiration.Anchor,
		}
	}
	return f
}

func fromFile(f *specFile, fingerprint string) *domain.Specification {
	schemaVersion := f.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = domain.SpecSchemaVersion
	}

	spec := &domain.Specification{
		UseCaseID:     f.UseCaseID,
		GeneratedAt:   f.GeneratedAt,
		SchemaVersion: schemaVersion,
		Execution: domain.ExecutionSummary{
			SamplesPlanned:     f.Execution.SamplesPlanned,
			SamplesExecuted:    f.Execution.SamplesExecuted,
			TerminationReason:  domain.TerminationReason(f.Execution.TerminationReason),
			TerminationDetails: f.Execution.TerminationDetails,
		},
		Statistics: domain.StatisticsSummary{
			Observed:      f.Statistics.Observed,
			StandardError: f.Statistics.StandardError,
			Successes:     f.Statistics.Successes,
			Failures:      f.Statistics.Failures,
		},
		Cost: domain.CostSummary{
			ElapsedMs:          f.Cost.ElapsedMs,
			AvgTimePerSampleMs: f.Cost.AvgTimePerSampleMs,
			TotalTokens:        f.Cost.TotalTokens,
			AvgTokensPerSample: f.Cost.AvgTokensPerSample,
		},
		Requirements:       domain.Requirements{MinPassRate: f.Requirements.MinPassRate},
		Footprint:          f.Footprint,
		ContentFingerprint: fingerprint,
	}

	if f.Execution.TerminationReason == "" {
		spec.Execution.TerminationReason = domain.TerminationCompleted
	}
	if len(f.Statistics.ConfidenceInterval95) == 2 {
		spec.Statistics.CILower = f.Statistics.ConfidenceInterval95[0]
		spec.Statistics.CIUpper = f.Statistics.ConfidenceInterval95[1]
	}
	for _, c := range f.Statistics.FailureDistribution {
		spec.Statistics.FailureDistribution = append(spec.Statistics.FailureDistribution,
			domain.CategoryCount{Category: c.Category, Count: c.Count})
	}
	for _, c := range f.Statistics.CriteriaPassRates {
		spec.Statistics.CriteriaPassRates = append(spec.Statistics.CriteriaPassRates,
			domain.CriterionRate{Name: c.Name, Passed: c.Passed, Evaluated: c.Evaluated})
	}
	if f.ExpirationPolicy != nil {
		spec.Expiration = &domain.ExpirationPolicy{
			ValidityDays: f.ExpirationPolicy.ValidityDays,
			Anchor:       f.ExpirationPolicy.Anchor,
		}
	}
	return spec
}
