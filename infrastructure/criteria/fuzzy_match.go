package criteria

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.Criterion = (*FuzzyMatch)(nil)

// FuzzyMatchConfig defines the configuration for the FuzzyMatch criterion.
type FuzzyMatchConfig struct {
	// Threshold is the minimum similarity score (0.0-1.0) for a pass.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"min=0,max=1"`

	// CaseSensitive determines whether comparison preserves case.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`
}

// FuzzyMatch is a stateless criterion that passes when the Levenshtein
// similarity between candidate and reference meets the configured
// threshold. Similarity is 1 - distance/maxLen, in [0,1]. It is safe for
// concurrent use.
type FuzzyMatch struct {
	name   string
	config FuzzyMatchConfig
	tracer trace.Tracer
}

// NewFuzzyMatch creates a fuzzy-match criterion with the given name.
func NewFuzzyMatch(name string, config FuzzyMatchConfig) (*FuzzyMatch, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: criterion name is empty", domain.ErrInvalidConfiguration)
	}
	if config.Threshold < 0 || config.Threshold > 1 {
		return nil, fmt.Errorf("%w: fuzzy match threshold %f outside [0,1]", domain.ErrInvalidConfiguration, config.Threshold)
	}
	return &FuzzyMatch{
		name:   name,
		config: config,
		tracer: otel.Tracer("fuzzy-match-criterion"),
	}, nil
}

// Name returns the criterion's unique name.
func (c *FuzzyMatch) Name() string { return c.name }

// Evaluate computes the similarity between candidate and reference and
// compares it against the threshold.
func (c *FuzzyMatch) Evaluate(ctx context.Context, candidate, reference string) (domain.CriterionResult, error) {
	_, span := c.tracer.Start(ctx, "FuzzyMatch.Evaluate")
	defer span.End()

	a, b := candidate, reference
	if c.config.TrimAndFold() {
		a = foldCaser.String(strings.TrimSpace(a))
		b = foldCaser.String(strings.TrimSpace(b))
	}

	score := similarity(a, b)
	passed := score >= c.config.Threshold

	span.SetAttributes(
		attribute.String("criterion", c.name),
		attribute.Float64("similarity", score),
		attribute.Bool("passed", passed),
	)

	return domain.CriterionResult{
		Name:   c.name,
		Passed: passed,
		Detail: fmt.Sprintf("similarity=%.4f threshold=%.4f", score, c.config.Threshold),
	}, nil
}

// TrimAndFold reports whether normalization applies before comparison.
func (cfg FuzzyMatchConfig) TrimAndFold() bool { return !cfg.CaseSensitive }

// similarity returns 1 - levenshtein/maxRuneLen, clamped to [0,1].
// Two empty strings are identical.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}
