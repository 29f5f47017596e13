// Package criteria provides deterministic criterion evaluators that check a
// sample's output against a reference without requiring an LLM. Executors
// fold their results into structured per-criterion outcomes.
package criteria

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-baseline/internal/domain"
	"github.com/ahrav/go-baseline/internal/ports"
)

var (
	// Verify interface compliance at compile time.
	_ ports.Criterion = (*ExactMatch)(nil)

	// foldCaser is a package-level Unicode case folder for performance.
	// This avoids creating a new caser per comparison.
	foldCaser = cases.Fold()
)

// ExactMatchConfig controls string normalization behavior during exact
// matching.
type ExactMatchConfig struct {
	// CaseSensitive determines whether comparison preserves case.
	// When false, Unicode case folding is applied to both strings.
	CaseSensitive bool `yaml:"case_sensitive" json:"case_sensitive"`

	// TrimWhitespace controls leading/trailing whitespace normalization.
	TrimWhitespace bool `yaml:"trim_whitespace" json:"trim_whitespace"`
}

// ExactMatch is a stateless criterion that passes when the candidate
// equals the reference after configured normalization. It is safe for
// concurrent use.
type ExactMatch struct {
	name   string
	config ExactMatchConfig
	tracer trace.Tracer
}

// NewExactMatch creates an exact-match criterion with the given name.
func NewExactMatch(name string, config ExactMatchConfig) (*ExactMatch, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: criterion name is empty", domain.ErrInvalidConfiguration)
	}
	return &ExactMatch{
		name:   name,
		config: config,
		tracer: otel.Tracer("exact-match-criterion"),
	}, nil
}

// Name returns the criterion's unique name.
func (c *ExactMatch) Name() string { return c.name }

// Evaluate compares the candidate against the reference.
func (c *ExactMatch) Evaluate(ctx context.Context, candidate, reference string) (domain.CriterionResult, error) {
	_, span := c.tracer.Start(ctx, "ExactMatch.Evaluate")
	defer span.End()

	passed := c.prepare(candidate) == c.prepare(reference)
	span.SetAttributes(
		attribute.String("criterion", c.name),
		attribute.Bool("passed", passed),
	)

	return domain.CriterionResult{Name: c.name, Passed: passed}, nil
}

// prepare normalizes a string according to the criterion's configuration.
func (c *ExactMatch) prepare(s string) string {
	if c.config.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if !c.config.CaseSensitive {
		// Unicode case folding handles complex characters correctly,
		// unlike strings.ToLower.
		s = foldCaser.String(s)
	}
	return s
}
