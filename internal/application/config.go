package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-baseline/internal/domain"
)

// GoalConfig declares the optional early-success criteria for a run.
// All configured criteria must hold for the goal to be met; with none
// configured the run never stops early on success.
type GoalConfig struct {
	// MinSuccessRate is the minimum observed success rate, in [0,1].
	MinSuccessRate *float64 `yaml:"min_success_rate,omitempty" validate:"omitempty,min=0,max=1"`

	// MaxAvgSampleTimeMs is the maximum mean per-sample duration.
	MaxAvgSampleTimeMs *int64 `yaml:"max_avg_sample_time_ms,omitempty" validate:"omitempty,min=1"`

	// MaxAvgTokensPerSample is the maximum mean token cost per sample.
	MaxAvgTokensPerSample *float64 `yaml:"max_avg_tokens_per_sample,omitempty" validate:"omitempty,min=0"`
}

// ToGoal converts the config into a domain goal predicate.
func (g GoalConfig) ToGoal() domain.Goal {
	goal := domain.Goal{
		MinSuccessRate:        g.MinSuccessRate,
		MaxAvgTokensPerSample: g.MaxAvgTokensPerSample,
	}
	if g.MaxAvgSampleTimeMs != nil {
		d := time.Duration(*g.MaxAvgSampleTimeMs) * time.Millisecond
		goal.MaxAvgSampleTime = &d
	}
	return goal
}

// RunConfig is the complete configuration for one experiment run. It is
// constructed once per run and never mutated after construction.
type RunConfig struct {
	// UseCaseID identifies the operation under study and names the
	// persisted specification.
	UseCaseID string `yaml:"use_case_id" validate:"required,min=1,max=255"`

	// Samples is the planned sample count for the run.
	Samples int `yaml:"samples" validate:"required,min=1"`

	// FactorSource references the registered provider of input
	// configurations: a bare name, "Scope#name", or a fully-qualified
	// "dotted.scope#name".
	FactorSource string `yaml:"factor_source" validate:"required,factorref"`

	// DeclaringScope is the namespace the factor reference is resolved
	// from first.
	DeclaringScope string `yaml:"declaring_scope" validate:"required"`

	// FallbackScope is the namespace searched when the declaring scope
	// has no match. Optional.
	FallbackScope string `yaml:"fallback_scope,omitempty"`

	// TimeBudgetMs caps the run's wall-clock time. Zero means unlimited.
	TimeBudgetMs int64 `yaml:"time_budget_ms" validate:"min=0"`

	// TokenBudget caps the run's cumulative token cost. Zero means
	// unlimited.
	TokenBudget int64 `yaml:"token_budget" validate:"min=0"`

	// MinSampleDelayMs is the enforced minimum delay between consecutive
	// samples, used to respect external rate limits. Zero disables pacing.
	MinSampleDelayMs int64 `yaml:"min_sample_delay_ms" validate:"min=0"`

	// Concurrency is the number of parallel sample slots. Zero or one
	// means sequential execution.
	Concurrency int `yaml:"concurrency" validate:"min=0,max=64"`

	// Goal declares optional early-success criteria.
	Goal GoalConfig `yaml:"goal"`

	// ValidityDays bounds the validity of the frozen specification.
	// Zero means the specification never expires.
	ValidityDays int `yaml:"validity_days" validate:"min=0,max=3650"`

	// Footprint carries covariate metadata frozen into the specification.
	Footprint map[string]string `yaml:"footprint,omitempty" validate:"max=50"`
}

// Budget returns the run's resource ceilings.
func (c RunConfig) Budget() domain.Budget {
	return domain.Budget{
		MaxDuration: time.Duration(c.TimeBudgetMs) * time.Millisecond,
		MaxTokens:   c.TokenBudget,
	}
}

// Pacing returns the run's inter-sample pacing policy.
func (c RunConfig) Pacing() domain.PacingPolicy {
	return domain.PacingPolicy{MinDelay: time.Duration(c.MinSampleDelayMs) * time.Millisecond}
}

// ConfigLoader parses and validates run configurations from YAML.
type ConfigLoader struct {
	// validator performs struct field validation and custom validation
	// rules for run configurations.
	validator *validator.Validate
}

// NewConfigLoader creates a loader with the harness's custom validators
// registered. It returns an error if validator registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := v.RegisterValidation("factorref", validateFactorRef); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// Validate checks a run configuration built in code.
func (l *ConfigLoader) Validate(config *RunConfig) error {
	if err := l.validator.Struct(config); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// LoadFromFile loads and validates a run configuration from a YAML file.
func (l *ConfigLoader) LoadFromFile(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return l.load(data)
}

// LoadFromReader loads and validates a run configuration from any reader.
func (l *ConfigLoader) LoadFromReader(r io.Reader) (*RunConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return l.load(data)
}

func (l *ConfigLoader) load(data []byte) (*RunConfig, error) {
	var config RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateFactorRef accepts a bare name, "Scope#name", or a
// fully-qualified "dotted.scope#name" with non-empty segments and at most
// one '#'.
func validateFactorRef(fl validator.FieldLevel) bool {
	ref := fl.Field().String()
	if ref == "" {
		return false
	}
	if strings.Count(ref, "#") > 1 {
		return false
	}
	scope, name, qualified := strings.Cut(ref, "#")
	if !qualified {
		return !strings.Contains(ref, " ")
	}
	if scope == "" || name == "" {
		return false
	}
	for _, seg := range strings.Split(scope, ".") {
		if seg == "" {
			return false
		}
	}
	return !strings.Contains(name, " ")
}
