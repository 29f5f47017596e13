package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors surfaced by the harness.
var (
	// ErrNoSamplesExecuted indicates a run terminated before recording a
	// single sample, so there is nothing statistically meaningful to freeze.
	ErrNoSamplesExecuted = errors.New("no samples executed")

	// ErrEmptyFactorSource indicates a factor source produced zero
	// configurations; sampling must never begin against an empty source.
	ErrEmptyFactorSource = errors.New("factor source is empty")

	// ErrInvalidConfiguration indicates run configuration is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrIteratorExhausted indicates Next was called after the iterator
	// produced its full requested count.
	ErrIteratorExhausted = errors.New("factor iterator exhausted")

	// ErrSpecificationGenerated indicates a specification was already
	// produced for this run; generation happens exactly once.
	ErrSpecificationGenerated = errors.New("specification already generated")
)

// ResolutionError reports a failed factor-source lookup. It lists every
// location searched so the caller can fix the reference or registration
// instead of guessing.
type ResolutionError struct {
	// Reference is the factor-source reference that failed to resolve.
	Reference string

	// Searched lists every scope-qualified location that was checked.
	Searched []string
}

// Error implements the error interface for ResolutionError.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("factor source %q not found; searched: %s",
		e.Reference, strings.Join(e.Searched, ", "))
}

// SourceExhaustedError reports that a sequential factor source ran out of
// configurations before the requested sample count was reached. This is a
// caller/config mismatch, never a silent truncation.
type SourceExhaustedError struct {
	// Source names the exhausted factor source.
	Source string

	// Requested is the number of samples the run asked for.
	Requested int

	// Supplied is the number of configurations the source produced.
	Supplied int
}

// Error implements the error interface for SourceExhaustedError.
func (e *SourceExhaustedError) Error() string {
	return fmt.Sprintf("factor source %q exhausted: supplied %d configurations for %d requested samples",
		e.Source, e.Supplied, e.Requested)
}

// FingerprintMismatchError reports that a persisted specification's content
// fingerprint does not match its reloaded content. This is an integrity
// violation and must never be downgraded to a warning.
type FingerprintMismatchError struct {
	// Path is the location of the tampered or corrupted specification.
	Path string

	// Expected is the fingerprint stored in the specification.
	Expected string

	// Actual is the fingerprint recomputed over the reloaded content.
	Actual string
}

// Error implements the error interface for FingerprintMismatchError.
func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("specification %s failed integrity check: stored fingerprint %s, recomputed %s",
		e.Path, e.Expected, e.Actual)
}

// RegistrationError reports an invalid factor-provider registration.
// Providers are validated when registered, not when first resolved.
type RegistrationError struct {
	// Scope and Name identify the registration slot.
	Scope string
	Name  string

	// Reason explains why the registration was rejected.
	Reason string
}

// Error implements the error interface for RegistrationError.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register factor provider %s#%s: %s", e.Scope, e.Name, e.Reason)
}
