package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch marks an embedder returning vectors whose
	// dimensionality differs from its declared one. Fatal, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMissingCredentials is returned when a default provider is
	// constructed without the credentials it needs.
	ErrMissingCredentials = errors.New("missing provider credentials")
)

// ExtractionError reports a failed extraction for one text unit. The
// caller may retry or skip the unit and continue with the rest of the
// batch.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed: %s", e.Reason)
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports a failed embedding call for a batch of texts.
type EmbeddingError struct {
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("embedding failed: %s", e.Reason)
	}
	return fmt.Sprintf("embedding failed: %s: %v", e.Reason, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
