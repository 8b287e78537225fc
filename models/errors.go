package models

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed or out-of-range input.
// It is returned to the caller immediately and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// AnomalyDetectionError means detection failed as a whole.
// Callers must treat the subnet as being in an unknown anomaly state.
type AnomalyDetectionError struct {
	SubnetID int
	Err      error
}

func (e *AnomalyDetectionError) Error() string {
	return fmt.Sprintf("anomaly detection failed for subnet %d: %v", e.SubnetID, e.Err)
}

func (e *AnomalyDetectionError) Unwrap() error {
	return e.Err
}

var (
	// ErrUpstreamDataMissing marks a degraded factor; never returned to callers.
	ErrUpstreamDataMissing = errors.New("upstream data missing")
	// ErrNarrativeUnavailable marks an LLM failure that was replaced by the fallback.
	ErrNarrativeUnavailable = errors.New("narrative generation unavailable")
	// ErrEmptyCompletion is returned by providers that answered without content.
	ErrEmptyCompletion = errors.New("empty completion")
)
