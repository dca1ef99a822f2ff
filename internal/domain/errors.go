package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrNoFace is the explicit "no face in this frame" signal from a
	// facial-emotion detector. It is not an inference failure; frames that
	// produce it are skipped and excluded from aggregation.
	ErrNoFace = errors.New("no face detected")
)

// ValidationError rejects a submission before any job is created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + e.Reason
}

// ExtractionError is fatal for a job: without an audio track neither
// analysis branch can run.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("audio extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// InferenceError is a branch-level failure. It is recoverable at the job
// level: the job still completes if the sibling branch produced a result.
type InferenceError struct {
	Branch string
	Err    error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s branch failed: %v", e.Branch, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// AggregationError covers failures while combining branch outputs into the
// final record. The snapshot cannot be trusted at that point, so the job
// fails even when both branches nominally succeeded.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("result aggregation failed: %v", e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
