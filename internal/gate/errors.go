package gate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a content item does not exist.
	ErrNotFound = errors.New("content not found")

	// ErrContentDeleted is returned when a write targets a tombstoned item.
	ErrContentDeleted = errors.New("content deleted")

	// ErrConcurrencyConflict means a conditional write lost a race. Another
	// worker owns the item; the caller discards its result without retrying.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrInvalidTransition is returned for status changes outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrVerificationFailed means the durable store could not confirm an
	// uploaded object exists with the expected size.
	ErrVerificationFailed = errors.New(ReasonStorageVerificationFailed)

	// ErrInconclusive means a modality exhausted its attempts without a verdict.
	ErrInconclusive = errors.New("analysis inconclusive")

	// ErrOverrideNotAllowed is returned when an override does not apply to the
	// item's current status.
	ErrOverrideNotAllowed = errors.New("override not allowed")

	// ErrAwaitTimeout is returned by analysis services when a job outlives the
	// caller's wait. It is always transient.
	ErrAwaitTimeout = Transient(errors.New("analysis job did not finish in time"))
)

// FieldProblem is one rejected field of upload metadata.
type FieldProblem struct {
	Field string
	Rule  string
}

// StagingValidationError reports malformed upload metadata or content that
// does not match it. No external call has been made when it is returned.
type StagingValidationError struct {
	Problems []FieldProblem
}

func (e *StagingValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Rule))
	}
	return "invalid upload: " + strings.Join(parts, ", ")
}

// DurableUploadError means the object store never accepted the blob.
type DurableUploadError struct {
	Key string
	Err error
}

func (e *DurableUploadError) Error() string {
	return fmt.Sprintf("durable upload of %s failed: %v", e.Key, e.Err)
}

func (e *DurableUploadError) Unwrap() error { return e.Err }

// TransientError marks a failure worth retrying: timeouts, rate limits,
// unavailable upstreams.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so IsTransient reports true. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err, or anything it wraps, is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// PolicyRejection is a definitive content verdict. It is never retried.
type PolicyRejection struct {
	Modality Modality
	Reasons  []string
}

func (e *PolicyRejection) Error() string {
	return string(e.Modality) + ": " + strings.Join(e.Reasons, "; ")
}

// PublishError reports a delivery network failure during publishing.
type PublishError struct {
	Stage   string
	AssetID string
	Err     error
}

func (e *PublishError) Error() string {
	if e.AssetID != "" {
		return fmt.Sprintf("publish %s for asset %s: %v", e.Stage, e.AssetID, e.Err)
	}
	return fmt.Sprintf("publish %s: %v", e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
