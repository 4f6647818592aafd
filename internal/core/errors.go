package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every way a review invocation can fail. The kind
// selects the retry policy and labels the outcome log record.
type ErrorKind string

const (
	// KindConfiguration covers a missing credential or a malformed trigger
	// context. Never retried, and no network call is attempted.
	KindConfiguration ErrorKind = "configuration_error"

	// KindEmptyDiff covers an invocation with no reviewable content. Benign:
	// the model is not called and a neutral comment is posted instead.
	KindEmptyDiff ErrorKind = "empty_diff"

	// KindUpstream covers a model call that returned a non-success status or
	// timed out. Transient instances are retried.
	KindUpstream ErrorKind = "upstream_error"

	// KindPost covers a failure to write the result comment back.
	KindPost ErrorKind = "post_error"
)

// ReviewError attaches an ErrorKind to an underlying cause. Transient
// reports whether a retry could plausibly succeed; only upstream errors
// are ever transient.
type ReviewError struct {
	Kind      ErrorKind
	Transient bool
	Err       error
}

func (e *ReviewError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ReviewError) Unwrap() error { return e.Err }

// ConfigurationError wraps err as a non-retryable configuration failure.
func ConfigurationError(err error) *ReviewError {
	return &ReviewError{Kind: KindConfiguration, Err: err}
}

// EmptyDiffError reports that the pull request produced no reviewable diff.
func EmptyDiffError() *ReviewError {
	return &ReviewError{Kind: KindEmptyDiff, Err: errors.New("diff contains no reviewable content")}
}

// UpstreamError wraps a failed model call. transient marks rate limits,
// server errors and timeouts, which are eligible for retry.
func UpstreamError(err error, transient bool) *ReviewError {
	return &ReviewError{Kind: KindUpstream, Transient: transient, Err: err}
}

// PostError wraps a failed comment write.
func PostError(err error) *ReviewError {
	return &ReviewError{Kind: KindPost, Err: err}
}

// KindOf extracts the taxonomy kind from err, or "" when err is nil or
// carries no kind.
func KindOf(err error) ErrorKind {
	var re *ReviewError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsTransient reports whether err is a retryable upstream failure.
func IsTransient(err error) bool {
	var re *ReviewError
	return errors.As(err, &re) && re.Transient
}
