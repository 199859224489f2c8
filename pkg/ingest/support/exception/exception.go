// Package exception provides the custom error type used throughout the
// ingestor. It standardizes errors raised during an ingestion run so callers
// can distinguish record-scoped failures (collected and returned) from
// run-fatal conditions (propagated immediately), and so the delivery retry
// logic can classify transient failures.
package exception

import (
	"errors"
	"fmt"
	"strings"
)

// IngestError is the error type raised by ingestor components.
// It carries the module where the error occurred, a message, the wrapped
// original error, and flags describing how the orchestrator must treat it.
type IngestError struct {
	// Module indicates where the error occurred (e.g. "reader", "database",
	// "api", "validator", "ingestor").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether the failed operation may be retried.
	isRetryable bool
	// isRecordScoped indicates a failure local to a single record; the run
	// continues and the record lands in the failure list.
	isRecordScoped bool
}

// New creates a new IngestError instance.
func New(module, message string, originalErr error, recordScoped, retryable bool) *IngestError {
	return &IngestError{
		Module:         module,
		Message:        message,
		OriginalErr:    originalErr,
		isRetryable:    retryable,
		isRecordScoped: recordScoped,
	}
}

// Newf creates a run-fatal, non-retryable IngestError with a formatted message.
func Newf(module, format string, a ...interface{}) *IngestError {
	return &IngestError{
		Module:  module,
		Message: fmt.Sprintf(format, a...),
	}
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *IngestError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether the failed operation may be retried.
func (e *IngestError) IsRetryable() bool {
	return e.isRetryable
}

// IsRecordScoped returns whether this failure is local to a single record.
func (e *IngestError) IsRecordScoped() bool {
	return e.isRecordScoped
}

// IsRecordScoped reports whether err (anywhere in its chain) is a
// record-scoped IngestError.
func IsRecordScoped(err error) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.IsRecordScoped()
	}
	return false
}

// IsTemporary determines if an error is temporary (e.g. network error,
// transient DB connection issue). Used by the retry policy.
// If it's an IngestError, its retryable flag takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF")
}

// ExtractErrorMessage extracts the message string from an error.
// For IngestError it returns the cleaner Message field; otherwise the
// standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Message
	}
	return err.Error()
}
