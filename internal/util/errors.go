package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the costfleet CLI
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoSubscriptions indicates no subscriptions were configured or matched
	ErrNoSubscriptions = errors.New("no subscriptions")

	// ErrCircuitOpen indicates the upstream is presumed unhealthy and the
	// call was short-circuited without being attempted
	ErrCircuitOpen = errors.New("circuit open")

	// ErrRunTimeout indicates the overall run deadline expired before the
	// subscription's task completed
	ErrRunTimeout = errors.New("run deadline exceeded")

	// ErrAttemptTimeout indicates a single attempt exceeded its per-attempt
	// timeout
	ErrAttemptTimeout = errors.New("attempt timed out")

	// ErrThrottled indicates the upstream rejected the call for rate reasons
	ErrThrottled = errors.New("request throttled")

	// ErrAuthFailed indicates authentication or authorization failed
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the requested upstream resource does not exist
	ErrNotFound = errors.New("resource not found")
)

// TransientError marks an error as retryable: timeouts, throttling,
// connection resets. The retry executor keeps attempting these until the
// policy is exhausted.
type TransientError struct {
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps an error as retryable. A nil error stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// PermanentError marks an error as non-retryable: auth failures, missing
// resources, invalid arguments. The retry executor returns these immediately.
type PermanentError struct {
	Err error
}

// Error implements the error interface
func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

// Unwrap returns the wrapped error
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error as non-retryable. A nil error stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsTransient reports whether the error is marked retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether the error is marked non-retryable
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsCircuitOpen reports whether the error is a breaker fast-fail
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsRunTimeout reports whether the error is an overall-run deadline expiry
func IsRunTimeout(err error) bool {
	return errors.Is(err, ErrRunTimeout)
}

// PreconditionError indicates the aggregation call itself was invalid:
// an empty subscription list, a nil operation, or bad worker counts. Unlike
// per-subscription failures, these are fatal to the whole call.
type PreconditionError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (p *PreconditionError) Error() string {
	if p.Value != nil {
		return fmt.Sprintf("precondition failed for %q (value: %v): %s", p.Field, p.Value, p.Message)
	}
	return fmt.Sprintf("precondition failed for %q: %s", p.Field, p.Message)
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(field string, value interface{}, message string) *PreconditionError {
	return &PreconditionError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsPrecondition reports whether the error is fatal to the call itself
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// SubscriptionError wraps an error with subscription context
type SubscriptionError struct {
	SubscriptionID string
	Err            error
}

// Error implements the error interface
func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %q: %v", e.SubscriptionID, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// WrapSubscriptionError wraps an error with subscription context
func WrapSubscriptionError(subscriptionID string, err error) error {
	if err == nil {
		return nil
	}
	return &SubscriptionError{
		SubscriptionID: subscriptionID,
		Err:            err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// NewMultiError creates a new MultiError from a slice of errors
// It filters out nil errors
func NewMultiError(errors []error) *MultiError {
	m := &MultiError{
		Errors: make([]error, 0, len(errors)),
	}
	for _, err := range errors {
		if err != nil {
			m.Errors = append(m.Errors, err)
		}
	}
	return m
}

// CombineErrors combines multiple errors into a single error
// Returns nil if all errors are nil
func CombineErrors(errors ...error) error {
	m := NewMultiError(errors)
	return m.ErrorOrNil()
}

// WrapErrorf wraps an error with a formatted message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsCircuitOpen(err):
		return "Upstream looks unhealthy and calls are being short-circuited. Wait for the cool-down to elapse and retry."
	case IsRunTimeout(err):
		return "The run deadline expired before this subscription finished. Increase --timeout or reduce the subscription set."
	case errors.Is(err, ErrAttemptTimeout):
		return "Request timed out. The call has already been retried; if this persists the upstream may be slow."
	case errors.Is(err, ErrThrottled):
		return "Requests are being throttled by the upstream. Lower the parallelism or the request rate."
	case errors.Is(err, ErrAuthFailed):
		return "Authentication failed. Check your credentials for this subscription."
	case errors.Is(err, ErrNotFound):
		return "Resource not found. Check the subscription ID and your access to it."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration. Check your config file and command-line flags."
	case errors.Is(err, ErrNoSubscriptions):
		return "No subscriptions matched. Check your config file and the --subscriptions flag."
	default:
		return err.Error()
	}
}
