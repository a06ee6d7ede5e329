package llm

import "errors"

// callError carries the retry classification of a failed provider call. The
// client's retry loop keys off the classification: transient failures (network
// hiccups, 429, 5xx) are retried with backoff, fatal ones (malformed request,
// auth, 4xx) abort the attempt sequence immediately.
type callError struct {
	transient bool
	err       error
}

func (e *callError) Error() string {
	return e.err.Error()
}

func (e *callError) Unwrap() error {
	return e.err
}

// NewTransientError classifies a provider call failure as retryable.
func NewTransientError(err error) error {
	return &callError{transient: true, err: err}
}

// NewFatalError classifies a provider call failure as non-retryable.
func NewFatalError(err error) error {
	return &callError{transient: false, err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var ce *callError
	return errors.As(err, &ce) && ce.transient
}

// IsFatal reports whether err is classified as non-retryable.
func IsFatal(err error) bool {
	var ce *callError
	return errors.As(err, &ce) && !ce.transient
}
