package providers

import (
	"errors"
	"fmt"
)

// SendError is the classification contract between providers and the delivery
// worker. Transient errors are retried up to the attempt budget, permanent
// errors dead-letter the message on the spot. Anything unclassified is
// treated as transient so an unknown failure can never strand or instantly
// kill a possibly recoverable message.
type SendError struct {
	permanent bool
	err       error
}

func (e *SendError) Error() string { return e.err.Error() }

func (e *SendError) Unwrap() error { return e.err }

// Permanent reports whether the send can never succeed without operator
// intervention.
func (e *SendError) Permanent() bool { return e.permanent }

// Transient wraps err as a retryable send failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &SendError{err: err}
}

// Transientf builds a retryable send failure.
func Transientf(format string, args ...any) error {
	return &SendError{err: fmt.Errorf(format, args...)}
}

// Permanent wraps err as a terminal send failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &SendError{permanent: true, err: err}
}

// Permanentf builds a terminal send failure.
func Permanentf(format string, args ...any) error {
	return &SendError{permanent: true, err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err is classified as a permanent send failure.
// Unclassified errors are not permanent.
func IsPermanent(err error) bool {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Permanent()
	}
	return false
}
