package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error classes shared by every service. Handlers map them to status codes with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInfrastructure = errors.New("infrastructure failure")
)

// InfraError wraps a store, signing or broker failure. It never carries an auth decision.
type InfraError struct {
	Op  string
	Err error
}

func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *InfraError
	if errors.As(err, &ie) {
		return err
	}
	return &InfraError{Op: op, Err: err}
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error { return e.Err }

func (e *InfraError) Is(target error) bool { return target == ErrInfrastructure }

// Retryable reports whether the caller may simply try again (timeouts, cancelled store calls).
func (e *InfraError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) || errors.Is(e.Err, context.Canceled)
}

// classified is an error with a caller-facing message that matches one error class.
type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string        { return e.msg }
func (e *classified) Is(target error) bool { return target == e.class }

// New returns an error reporting msg that errors.Is matches against class.
func New(class error, msg string) error {
	return &classified{class: class, msg: msg}
}

func Validation(msg string, args ...any) error {
	return New(ErrValidation, fmt.Sprintf(msg, args...))
}

// IsRetryable reports whether err is an infrastructure failure worth retrying.
func IsRetryable(err error) bool {
	var ie *InfraError
	return errors.As(err, &ie) && ie.Retryable()
}
