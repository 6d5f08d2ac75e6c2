// Package errs holds the error classes shared by the pipeline services.
// Consumers classify failures with errors.As and map them to queue outcomes.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError marks malformed or semantically invalid input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransientError is an infrastructure failure (broker, network) worth retrying.
type TransientError struct {
	Op        string
	Completed []string
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s%s: %v", e.Op, completedSuffix(e.Completed), e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for op. A nil err stays nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// PersistenceError reports a failed write to a store. Completed lists the
// side effects that already succeeded before Step failed.
type PersistenceError struct {
	Step      string
	Completed []string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s%s: %v", e.Step, completedSuffix(e.Completed), e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError is a fanout delivery failure. It is logged and counted, never propagated to a queue.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}

func completedSuffix(steps []string) string {
	if len(steps) == 0 {
		return ""
	}
	return " (after " + strings.Join(steps, ", ") + ")"
}
