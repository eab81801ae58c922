package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidCredentials is returned when a login does not match a user.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ValidationError reports input that fails domain constraints, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Err returns e as an error, or nil when no field failed.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports a referenced entity that does not exist (or is not
// visible to the caller).
type NotFoundError struct {
	Entity string
	ID     int64
}

// NotFound builds a NotFoundError
func NotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a business rule violation such as starting a second
// timer or deleting a client that still has projects.
type ConflictError struct {
	Message string
}

// Conflict builds a ConflictError
func Conflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string {
	return e.Message
}

// InvalidStateError reports an illegal status transition.
type InvalidStateError struct {
	Entity string
	Status string
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.Status)
}

// InternalError hides an infrastructure failure from callers. The cause is
// kept for logging and errors.Is/As only.
type InternalError struct {
	Op    string
	cause error
}

// Internal wraps cause as an InternalError for operation op.
func Internal(op string, cause error) *InternalError {
	return &InternalError{Op: op, cause: cause}
}

func (e *InternalError) Error() string {
	return "internal error"
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// IsBusiness reports whether err belongs to the expected business taxonomy
// (credentials, validation, not found, conflict, invalid state).
func IsBusiness(err error) bool {
	var (
		v *ValidationError
		n *NotFoundError
		c *ConflictError
		s *InvalidStateError
	)
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.As(err, &v) || errors.As(err, &n) || errors.As(err, &c) || errors.As(err, &s)
}
