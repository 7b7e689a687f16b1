package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels of the error taxonomy. Layers wrap them with %w and callers
// classify with errors.Is or KindOf.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrValidation         = errors.New("validation error")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrStatusConflict     = errors.New("status conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInternal           = errors.New("internal error")
)

// Kind is the taxonomy class of an error, stable enough to show to clients.
type Kind string

const (
	KindBadRequest         Kind = "BAD_REQUEST"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindStatusConflict     Kind = "STATUS_CONFLICT"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindInternal           Kind = "INTERNAL_SERVER_ERROR"
)

// kinds is checked in order; the first matching sentinel decides.
var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrValidation, KindBadRequest},
	{ErrBadRequest, KindBadRequest},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrStatusConflict, KindStatusConflict},
	{ErrAlreadyExists, KindStatusConflict},
	{ErrServiceUnavailable, KindServiceUnavailable},
}

// KindOf classifies err. Anything outside the taxonomy, including
// ErrInternal, is KindInternal; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether err is transient and the failed operation may be
// attempted again.
func IsRetryable(err error) bool {
	return KindOf(err) == KindServiceUnavailable
}

// FieldError is a problem with one input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects field problems found while checking input. It
// matches ErrValidation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError reports a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
