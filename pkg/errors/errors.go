package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// StatusCode maps the kind onto an HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind              `json:"-"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode lets gin error middleware pick the response status.
func (e *AppError) StatusCode() int {
	return e.Kind.StatusCode()
}

// Is matches on kind and code so sentinel AppErrors work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
		Err:     err,
	}
}

// InvalidTransition reports a status change the lifecycle does not allow.
func InvalidTransition(entity, from, to string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    "invalid_transition",
		Message: fmt.Sprintf("invalid %s transition from %s to %s", entity, from, to),
	}
}

func Validation(message string, fields map[string]string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Fields:  fields,
	}
}

func Unauthenticated(message string) *AppError {
	if message == "" {
		message = "unauthenticated"
	}
	return &AppError{
		Kind:    KindUnauthenticated,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return &AppError{
		Kind:    KindForbidden,
		Message: message,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
var (
	ErrNotFound          = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrConflict          = &AppError{Kind: KindConflict, Message: "conflict"}
	ErrInvalidTransition = &AppError{Kind: KindConflict, Code: "invalid_transition", Message: "invalid transition"}
	ErrUnauthenticated   = &AppError{Kind: KindUnauthenticated, Message: "unauthenticated"}
	ErrForbidden         = &AppError{Kind: KindForbidden, Message: "forbidden"}
	ErrValidation        = &AppError{Kind: KindValidation, Message: "validation failed"}
)

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As is re-exported so callers importing this package under the name errors
// keep access to the standard helpers.
func As(err error, target any) bool { return stderrors.As(err, target) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func New(text string) error { return stderrors.New(text) }
