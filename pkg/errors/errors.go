package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is matches errors sharing the same code, so clones with adjusted
// messages still compare equal to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Domain taxonomy shared by enrollment, group membership, content access
// and the event workflow. All of these are expected, recoverable outcomes.
var (
	ErrNotEnrolled     = New("NOT_ENROLLED", http.StatusForbidden, "not enrolled in subject")
	ErrForbidden       = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrGroupFull       = New("GROUP_FULL", http.StatusConflict, "study group is full")
	ErrDuplicateMember = New("DUPLICATE_MEMBER", http.StatusConflict, "user already has a membership in this group")
	ErrDuplicateRSVP   = New("DUPLICATE_RSVP", http.StatusConflict, "attendance already registered")
	ErrInvalidGrade    = New("INVALID_GRADE", http.StatusBadRequest, "grade must be between 0 and 20")
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrCourseMismatch  = New("COURSE_MISMATCH", http.StatusForbidden, "subject belongs to a different course")
)

// Auth and infrastructure errors.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
