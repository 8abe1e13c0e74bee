package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Details []string `json:"details,omitempty"`
	Err     error    `json:"-"`
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

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Enrollment rejections. These are expected business outcomes, not faults:
// each aborts the admission transaction with no partial writes and is
// reported to the caller as-is.
var (
	ErrInactiveCareer            = New("INACTIVE_CAREER", http.StatusUnprocessableEntity, "student has no active career")
	ErrInactiveSection           = New("INACTIVE_SECTION", http.StatusUnprocessableEntity, "section is not active")
	ErrWrongCareer               = New("WRONG_CAREER", http.StatusUnprocessableEntity, "section does not belong to the student's career")
	ErrNoCapacity                = New("NO_CAPACITY", http.StatusConflict, "section has no available seats")
	ErrAlreadyEnrolledSection    = New("ALREADY_ENROLLED_SECTION", http.StatusConflict, "student is already enrolled in this section")
	ErrAlreadyEnrolledCourseTerm = New("ALREADY_ENROLLED_COURSE_TERM", http.StatusConflict, "student is already enrolled in this course for the term")
	ErrCourseAlreadyApproved     = New("COURSE_ALREADY_APPROVED", http.StatusUnprocessableEntity, "student has already approved this course")
	ErrUnmetPrerequisites        = New("UNMET_PREREQUISITES", http.StatusUnprocessableEntity, "prerequisite courses not approved")
	ErrEnrollmentInactive        = New("ENROLLMENT_INACTIVE", http.StatusConflict, "enrollment is already withdrawn")
	ErrSectionBusy               = New("SECTION_BUSY", http.StatusServiceUnavailable, "section is locked by another enrollment, retry")
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

// WithDetails returns a copy of the error carrying structured detail values,
// e.g. the names of unmet prerequisite courses.
func WithDetails(err *Error, details ...string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = append([]string(nil), details...)
	return &clone
}
