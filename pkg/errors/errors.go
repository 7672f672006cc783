package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrNotAllowed         = errors.New("not allowed")
	ErrBadInput           = errors.New("bad input")
	ErrConflict           = errors.New("resource conflict")
	ErrStorage            = errors.New("storage error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrDeadlineExpired    = errors.New("edit deadline expired")
	ErrDateClosed         = errors.New("date is closed")
	ErrOutOfHorizon       = errors.New("date outside edit horizon")
	ErrUserAbsent         = errors.New("user is absent")
	ErrCapacityExceeded   = errors.New("meal capacity exceeded")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NotAllowed(message string) *AppError {
	return &AppError{
		Err:        ErrNotAllowed,
		Code:       "NOT_ALLOWED",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadInput(message string) *AppError {
	return &AppError{
		Err:        ErrBadInput,
		Code:       "BAD_INPUT",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Storage(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrStorage, err),
		Code:       "STORAGE_ERROR",
		Message:    "storage operation failed",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrBadInput,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:        ErrInvalidCredentials,
		Code:       "INVALID_CREDENTIALS",
		Message:    "invalid NII or password",
		StatusCode: http.StatusUnauthorized,
	}
}

// AccountLocked builds the authentication refusal for a locked account.
// retryAfter is how long until the lock expires.
func AccountLocked(retryAfter time.Duration) *AppError {
	secs := int(retryAfter.Seconds())
	if secs < 0 {
		secs = 0
	}
	return &AppError{
		Err:        ErrAccountLocked,
		Code:       "ACCOUNT_LOCKED",
		Message:    fmt.Sprintf("account locked, retry in %d seconds", secs),
		StatusCode: http.StatusTooManyRequests,
		Details:    map[string]string{"retry_after": fmt.Sprintf("%d", secs)},
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid session token",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "session token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

// Edit-window refusals (booking state machine)

func DeadlineExpired(date string) *AppError {
	return &AppError{
		Err:        ErrDeadlineExpired,
		Code:       "DEADLINE_EXPIRED",
		Message:    fmt.Sprintf("edit deadline for %s has expired", date),
		StatusCode: http.StatusForbidden,
	}
}

func DateClosed(date string) *AppError {
	return &AppError{
		Err:        ErrDateClosed,
		Code:       "DATE_CLOSED",
		Message:    fmt.Sprintf("%s is a closed day", date),
		StatusCode: http.StatusForbidden,
	}
}

func OutOfHorizon(date string) *AppError {
	return &AppError{
		Err:        ErrOutOfHorizon,
		Code:       "OUT_OF_HORIZON",
		Message:    fmt.Sprintf("%s is outside the edit horizon", date),
		StatusCode: http.StatusForbidden,
	}
}

func UserAbsent(date string) *AppError {
	return &AppError{
		Err:        ErrUserAbsent,
		Code:       "USER_ABSENT",
		Message:    fmt.Sprintf("user is absent on %s", date),
		StatusCode: http.StatusForbidden,
	}
}

func CapacityExceeded(meal string) *AppError {
	return &AppError{
		Err:        ErrCapacityExceeded,
		Code:       "CAPACITY_EXCEEDED",
		Message:    fmt.Sprintf("capacity for %s is full", meal),
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
