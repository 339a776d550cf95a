package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a sitesmith error code.
type ErrorCode string

const (
	ErrValidation           ErrorCode = "VALIDATION"             // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrConflict             ErrorCode = "CONFLICT"               // 409
	ErrInvalidData          ErrorCode = "INVALID_DATA"           // 422
	ErrRateLimited          ErrorCode = "RATE_LIMITED"           // 429
	ErrInternal             ErrorCode = "INTERNAL"               // 500
	ErrTransport            ErrorCode = "TRANSPORT"              // 502
	ErrDeploy               ErrorCode = "DEPLOY"                 // 502
	ErrTimeout              ErrorCode = "TIMEOUT"                // 504
	ErrPersistResultWarning ErrorCode = "PERSIST_RESULT_WARNING" // logged only
)

// SiteError represents a structured error with code, status, and details.
type SiteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SiteError) Unwrap() error {
	return e.Err
}

// NewValidation creates a 400 error for bad user input.
func NewValidation(msg string) *SiteError {
	return &SiteError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing site or document.
func NewNotFound(kind, identifier string) *SiteError {
	return &SiteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error, e.g. a page key collision.
func NewConflict(msg string) *SiteError {
	return &SiteError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInvalidData creates a 422 error for malformed stored data.
func NewInvalidData(msg string, cause error) *SiteError {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &SiteError{
		Code:    ErrInvalidData,
		Status:  422,
		Message: msg,
		Err:     cause,
	}
}

// NewRateLimited creates a 429 error.
func NewRateLimited() *SiteError {
	return &SiteError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "too many requests, try again shortly",
	}
}

// NewTransport creates a 502 error for network failures talking to a collaborator.
func NewTransport(op string, cause error) *SiteError {
	return &SiteError{
		Code:    ErrTransport,
		Status:  502,
		Message: fmt.Sprintf("%s failed: %v", op, cause),
		Details: map[string]any{"operation": op},
		Err:     cause,
	}
}

// NewDeploy creates a 502 error embedding the deploy collaborator's status and message.
func NewDeploy(op string, status int, body string) *SiteError {
	return &SiteError{
		Code:    ErrDeploy,
		Status:  502,
		Message: fmt.Sprintf("%s failed (%d): %s", op, status, body),
		Details: map[string]any{"operation": op, "remote_status": status, "remote_message": body},
	}
}

// NewTimeout creates a 504 error when a collaborator call exceeds its deadline.
func NewTimeout(op string, seconds float64) *SiteError {
	return &SiteError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s timed out after %gs - please check your connection", op, seconds),
		Details: map[string]any{"operation": op},
	}
}

// NewPersistResultWarning wraps a post-deploy bookkeeping failure.
// It is logged, never returned to callers.
func NewPersistResultWarning(cause error) *SiteError {
	return &SiteError{
		Code:    ErrPersistResultWarning,
		Status:  200,
		Message: fmt.Sprintf("site is live but recording the published url failed: %v", cause),
		Err:     cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SiteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SiteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error is (or wraps) a SiteError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SiteError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As returns the SiteError in err's chain, or wraps err as INTERNAL.
func As(err error) *SiteError {
	var sErr *SiteError
	if stderrors.As(err, &sErr) {
		return sErr
	}
	return NewInternal(err)
}
