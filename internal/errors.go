package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"
	ErrorTypeForbidden       ErrorType = "FORBIDDEN"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypeRateLimited     ErrorType = "RATE_LIMITED"
	ErrorTypeUnavailable     ErrorType = "UNAVAILABLE"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrCodeWeakPassword     ErrorCode = "WEAK_PASSWORD"
	ErrCodePasswordReuse    ErrorCode = "PASSWORD_REUSE"
	ErrCodePasswordMismatch ErrorCode = "PASSWORD_MISMATCH"

	ErrCodeInvalidCredentials    ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken          ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired          ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidResetToken     ErrorCode = "INVALID_OR_EXPIRED_RESET_TOKEN"
	ErrCodePasswordChangePending ErrorCode = "PASSWORD_CHANGE_REQUIRED"
	ErrCodeResetCooldown         ErrorCode = "RESET_COOLDOWN_ACTIVE"

	ErrCodeForbiddenScope     ErrorCode = "FORBIDDEN_SCOPE"
	ErrCodeDepartmentMismatch ErrorCode = "DEPARTMENT_MISMATCH"

	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeDuplicateEmail ErrorCode = "DUPLICATE_EMAIL"

	ErrCodeComplaintNotFound ErrorCode = "COMPLAINT_NOT_FOUND"
	ErrCodeAlreadyResolved   ErrorCode = "ALREADY_RESOLVED"
	ErrCodeAlreadyRated      ErrorCode = "ALREADY_RATED"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeBlankAck          ErrorCode = "ACKNOWLEDGMENT_REQUIRED"

	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// AppError is the single error shape that crosses component boundaries.
// Every user-visible failure carries a stable machine-readable type and
// code plus a human-readable message; internals (causes) never serialize.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// GetDetailedMessage flattens field-level validation messages for logs.
func (e *AppError) GetDetailedMessage() string {
	if details, ok := e.Details.(ValidationErrors); ok && len(details.Errors) > 0 {
		messages := make([]string, len(details.Errors))
		for i, err := range details.Errors {
			messages[i] = err.Message
		}
		return strings.Join(messages, "; ")
	}
	return e.Message
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// CooldownDetails rides on RATE_LIMITED responses so clients can render a
// wait timer.
type CooldownDetails struct {
	IsBlocked        bool  `json:"isBlocked"`
	RemainingSeconds int64 `json:"remainingSeconds"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewUnauthenticatedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthenticated,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewRateLimitedError(message string, remainingSeconds int64) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       ErrCodeResetCooldown,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Details:    CooldownDetails{IsBlocked: true, RemainingSeconds: remainingSeconds},
	}
}

func NewUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Code:       ErrCodeStoreUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthenticatedError("invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthenticatedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthenticatedError("token has expired", ErrCodeTokenExpired)
	ErrInvalidResetToken  = NewUnauthenticatedError("invalid or expired reset token", ErrCodeInvalidResetToken)

	ErrForbidden          = NewForbiddenError("insufficient scope for this action", ErrCodeForbiddenScope)
	ErrDepartmentMismatch = NewForbiddenError("department does not match your scope", ErrCodeDepartmentMismatch)

	ErrUserNotFound   = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrDuplicateEmail = NewConflictError("email is already registered", ErrCodeDuplicateEmail)

	ErrComplaintNotFound = NewNotFoundError("complaint not found", ErrCodeComplaintNotFound)
	ErrAlreadyResolved   = NewConflictError("complaint is already resolved", ErrCodeAlreadyResolved)
	ErrAlreadyRated      = NewConflictError("complaint has already been rated", ErrCodeAlreadyRated)
	ErrInvalidState      = NewConflictError("complaint is not in a valid state for this action", ErrCodeInvalidState)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, map[string]interface{}{"success": false, "error": e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
