package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrConfig         ErrorType = "CONFIG_ERROR"
	ErrAuth           ErrorType = "AUTH_FAILED"
	ErrTransient      ErrorType = "TRANSIENT_ERROR"
	ErrData           ErrorType = "DATA_ERROR"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application.
// The Type drives the loop's fatal-vs-recoverable decisions: ErrAuth and
// ErrConfig are fatal, ErrTransient and ErrData are contained.
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
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

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewConfig(msg string, cause error) *AppError {
	return New(ErrConfig, msg, cause)
}

func NewAuth(msg string, cause error) *AppError {
	return New(ErrAuth, msg, cause)
}

func NewTransient(msg string, cause error) *AppError {
	return New(ErrTransient, msg, cause)
}

func NewData(msg string) *AppError {
	return New(ErrData, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsAuth reports whether err is a credential rejection. Auth errors halt the
// sync loop: retrying with the same bad token cannot succeed.
func IsAuth(err error) bool { return isType(err, ErrAuth) }

// IsTransient reports whether err is a network/timeout/rate-limit failure
// that the next scheduled cycle may recover from.
func IsTransient(err error) bool { return isType(err, ErrTransient) }

// IsData reports whether err is a malformed-record failure confined to a
// single opportunity.
func IsData(err error) bool { return isType(err, ErrData) }

func IsNotFound(err error) bool { return isType(err, ErrNotFound) }

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest, ErrData:
		return http.StatusBadRequest
	case ErrAuth:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrConfig:
		return "Check COMMSYNC_* environment variables and config.yaml."
	case ErrAuth:
		return "Check the GoHighLevel access token."
	case ErrTransient:
		return "Retry on the next cycle."
	case ErrData:
		return "Check the opportunity's loan amount custom field."
	default:
		return ""
	}
}
