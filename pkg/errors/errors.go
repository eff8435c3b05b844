package errors

import (
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrProvider
	ErrTokenRefresh
	ErrReconnectRequired
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// Provider wraps an error-shaped response from an external API
// (Facebook Graph, Google OAuth/Sheets). The provider's own message is
// kept so the caller sees it verbatim.
func Provider(provider, message string) *AppError {
	return &AppError{
		Code:    ErrProvider,
		Message: fmt.Sprintf("%s: %s", provider, message),
	}
}

// TokenRefreshFailed marks a failed OAuth refresh exchange. It is not
// retried and does not deactivate the integration on its own.
func TokenRefreshFailed(provider string, err error) *AppError {
	return &AppError{
		Code:    ErrTokenRefresh,
		Message: fmt.Sprintf("%s token refresh failed", provider),
		Err:     err,
	}
}

// ReconnectRequired signals an expired credential with no refresh
// token; the user has to go through the OAuth flow again.
func ReconnectRequired(provider string) *AppError {
	return &AppError{
		Code:    ErrReconnectRequired,
		Message: fmt.Sprintf("%s connection expired, reconnect required", provider),
	}
}

// HTTPStatus maps an error code to the HTTP status it should surface as.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrNotFound:
		return 404
	case ErrBadRequest:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrForbidden:
		return 403
	case ErrProvider, ErrTokenRefresh:
		return 502
	case ErrReconnectRequired:
		return 409
	default:
		return 500
	}
}
