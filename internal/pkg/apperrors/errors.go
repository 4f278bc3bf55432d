package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidRequest   ErrorType = "INVALID_REQUEST"
	ErrAuthFailed       ErrorType = "AUTH_FAILED"
	ErrPermissionDenied ErrorType = "PERMISSION_DENIED"
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrConflict         ErrorType = "CONFLICT"
	ErrReadOnly         ErrorType = "READ_ONLY"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
	ErrInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	Details    []string  `json:"details,omitempty"`
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

func NewInvalidRequest(msg string, details ...string) *AppError {
	e := New(ErrInvalidRequest, msg, nil)
	e.Details = details
	return e
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func NewAuthFailed(msg string) *AppError {
	return New(ErrAuthFailed, msg, nil)
}

func NewPermissionDenied(msg string) *AppError {
	return New(ErrPermissionDenied, msg, nil)
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

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest, ErrConflict:
		// unique violations surface as validation errors
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrPermissionDenied, ErrReadOnly:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrAuthFailed:
		return "Obtain a new access token from /api/token/."
	case ErrPermissionDenied:
		return "This endpoint requires a staff account."
	case ErrReadOnly:
		return "The service is in maintenance mode, retry later."
	case ErrRateLimited:
		return "Slow down and retry after a second."
	default:
		return ""
	}
}
