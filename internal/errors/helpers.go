package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// NewValidationError creates a validation error with field context.
// Validation errors surface to API callers as 422 responses.
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewInvalidInputError creates a bad-request error for a malformed or
// missing parameter (400 rather than 422).
func NewInvalidInputError(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewAuthError creates an authentication error
func NewAuthError(reason string) *AppError {
	return New(ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("Invalid API key")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewSourceUnavailableError marks the upstream event source as unreachable.
// This is fatal at startup; recovery is by process restart.
func NewSourceUnavailableError(err error) *AppError {
	return Wrap(err, ErrCodeSourceUnavailable, "event source unavailable").
		WithUserMessage("Event source unavailable")
}

// NewChannelUnavailableError marks a single backfill channel as inaccessible.
// The walker logs it and continues with the remaining channels.
func NewChannelUnavailableError(channelID int64, err error) *AppError {
	return Wrap(err, ErrCodeChannelUnavailable, "channel history unavailable").
		WithContext("channel_id", channelID)
}

// NewTransientWriteError wraps a storage write failure for one event.
// It is contained to that event; at-least-once redelivery makes an
// internal retry unnecessary.
func NewTransientWriteError(messageID string, err error) *AppError {
	return WrapRetryable(err, ErrCodeTransientWrite, "message write failed").
		WithContext("message_id", messageID)
}

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidInput, ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeDatabaseConnection, ErrCodeDatabaseQuery:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorResponse is the standardized HTTP error body
type HTTPErrorResponse struct {
	Error struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Context interface{} `json:"context,omitempty"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ToHTTPResponse converts an error to a standardized HTTP response
func ToHTTPResponse(err error, requestID string) HTTPErrorResponse {
	response := HTTPErrorResponse{
		RequestID: requestID,
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		response.Error.Code = appErr.Code
		response.Error.Message = GetUserMessage(err)
		if len(appErr.Context) > 0 {
			response.Error.Context = appErr.Context
		}
	} else {
		response.Error.Code = ErrCodeInternalError
		response.Error.Message = GetUserMessage(err)
	}

	return response
}
