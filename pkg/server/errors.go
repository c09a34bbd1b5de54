package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

// ErrorType classifies management-API failures.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
)

// ServerError is the management API's structured error shape.
type ServerError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp int64     `json:"timestamp"`
}

func (e *ServerError) Error() string {
	if e.Details != "" {
		return string(e.Type) + ": " + e.Message + " (" + e.Details + ")"
	}
	return string(e.Type) + ": " + e.Message
}

// NewError builds a ServerError with a fresh request ID.
func NewError(errType ErrorType, message, details string) *ServerError {
	return &ServerError{
		Type:      errType,
		Message:   message,
		Details:   details,
		RequestID: uuid.NewString(),
		Timestamp: time.Now().Unix(),
	}
}

// Wrap converts a plain error into a ServerError. Nil stays nil.
func Wrap(err error, errType ErrorType, message string) *ServerError {
	if err == nil {
		return nil
	}
	return NewError(errType, message, err.Error())
}

// statusFor maps an error type to its HTTP status.
func statusFor(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders a ServerError as the management API's JSON error
// response and logs it with its request ID.
func WriteError(w http.ResponseWriter, serverErr *ServerError) {
	log.Warn().
		Str("request_id", serverErr.RequestID).
		Str("type", string(serverErr.Type)).
		Str("message", serverErr.Message).
		Msg("management request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(serverErr.Type))
	if err := json.NewEncoder(w).Encode(serverErr); err != nil {
		log.Error().Err(err).Msg("failed to encode error response")
	}
}

// IsType reports whether err is a ServerError of the given type.
func IsType(err error, errType ErrorType) bool {
	serverErr, ok := err.(*ServerError)
	return ok && serverErr.Type == errType
}
