package rag

import (
	"errors"
	"fmt"
)

// Sentinel errors matched against the server's error codes.
// Use errors.Is() to check.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("document not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrProvider     = errors.New("provider error")
	ErrStorage      = errors.New("storage unavailable")
	ErrServer       = errors.New("server error")
)

// APIError is a structured error response from the service.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // wire error code, e.g. "validation_failed"
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rag: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
}

// Unwrap maps the wire error code to a package sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		return ErrValidation
	case "document_not_found":
		return ErrNotFound
	case "unauthorized":
		return ErrUnauthorized
	case "rate_limited":
		return ErrRateLimited
	case "embedding_provider_error", "generation_provider_error":
		return ErrProvider
	case "storage_unavailable":
		return ErrStorage
	default:
		return ErrServer
	}
}
