package domain

import (
	"errors"
	"fmt"
)

// AdapterError is the single structured error kind for the adapter layer.
// It covers unsupported operations, non-2xx provider responses, factory
// resolution failures, and OAuth2 token-exchange failures. Message never
// contains credentials; ResponseBody carries the raw provider body for
// diagnosis.
type AdapterError struct {
	Provider     string
	Message      string
	HTTPStatus   int
	ResponseBody string
	Unsupported  bool
}

func (e *AdapterError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s: %s (http %d)", e.Provider, e.Message, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// NewAdapterError builds a plain adapter error with no HTTP context.
func NewAdapterError(provider Provider, message string) *AdapterError {
	return &AdapterError{Provider: string(provider), Message: message}
}

// NewHTTPError builds an adapter error from a non-2xx provider response.
func NewHTTPError(provider Provider, message string, httpStatus int, body string) *AdapterError {
	return &AdapterError{
		Provider:     string(provider),
		Message:      message,
		HTTPStatus:   httpStatus,
		ResponseBody: body,
	}
}

// NewUnsupportedError marks an operation outside the provider's advertised
// capabilities.
func NewUnsupportedError(provider Provider, operation, reason string) *AdapterError {
	msg := fmt.Sprintf("%s is not supported", operation)
	if reason != "" {
		msg = fmt.Sprintf("%s is not supported: %s", operation, reason)
	}
	return &AdapterError{Provider: string(provider), Message: msg, Unsupported: true}
}

// NewFactoryError builds an adapter error attributed to the factory itself
// (no active gateway, unknown provider identifier).
func NewFactoryError(message string) *AdapterError {
	return &AdapterError{Provider: "factory", Message: message}
}

// IsUnsupported reports whether err is an unsupported-operation AdapterError.
func IsUnsupported(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Unsupported
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrExternalService indicates a failure in an external collaborator
// (persistence, decryption), as opposed to a payment provider.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}
