package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidRequest matches every *ValidationError.
var ErrInvalidRequest = errors.New("invalid request")

// ErrProviderResponse matches every *ResponseError.
var ErrProviderResponse = errors.New("provider response error")

// unknownField is reported when a provider omits its error type or message.
const unknownField = "unknown"

// ValidationError reports a canonical request the target provider cannot
// serve. It is raised before any network call.
type ValidationError struct {
	Provider string
	Field    string
	Reason   string
	// Err is an optional cause, e.g. ErrUnsupportedOperation for capability gaps.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid request: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: invalid request: %s: %s", e.Provider, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// Unsupported builds a ValidationError for a capability the provider lacks.
func Unsupported(providerName, field, reason string) *ValidationError {
	return &ValidationError{Provider: providerName, Field: field, Reason: reason, Err: ErrUnsupportedOperation}
}

// RequestError wraps any failure while building or sending a request.
type RequestError struct {
	Provider string
	Model    string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: request for model %q failed: %v", e.Provider, e.Model, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Timeout reports whether the cause was a deadline or client timeout.
func (e *RequestError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// StatusError is the cause of a RequestError when a provider answered with a
// non-2xx status and a body that could not be parsed.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// ResponseError reports a provider body that signals failure or cannot be
// interpreted. Type and Message hold the provider's own values, or "unknown".
type ResponseError struct {
	Provider   string
	Type       string
	Message    string
	StatusCode int
}

// NewResponseError builds a ResponseError, defaulting empty fields to "unknown".
func NewResponseError(providerName string, status int, errType, message string) *ResponseError {
	if errType == "" {
		errType = unknownField
	}
	if message == "" {
		message = unknownField
	}
	return &ResponseError{Provider: providerName, Type: errType, Message: message, StatusCode: status}
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s error: [%s] %s", e.Provider, e.Type, e.Message)
}

func (e *ResponseError) Is(target error) bool { return target == ErrProviderResponse }

// Kind classifies an error into the unified taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindRequest
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Classify returns the taxonomy kind of err.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		ve *ValidationError
		qe *RequestError
		re *ResponseError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &re):
		return KindResponse
	case errors.As(err, &qe):
		return KindRequest
	}
	return KindUnknown
}
