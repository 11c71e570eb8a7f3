/*
# Module: types/errors.go
Error taxonomy shared by the places client, normalizer and sweeper.

## Linked Modules
(None - types package has no dependencies)

## Tags
data-types, errors

## Exports
ErrorKind, AuthError, ValidationError, UpstreamError, TransportError, NormalizationError, ClassifyError

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "types/errors.go" ;
    code:description "Error taxonomy shared by the places client, normalizer and sweeper" ;
    code:exports :ErrorKind, :AuthError, :ValidationError, :UpstreamError, :TransportError, :NormalizationError, :ClassifyError ;
    code:tags "data-types", "errors" .
<!-- End LinkedDoc RDF -->
*/
package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for the sweep failure log
type ErrorKind string

const (
	KindAuth          ErrorKind = "auth"
	KindValidation    ErrorKind = "validation"
	KindUpstream      ErrorKind = "upstream"
	KindTransport     ErrorKind = "transport"
	KindNormalization ErrorKind = "normalization"
	KindUnknown       ErrorKind = "unknown"
)

// UpstreamStatus groups non-success HTTP responses
type UpstreamStatus string

const (
	StatusClientError UpstreamStatus = "client_error"
	StatusRateLimited UpstreamStatus = "rate_limited"
	StatusServerError UpstreamStatus = "server_error"
	StatusBadPayload  UpstreamStatus = "bad_payload"
)

// StatusFromCode maps an HTTP status code to an UpstreamStatus
func StatusFromCode(code int) UpstreamStatus {
	switch {
	case code == http.StatusTooManyRequests:
		return StatusRateLimited
	case code >= 500:
		return StatusServerError
	default:
		return StatusClientError
	}
}

// AuthError means the API credential is missing or was rejected.
// It is systemic: every later request would fail the same way.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authorization failed (status=%d): %s", e.StatusCode, e.Message)
	}
	return "authorization failed: " + e.Message
}

// ValidationError means the request parameters were rejected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid parameter: " + e.Message
}

// UpstreamError is a non-success response from the places API
type UpstreamError struct {
	StatusCode int
	Status     UpstreamStatus
	Message    string
	cause      error
}

// NewUpstreamError builds an UpstreamError classified from the status code
func NewUpstreamError(statusCode int, message string, cause error) *UpstreamError {
	if message == "" {
		message = "places API error"
	}
	return &UpstreamError{
		StatusCode: statusCode,
		Status:     StatusFromCode(statusCode),
		Message:    message,
		cause:      cause,
	}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (status=%d, %s)", e.Message, e.StatusCode, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.cause }

// TransportError is a network-level failure
type TransportError struct {
	Message string
	cause   error
}

// NewTransportError wraps a network failure
func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{Message: message, cause: cause}
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error { return e.cause }

// NormalizationError means a raw record has no usable stable identifier
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string {
	return "cannot normalize record: " + e.Reason
}

// ClassifyError returns the ErrorKind for err. Unrecognized errors map to KindUnknown.
func ClassifyError(err error) ErrorKind {
	var (
		authErr      *AuthError
		validErr     *ValidationError
		upstreamErr  *UpstreamError
		transportErr *TransportError
		normErr      *NormalizationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &validErr):
		return KindValidation
	case errors.As(err, &upstreamErr):
		return KindUpstream
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &normErr):
		return KindNormalization
	default:
		return KindUnknown
	}
}
