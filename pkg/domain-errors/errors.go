// Package domainerrors provides coded errors for domain and service layers.
//
// Services return these so transports can translate failures into protocol
// status codes without inspecting error strings. Infrastructure layers return
// sentinel errors (pkg/platform/sentinel) instead; services wrap those into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for callers and transports.
type Code string

const (
	// CodeInvalidInput marks malformed external input rejected at a parse
	// boundary before it becomes a domain value.
	CodeInvalidInput Code = "invalid_input"

	// CodeValidation marks a request body that failed field-level validation
	// at the transport boundary.
	CodeValidation Code = "validation_error"

	// CodeBadRequest marks a validation failure on otherwise well-formed
	// input (zero amounts, self-referential parties, bad expiry).
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks a caller that failed authentication.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated caller that is not permitted to
	// perform the operation (wrong principal for a restricted call).
	CodeForbidden Code = "forbidden"

	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"

	// CodeConflict marks an operation that collides with existing state
	// (duplicate registration, already-present allowlist entry).
	CodeConflict Code = "conflict"

	// CodeInvalidState marks an entity in the wrong state for the requested
	// transition (not active, not yet expired, target not met).
	CodeInvalidState Code = "invalid_state"

	// CodeComplianceFailed is the single opaque compliance rejection. The
	// specific rule that tripped is intentionally not disclosed.
	CodeComplianceFailed Code = "compliance_failed"

	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal_error"

	// CodeTimeout marks an operation that exceeded its deadline.
	CodeTimeout Code = "timeout"
)

// GatewayError is a coded error carrying an optional wrapped cause.
type GatewayError struct {
	Code    Code
	Message string
	Err     error
}

func (e GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e GatewayError) Unwrap() error {
	return e.Err
}

// Is makes two GatewayErrors equivalent when their codes match, so callers can
// use errors.Is against package-level named failures.
func (e GatewayError) Is(target error) bool {
	var t GatewayError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New constructs a coded error with no underlying cause.
func New(code Code, message string) error {
	return GatewayError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return GatewayError{Code: code, Message: message, Err: err}
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	var gw GatewayError
	return errors.As(err, &gw) && gw.Code == code
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var gw GatewayError
	if errors.As(err, &gw) {
		return gw.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to an HTTP status for transport handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeComplianceFailed:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
