package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind classifies stored call failures.
type Kind string

const (
	// KindTransport marks network and HTTP-level failures of a whole
	// physical batch.
	KindTransport Kind = "transport"

	// KindProtocol marks malformed or undersized batch responses, null
	// batch slots, and non-list data during pagination.
	KindProtocol Kind = "protocol"

	// KindDecode marks response bodies that are present but not
	// parseable as JSON.
	KindDecode Kind = "decode"

	// KindCancelled marks calls cancelled before being sent.
	KindCancelled Kind = "cancelled"
)

// Sentinels for errors.Is checks against stored call errors.
var (
	ErrTransport = errors.New("batch transport failed")
	ErrProtocol  = errors.New("batch protocol violation")
	ErrDecode    = errors.New("response body not decodable")
	ErrCancelled = errors.New("call cancelled")

	// ErrAlreadyResolved is returned by Cancel on a resolved call.
	ErrAlreadyResolved = errors.New("call already resolved")
)

// Error is a failure stored on a pending call. Call back-references the
// call that carries the error.
type Error struct {
	Kind    Kind
	Call    *Call
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrProtocol:
		return e.Kind == KindProtocol
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrCancelled:
		return e.Kind == KindCancelled
	}
	return false
}

// APIError is the provider's own error envelope, parsed from an otherwise
// successful HTTP exchange. Call back-references the call that carries
// the error.
type APIError struct {
	Call    *Call
	Code    int
	Subcode int
	Type    string
	Message string
	TraceID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("remote API error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("remote API error %d: %s", e.Code, e.Message)
}

// parseEnvelope extracts the provider error envelope from merged response
// fields. Returns nil when the response carries no error.
func parseEnvelope(fields map[string]any) *APIError {
	switch env := fields["error"].(type) {
	case map[string]any:
		code, _ := numeric(env["code"])
		subcode, _ := numeric(env["error_subcode"])
		msg, _ := env["message"].(string)
		typ, _ := env["type"].(string)
		trace, _ := env["fbtrace_id"].(string)
		return &APIError{Code: code, Subcode: subcode, Type: typ, Message: msg, TraceID: trace}
	case string:
		return &APIError{Message: env}
	}

	// Legacy envelope: error_code and error_msg at the top level.
	if raw, ok := fields["error_code"]; ok {
		code, _ := numeric(raw)
		msg, _ := fields["error_msg"].(string)
		return &APIError{Code: code, Message: msg}
	}
	return nil
}

// numeric coerces the number shapes that show up in decoded JSON.
func numeric(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
