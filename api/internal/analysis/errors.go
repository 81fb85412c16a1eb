package analysis

import (
	"fmt"
	"strings"
)

const (
	MsgNoCode      = "No code provided"
	MsgParseFailed = "Failed to parse API response. Please try again."
)

// ValidationError means the caller sent an unusable request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ResponseFormatError means the model output could not be decoded as a JSON object.
// Raw is for logs only and must never be sent back to the caller.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return "model response is not a JSON object: " + e.Err.Error()
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

// SchemaValidationError means the JSON object lacks required keys or has non-string values.
type SchemaValidationError struct {
	Missing []string
	Invalid []string
	Raw     string
}

func (e *SchemaValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("model response does not match schema: %s", strings.Join(parts, "; "))
}

// TransportError wraps failures of the generation client itself.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
