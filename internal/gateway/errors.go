package gateway

import (
	"errors"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

// Kind classifies gateway failures
type Kind string

const (
	KindNone            Kind = ""
	KindTransport       Kind = "transport"
	KindInvalidResponse Kind = "invalid_response"
)

// TransportError wraps a failure to reach the model or a refusal by the provider
type TransportError struct {
	Tool catalog.Tool
	Err  error
}

func (e *TransportError) Error() string {
	return "model request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidResponseError reports a response that could not be parsed into the tool's output.
// Raw holds the model text for diagnostics and is never shown to users.
type InvalidResponseError struct {
	Tool   catalog.Tool
	Raw    string
	Reason string
	Err    error
}

func (e *InvalidResponseError) Error() string {
	switch e.Reason {
	case reasonSchema, reasonDecode:
		return "The response from the AI did not match the expected format."
	default:
		return "The response from the AI was not valid JSON."
	}
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

const (
	reasonSyntax = "syntax"
	reasonSchema = "schema"
	reasonDecode = "decode"
	reasonEmpty  = "empty"
)

// KindOf returns the failure class of err, or KindNone if it did not come from the gateway
func KindOf(err error) Kind {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return KindTransport
	}
	var iErr *InvalidResponseError
	if errors.As(err, &iErr) {
		return KindInvalidResponse
	}
	return KindNone
}
