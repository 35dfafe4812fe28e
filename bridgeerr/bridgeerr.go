// Package bridgeerr implements the classified error taxonomy every other
// package in this module surfaces through (spec.md §7): Codec, Protocol,
// Execution, Timeout, and Disposed errors, each carrying enough context to
// explain itself to a caller without re-inspecting whatever failed.
package bridgeerr

import (
	"errors"
	"fmt"
)

// Kind is one of the five error taxonomy tags spec.md §7 defines.
type Kind string

const (
	// Codec marks a validation or serialization failure at the boundary
	// (pre-encode or post-decode).
	Codec Kind = "codec"

	// Protocol marks an envelope-shape violation, version mismatch, or
	// transport framing violation.
	Protocol Kind = "protocol"

	// Execution marks a Python-side exception.
	Execution Kind = "execution"

	// Timeout marks timer expiry or abort.
	Timeout Kind = "timeout"

	// Disposed marks an operation attempted on a context post-disposal.
	Disposed Kind = "disposed"
)

// Error is the classified error every package in this module raises. The
// zero value is not useful; construct with one of the New* functions.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Phase and ValueType are populated for Codec errors only
	// (encode|decode, number|bytes|json|payload|arrow per spec.md §7).
	Phase     string
	ValueType string

	// PyType, PyMessage, and PyTraceback are populated for Execution
	// errors, preserving the Python-side exception shape verbatim.
	PyType       string
	PyMessage    string
	PyTraceback  string
	HasTraceback bool

	// StderrTail carries the sanitized rolling stderr diagnostic for
	// transport-originated Protocol errors, when available.
	StderrTail string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// As reports whether err (or something it wraps) is a *Error, returning it.
func As(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// NewCodec constructs a Codec error for the given phase ("encode"/"decode")
// and value-type tag (spec.md §7).
func NewCodec(phase, valueType, message string, cause error) *Error {
	return &Error{Kind: Codec, Message: message, Cause: cause, Phase: phase, ValueType: valueType}
}

// NewProtocol constructs a Protocol error with no stderr tail; use
// NewProtocolWithStderr to attach one.
func NewProtocol(message string, cause error) *Error {
	return &Error{Kind: Protocol, Message: message, Cause: cause}
}

// NewProtocolWithStderr constructs a Protocol error carrying a sanitized
// transport stderr tail (spec.md §4.6 "Failure").
func NewProtocolWithStderr(message string, cause error, stderrTail string) *Error {
	return &Error{Kind: Protocol, Message: message, Cause: cause, StderrTail: stderrTail}
}

// NewExecution constructs an Execution error preserving the Python-side
// exception's type, message, and optional traceback (spec.md §7).
func NewExecution(pyType, pyMessage, pyTraceback string, hasTraceback bool) *Error {
	return &Error{
		Kind:         Execution,
		Message:      pyMessage,
		PyType:       pyType,
		PyMessage:    pyMessage,
		PyTraceback:  pyTraceback,
		HasTraceback: hasTraceback,
	}
}

// NewTimeout constructs a Timeout error.
func NewTimeout(message string, cause error) *Error {
	return &Error{Kind: Timeout, Message: message, Cause: cause}
}

// NewDisposed constructs a Disposed error.
func NewDisposed(message string) *Error {
	return &Error{Kind: Disposed, Message: message}
}

// IsRetryable reports whether err should be retried by a bounded-execution
// retry loop: only Timeout and transient-network-like errors qualify
// (spec.md §4.5 "Retries only on errors classified as timeout or
// transient-network-like"; never Codec or Execution, per §7 "Propagation").
func IsRetryable(err error) bool {
	be, ok := As(err)
	if !ok {
		return false
	}
	return be.Kind == Timeout
}
