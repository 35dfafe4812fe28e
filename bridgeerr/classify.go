package bridgeerr

import (
	"regexp"

	"github.com/hashicorp/go-multierror"
)

// timeoutPattern and protocolPattern implement spec.md §4.5's error
// classification patterns. Matching is case-insensitive ((?i)) against the
// error text as-is, since the thrown values this classifies
// originate from varied sources (stdlib errors, subprocess stderr,
// third-party libraries) with no shared casing convention.
var (
	timeoutPattern      = regexp.MustCompile(`(?i)timeout|etimedout|timed out|aborted`)
	protocolPattern     = regexp.MustCompile(`(?i)protocol|invalid json|parse error|unexpected token|not found`)
	transientNetPattern = regexp.MustCompile(`(?i)econnreset|epipe|econnrefused|connection reset|broken pipe`)
)

// Classify maps an arbitrary error to a classified *Error (spec.md §4.5
// "Error classification"). An already-classified error passes through
// unchanged; a disposed context takes priority over pattern matching;
// otherwise the message is matched against the timeout, transient-network
// (also classified as Timeout), and protocol patterns in that order,
// falling back to Execution. The original error is preserved as Cause.
func Classify(err error, disposed bool) *Error {
	if err == nil {
		return nil
	}
	if be, ok := As(err); ok {
		return be
	}

	if disposed {
		return &Error{Kind: Disposed, Message: err.Error(), Cause: err}
	}

	msg := err.Error()
	switch {
	case timeoutPattern.MatchString(msg):
		return &Error{Kind: Timeout, Message: msg, Cause: err}
	case transientNetPattern.MatchString(msg):
		return &Error{Kind: Timeout, Message: msg, Cause: err}
	case protocolPattern.MatchString(msg):
		return &Error{Kind: Protocol, Message: msg, Cause: err}
	default:
		return &Error{Kind: Execution, Message: msg, Cause: err, PyMessage: msg}
	}
}

// Aggregate combines per-resource disposal failures into a single error
// (spec.md §4.5 "aggregates per-resource failures into a single or
// aggregate error"), preserving each cause. Returns nil when errs is empty
// or contains only nils.
func Aggregate(errs []error) error {
	var merged *multierror.Error
	for _, e := range errs {
		if e != nil {
			merged = multierror.Append(merged, e)
		}
	}
	if merged == nil {
		return nil
	}
	return merged
}
