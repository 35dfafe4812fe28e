package boundedctx

import (
	"fmt"
	"math"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// ValidateNumeric rejects NaN and infinite values (spec.md §4.5
// "validateNumeric"). name identifies the offending argument or option in
// the returned error's message.
func ValidateNumeric(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return bridgeerr.NewProtocol(fmt.Sprintf("%s must be a finite number, got %v", name, v), nil)
	}
	return nil
}

// ValidatePositive rejects zero and negative values.
func ValidatePositive(name string, v float64) error {
	if err := ValidateNumeric(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return bridgeerr.NewProtocol(fmt.Sprintf("%s must be positive, got %v", name, v), nil)
	}
	return nil
}

// ValidateString exists for parity with the other validators; Go's static
// typing already guarantees v is a string at the call site, so it always
// returns nil. The one check left for a string, non-emptiness, is
// ValidateNonEmptyString below.
func ValidateString(name string, v string) error {
	return nil
}

// ValidateNonEmptyString rejects the empty string.
func ValidateNonEmptyString(name string, v string) error {
	if v == "" {
		return bridgeerr.NewProtocol(fmt.Sprintf("%s must be a non-empty string", name), nil)
	}
	return nil
}
