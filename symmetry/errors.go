package symmetry

import (
	"errors"
	"fmt"
	"strings"
)

// DerivationError reports a generator and system that cannot be combined,
// or an expression that cannot be brought to normal form.
type DerivationError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *DerivationError) Error() string {
	msg := e.Stage + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DerivationError) Unwrap() error { return e.Err }

func derivationError(stage string, err error, format string, args ...interface{}) *DerivationError {
	return &DerivationError{Stage: stage, Reason: fmt.Sprintf(format, args...), Err: err}
}

// ErrInvalidOptions is wrapped by Build for ansatz options it cannot use.
var ErrInvalidOptions = errors.New("invalid ansatz options")

// UnsolvableSystemError reports determining equations whose only solution
// is the zero generator, or that are inconsistent.
type UnsolvableSystemError struct {
	System string
	Reason string
	// Equations holds the equations left when the contradiction was found.
	Equations []string
}

func (e *UnsolvableSystemError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "system %q has no non-trivial symmetry in this ansatz: %s", e.System, e.Reason)
	if n := len(e.Equations); n > 0 {
		fmt.Fprintf(&sb, " (%d equations)", n)
	}
	return sb.String()
}
