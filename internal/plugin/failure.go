package plugin

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// UserErrorMessage is the only text the host ever sees for a failed
// invocation.
const UserErrorMessage = "An error occurred while processing this request. Please contact your system administrator."

// Failure is the one error type that crosses the host boundary. Its message
// is fixed; the cause stays reachable through Unwrap for in-process callers
// and is never rendered by Error.
type Failure struct {
	cause error
}

func (f *Failure) Error() string { return UserErrorMessage }

func (f *Failure) Unwrap() error { return f.cause }

// Fail wraps cause in a Failure. A Failure anywhere in cause's chain is
// returned unchanged.
func Fail(cause error) error {
	if f := AsFailure(cause); f != nil {
		return f
	}
	return &Failure{cause: cause}
}

// IsFailure reports whether err is or wraps a Failure.
func IsFailure(err error) bool {
	return AsFailure(err) != nil
}

// AsFailure extracts the Failure from err's chain, or nil.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// PanicError is a recovered panic. The stack is captured at recovery time.
type PanicError struct {
	Value any
	stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, stack: debug.Stack()}
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

func (p *PanicError) PanicValue() any { return p.Value }

func (p *PanicError) StackText() string { return string(p.stack) }

// Unwrap exposes the panic value when it was itself an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
