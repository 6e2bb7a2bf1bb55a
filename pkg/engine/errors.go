package engine

import (
	"errors"
	"fmt"
)

// Error codes, stable across releases. Callers above the binding layer match
// on these instead of message text.
const (
	CodeStorage         = 10199 // opaque storage failure (badger error wrapped)
	CodeIllegalState    = 10001 // handle closed, moved or misused
	CodeIllegalArgument = 10002 // bad input to an engine call
	CodeNotFound        = 404   // point lookup miss
)

// Error is a coded engine failure. The code survives wrapping so the binding
// can attach operation context without losing the original classification.
type Error struct {
	Code int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine: %s (code %d)", e.Op, e.Code)
	}
	return fmt.Sprintf("engine: %s: %v (code %d)", e.Op, e.Err, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// errStorage wraps an underlying storage failure with CodeStorage.
func errStorage(op string, err error) error {
	return &Error{Code: CodeStorage, Op: op, Err: err}
}

// ErrorCode extracts the engine code from an error chain, or 0.
func ErrorCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

var (
	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrTxClosed is returned when a transaction handle was already
	// committed or closed.
	ErrTxClosed = errors.New("transaction is closed")

	// ErrTxReadOnly is returned by writes through a read transaction.
	ErrTxReadOnly = errors.New("transaction is read-only")

	// ErrNotFound signals a point-lookup miss. Callers treat it as a
	// normal outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrParamNotFound is returned by parameter rebinding when the query's
	// condition tree has no condition on the addressed property.
	ErrParamNotFound = errors.New("no query parameter for property")

	// ErrInvalidCondition signals an (operator, value domain) pairing with
	// no native primitive. The typed factories in the binding make this
	// unreachable; it exists as a backstop.
	ErrInvalidCondition = errors.New("operation not supported for property type")
)
