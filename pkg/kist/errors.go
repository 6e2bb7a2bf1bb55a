package kist

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument classifies caller input errors: rebinding a
	// parameter the query does not have, querying through a nil condition,
	// and similar. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState classifies misuse of a handle's lifecycle: building
	// from a non-root builder, Success on a closed or read scope, writing
	// under an ambient read scope. Always a bug in the caller, never
	// retried.
	ErrInvalidState = errors.New("invalid state")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// stateErrf builds an ErrInvalidState with context.
func stateErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// inputErrf builds an ErrInvalidArgument with context.
func inputErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
