package kist

import (
	"context"

	"github.com/tbergin/kist/pkg/engine"
)

type ctxKey int

const ctxKeyTxn ctxKey = iota

// txnFromContext returns the ambient scope carried by ctx, or nil.
func txnFromContext(ctx context.Context) *Txn {
	tx, _ := ctx.Value(ctxKeyTxn).(*Txn)
	return tx
}

// Txn is a transaction scope. The top-level scope of a chain owns a native
// engine transaction; nested scopes opened under the same context share it.
// The whole chain commits only when every write scope in it was marked
// Success before closing. Not safe for concurrent use.
type Txn struct {
	store  *Store
	native *engine.Txn
	mode   engine.TxMode
	parent *Txn

	closed    bool
	succeeded bool

	// top scope only
	nestedOpen   int
	nestedFailed bool
}

// Tx opens a transaction scope and returns a derived context carrying it.
// If ctx already carries a scope, the new scope nests inside it: it shares
// the outer native transaction, and a write scope requires the outer chain
// to be in write mode.
func (s *Store) Tx(ctx context.Context, mode engine.TxMode) (*Txn, context.Context, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, ctx, err
	}
	if parent := txnFromContext(ctx); parent != nil {
		if parent.closed {
			return nil, ctx, stateErrf("cannot nest in a closed transaction")
		}
		if mode == engine.TxWrite && parent.top().mode != engine.TxWrite {
			return nil, ctx, stateErrf("cannot open a write transaction inside a read-only one")
		}
		tx := &Txn{store: s, mode: mode, parent: parent}
		parent.top().nestedOpen++
		return tx, context.WithValue(ctx, ctxKeyTxn, tx), nil
	}
	native, err := s.engine.Begin(mode)
	if err != nil {
		return nil, ctx, err
	}
	tx := &Txn{store: s, native: native, mode: mode}
	return tx, context.WithValue(ctx, ctxKeyTxn, tx), nil
}

// TxRead opens a read scope. Shorthand for Tx(ctx, engine.TxRead).
func (s *Store) TxRead(ctx context.Context) (*Txn, context.Context, error) {
	return s.Tx(ctx, engine.TxRead)
}

// TxWrite opens a write scope. Shorthand for Tx(ctx, engine.TxWrite).
func (s *Store) TxWrite(ctx context.Context) (*Txn, context.Context, error) {
	return s.Tx(ctx, engine.TxWrite)
}

// top returns the scope owning the native transaction.
func (tx *Txn) top() *Txn {
	t := tx
	for t.parent != nil {
		t = t.parent
	}
	return t
}

// Mode reports the mode this scope was opened with.
func (tx *Txn) Mode() engine.TxMode { return tx.mode }

// ID returns the identifier of the underlying native transaction.
func (tx *Txn) ID() string { return tx.top().native.ID() }

// Writable reports whether the chain can write.
func (tx *Txn) Writable() bool { return tx.top().mode == engine.TxWrite }

// Success marks this write scope as succeeded. Calling it on a read scope,
// a closed scope, or twice is an error.
func (tx *Txn) Success() error {
	if tx.closed {
		return stateErrf("transaction scope already closed")
	}
	if tx.mode != engine.TxWrite {
		return stateErrf("Success on a read-only transaction")
	}
	if tx.succeeded {
		return stateErrf("Success called twice on the same scope")
	}
	tx.succeeded = true
	return nil
}

// Close ends the scope. Idempotent. For the top-level scope this commits the
// native transaction when every write scope in the chain succeeded, and rolls
// it back otherwise. Closing a nested write scope without Success poisons the
// whole chain.
func (tx *Txn) Close() error {
	if tx.closed {
		return nil
	}
	tx.closed = true

	if tx.parent != nil {
		top := tx.top()
		top.nestedOpen--
		if tx.mode == engine.TxWrite && !tx.succeeded {
			top.nestedFailed = true
		}
		return nil
	}

	if tx.mode == engine.TxWrite && tx.succeeded && !tx.nestedFailed && tx.nestedOpen == 0 {
		return tx.native.Commit()
	}
	tx.native.Close()
	return nil
}

// nativeTxn returns the shared engine transaction, checking the scope chain
// is still usable.
func (tx *Txn) nativeTxn() (*engine.Txn, error) {
	if tx.closed {
		return nil, stateErrf("transaction scope already closed")
	}
	top := tx.top()
	if top.closed || !top.native.Active() {
		return nil, stateErrf("underlying transaction no longer active")
	}
	return top.native, nil
}

// RunInTx runs fn inside a scope derived from ctx, closing it afterwards.
// For write scopes a nil return from fn marks the scope as succeeded, so a
// top-level call commits; returning an error rolls the chain back.
func (s *Store) RunInTx(ctx context.Context, mode engine.TxMode, fn func(ctx context.Context) error) error {
	tx, ctx, err := s.Tx(ctx, mode)
	if err != nil {
		return err
	}
	defer tx.Close()
	if err := fn(ctx); err != nil {
		return err
	}
	if mode == engine.TxWrite {
		if err := tx.Success(); err != nil {
			return err
		}
	}
	return tx.Close()
}
