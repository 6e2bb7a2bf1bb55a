package engine

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// TxMode selects read or write behavior for a transaction.
type TxMode int

const (
	TxRead TxMode = iota
	TxWrite
)

func (m TxMode) String() string {
	if m == TxWrite {
		return "write"
	}
	return "read"
}

// Txn is a native transaction handle. It has exactly one logical owner, who
// must end it with Commit or Close exactly once; Close after Commit is a
// no-op. Not safe for concurrent use.
//
// Reads inside one Txn observe a single consistent snapshot (badger MVCC).
type Txn struct {
	engine *Engine
	btxn   *badger.Txn
	mode   TxMode
	id     string // for error context only
	done   bool
}

// Begin opens a new transaction in the given mode.
func (e *Engine) Begin(mode TxMode) (*Txn, error) {
	if err := e.ensureOpen(); err != nil {
		return nil, err
	}
	return &Txn{
		engine: e,
		btxn:   e.db.NewTransaction(mode == TxWrite),
		mode:   mode,
		id:     uuid.NewString(),
	}, nil
}

// ID returns the transaction's identifier, used in error context.
func (t *Txn) ID() string { return t.id }

// Mode returns the transaction's mode.
func (t *Txn) Mode() TxMode { return t.mode }

// Active reports whether the transaction can still be used.
func (t *Txn) Active() bool { return !t.done }

// Commit makes the transaction's writes durable and ends it.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	if err := t.btxn.Commit(); err != nil {
		return errStorage("commit txn "+t.id, err)
	}
	return nil
}

// Close discards the transaction without committing. Idempotent.
func (t *Txn) Close() {
	if t.done {
		return
	}
	t.done = true
	t.btxn.Discard()
}

func (t *Txn) ensureActive() error {
	if t.done {
		return ErrTxClosed
	}
	return nil
}

func (t *Txn) ensureWritable() error {
	if err := t.ensureActive(); err != nil {
		return err
	}
	if t.mode != TxWrite {
		return ErrTxReadOnly
	}
	return nil
}
