package kist

import (
	"context"
	"errors"

	"github.com/tbergin/kist/pkg/engine"
)

// Cursor is a cursor scope: a transaction scope plus direct record access for
// one entity. It participates in the same success/close protocol as Txn.
// Not safe for concurrent use.
type Cursor struct {
	txn    *Txn
	cursor *engine.Cursor
	entity Entity
}

// Cursor opens a cursor scope for this box, nesting in any scope ctx carries.
// The returned context carries the cursor's transaction scope.
func (b *Box) Cursor(ctx context.Context, mode engine.TxMode) (*Cursor, context.Context, error) {
	tx, ctx, err := b.store.Tx(ctx, mode)
	if err != nil {
		return nil, ctx, err
	}
	native, err := tx.nativeTxn()
	if err != nil {
		tx.Close()
		return nil, ctx, err
	}
	cur, err := b.store.engine.OpenCursor(native, b.entity.ID)
	if err != nil {
		tx.Close()
		return nil, ctx, err
	}
	return &Cursor{txn: tx, cursor: cur, entity: b.entity}, ctx, nil
}

// Txn returns the cursor's transaction scope.
func (c *Cursor) Txn() *Txn { return c.txn }

// Success marks the cursor's scope as succeeded. See Txn.Success.
func (c *Cursor) Success() error { return c.txn.Success() }

// Close ends the cursor's scope. Idempotent. See Txn.Close.
func (c *Cursor) Close() error { return c.txn.Close() }

func (c *Cursor) ensureUsable() error {
	_, err := c.txn.nativeTxn()
	return err
}

// Get reads one record. A missing ID yields (nil, nil).
func (c *Cursor) Get(id engine.RecordID) (*engine.Record, error) {
	if err := c.ensureUsable(); err != nil {
		return nil, err
	}
	rec, err := c.cursor.Get(id)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Put writes a record, assigning a fresh ID when rec.ID is zero. Returns the
// record's ID.
func (c *Cursor) Put(rec *engine.Record) (engine.RecordID, error) {
	if err := c.ensureUsable(); err != nil {
		return 0, err
	}
	if !c.txn.Writable() {
		return 0, stateErrf("put in a read-only transaction")
	}
	return c.cursor.Put(rec)
}

// Remove deletes one record, reporting whether it existed.
func (c *Cursor) Remove(id engine.RecordID) (bool, error) {
	if err := c.ensureUsable(); err != nil {
		return false, err
	}
	if !c.txn.Writable() {
		return false, stateErrf("remove in a read-only transaction")
	}
	return c.cursor.Remove(id)
}

// RemoveAll deletes every record of the entity, returning how many there were.
func (c *Cursor) RemoveAll() (uint64, error) {
	if err := c.ensureUsable(); err != nil {
		return 0, err
	}
	if !c.txn.Writable() {
		return 0, stateErrf("remove in a read-only transaction")
	}
	n, err := c.cursor.RemoveAll()
	return uint64(n), err
}

// Count returns the number of records of the entity.
func (c *Cursor) Count() (uint64, error) {
	if err := c.ensureUsable(); err != nil {
		return 0, err
	}
	var n uint64
	err := c.cursor.Scan(func(*engine.Record) bool {
		n++
		return true
	})
	return n, err
}

// Visit calls visit for each record in ID order until it returns false.
func (c *Cursor) Visit(visit func(*engine.Record) bool) error {
	if err := c.ensureUsable(); err != nil {
		return err
	}
	return c.cursor.Scan(visit)
}
