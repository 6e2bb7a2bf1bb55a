package kist

import (
	"context"

	"github.com/tbergin/kist/pkg/engine"
)

// Box is the per-entity CRUD surface. Every method joins the ambient
// transaction scope carried by ctx, or runs in a short-lived one of its own.
type Box struct {
	store  *Store
	entity Entity
}

// Entity returns the entity type this box serves.
func (b *Box) Entity() Entity { return b.entity }

// withCursor runs fn with a cursor scope derived from ctx, marking success
// on a nil return so ambient write chains stay healthy.
func (b *Box) withCursor(ctx context.Context, mode engine.TxMode, fn func(c *Cursor) error) error {
	c, _, err := b.Cursor(ctx, mode)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := fn(c); err != nil {
		return err
	}
	if mode == engine.TxWrite {
		if err := c.Success(); err != nil {
			return err
		}
	}
	return c.Close()
}

// Get reads one record. A missing ID yields (nil, nil).
func (b *Box) Get(ctx context.Context, id engine.RecordID) (*engine.Record, error) {
	var rec *engine.Record
	err := b.withCursor(ctx, engine.TxRead, func(c *Cursor) error {
		var err error
		rec, err = c.Get(id)
		return err
	})
	return rec, err
}

// GetAll returns every record of the entity in ID order.
func (b *Box) GetAll(ctx context.Context) ([]*engine.Record, error) {
	var recs []*engine.Record
	err := b.withCursor(ctx, engine.TxRead, func(c *Cursor) error {
		return c.Visit(func(rec *engine.Record) bool {
			recs = append(recs, rec)
			return true
		})
	})
	return recs, err
}

// Put writes one record, assigning a fresh ID when rec.ID is zero, and
// returns the record's ID.
func (b *Box) Put(ctx context.Context, rec *engine.Record) (engine.RecordID, error) {
	var id engine.RecordID
	err := b.withCursor(ctx, engine.TxWrite, func(c *Cursor) error {
		var err error
		id, err = c.Put(rec)
		return err
	})
	return id, err
}

// PutAll writes records in one transaction, returning their IDs in order.
func (b *Box) PutAll(ctx context.Context, recs []*engine.Record) ([]engine.RecordID, error) {
	ids := make([]engine.RecordID, 0, len(recs))
	err := b.withCursor(ctx, engine.TxWrite, func(c *Cursor) error {
		for _, rec := range recs {
			id, err := c.Put(rec)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Count returns the number of records of the entity.
func (b *Box) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := b.withCursor(ctx, engine.TxRead, func(c *Cursor) error {
		var err error
		n, err = c.Count()
		return err
	})
	return n, err
}

// Remove deletes one record, reporting whether it existed.
func (b *Box) Remove(ctx context.Context, id engine.RecordID) (bool, error) {
	var existed bool
	err := b.withCursor(ctx, engine.TxWrite, func(c *Cursor) error {
		var err error
		existed, err = c.Remove(id)
		return err
	})
	return existed, err
}

// RemoveAll deletes every record of the entity, returning how many there were.
func (b *Box) RemoveAll(ctx context.Context) (uint64, error) {
	var n uint64
	err := b.withCursor(ctx, engine.TxWrite, func(c *Cursor) error {
		var err error
		n, err = c.RemoveAll()
		return err
	})
	return n, err
}

// Query starts a query builder for the entity.
func (b *Box) Query() *QueryBuilder {
	return newQueryBuilder(b)
}
