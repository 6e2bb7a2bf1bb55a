package kist

import (
	"context"
	"fmt"

	"github.com/tbergin/kist/pkg/engine"
)

// Query is a compiled, reusable query. Each execution joins the ambient
// transaction scope carried by ctx, or runs in a short one of its own.
// Parameter setters mutate the query, so share one across goroutines only
// read-only.
type Query struct {
	box    *Box
	native *engine.Query
}

// Offset skips the first n matches on Find, FindIDs and Visit. Zero resets
// to no offset. Count and Remove ignore it.
func (q *Query) Offset(n uint64) *Query {
	q.native.SetOffset(n)
	return q
}

// Limit caps Find, FindIDs and Visit at n matches. Zero resets to unlimited.
// Count and Remove ignore it.
func (q *Query) Limit(n uint64) *Query {
	q.native.SetLimit(n)
	return q
}

// withTxn runs fn inside a scope derived from ctx.
func (q *Query) withTxn(ctx context.Context, mode engine.TxMode, fn func(txn *engine.Txn) error) error {
	tx, _, err := q.box.store.Tx(ctx, mode)
	if err != nil {
		return err
	}
	defer tx.Close()
	native, err := tx.nativeTxn()
	if err != nil {
		return err
	}
	if err := fn(native); err != nil {
		return err
	}
	if mode == engine.TxWrite {
		if err := tx.Success(); err != nil {
			return err
		}
	}
	return tx.Close()
}

// Find returns the matching records, ordered and paged.
func (q *Query) Find(ctx context.Context) ([]*engine.Record, error) {
	var recs []*engine.Record
	err := q.withTxn(ctx, engine.TxRead, func(txn *engine.Txn) error {
		var err error
		recs, err = q.native.Find(txn)
		return err
	})
	return recs, err
}

// FindIDs returns the IDs of the matching records, ordered and paged.
func (q *Query) FindIDs(ctx context.Context) ([]engine.RecordID, error) {
	var ids []engine.RecordID
	err := q.withTxn(ctx, engine.TxRead, func(txn *engine.Txn) error {
		var err error
		ids, err = q.native.FindIDs(txn)
		return err
	})
	return ids, err
}

// Visit streams the matching records to fn until it returns false.
func (q *Query) Visit(ctx context.Context, fn func(*engine.Record) bool) error {
	return q.withTxn(ctx, engine.TxRead, func(txn *engine.Txn) error {
		return q.native.Visit(txn, fn)
	})
}

// Count returns the number of matches, disregarding offset and limit.
func (q *Query) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := q.withTxn(ctx, engine.TxRead, func(txn *engine.Txn) error {
		var err error
		n, err = q.native.Count(txn)
		return err
	})
	return n, err
}

// Remove deletes every match, disregarding offset and limit, and returns how
// many were deleted.
func (q *Query) Remove(ctx context.Context) (uint64, error) {
	var n uint64
	err := q.withTxn(ctx, engine.TxWrite, func(txn *engine.Txn) error {
		var err error
		n, err = q.native.Remove(txn)
		return err
	})
	return n, err
}

// paramErr folds parameter rebinding failures into the binding's error set.
func paramErr(prop Property, err error) error {
	if err == nil {
		return nil
	}
	if engine.ErrorCode(err) == engine.CodeIllegalArgument {
		return fmt.Errorf("%w: set parameter for property %d: %w", ErrInvalidArgument, prop.PropertyID(), err)
	}
	return err
}

// SetInt rebinds every integer condition on prop to v.
func (q *Query) SetInt(prop IntProperty, v int64) error {
	return paramErr(prop, q.native.SetParamInt(prop.EntityID(), prop.PropertyID(), v))
}

// SetInts rebinds the bounds of integer range conditions on prop.
func (q *Query) SetInts(prop IntProperty, lo, hi int64) error {
	return paramErr(prop, q.native.SetParamTwoInts(prop.EntityID(), prop.PropertyID(), lo, hi))
}

// SetInt64List rebinds integer set-membership conditions on prop.
func (q *Query) SetInt64List(prop IntProperty, vs []int64) error {
	return paramErr(prop, q.native.SetParamInt64s(prop.EntityID(), prop.PropertyID(), vs))
}

// SetFloat rebinds every float condition on prop to v.
func (q *Query) SetFloat(prop FloatProperty, v float64) error {
	return paramErr(prop, q.native.SetParamFloat(prop.EntityID(), prop.PropertyID(), v))
}

// SetFloats rebinds the bounds of float range conditions on prop.
func (q *Query) SetFloats(prop FloatProperty, lo, hi float64) error {
	return paramErr(prop, q.native.SetParamTwoFloats(prop.EntityID(), prop.PropertyID(), lo, hi))
}

// SetString rebinds every string condition on prop to v.
func (q *Query) SetString(prop StringProperty, v string) error {
	return paramErr(prop, q.native.SetParamString(prop.EntityID(), prop.PropertyID(), v))
}

// SetStrings rebinds string set-membership conditions on prop.
func (q *Query) SetStrings(prop StringProperty, vs []string) error {
	return paramErr(prop, q.native.SetParamStrings(prop.EntityID(), prop.PropertyID(), vs))
}

// SetBytes rebinds every byte-slice condition on prop to v.
func (q *Query) SetBytes(prop BytesProperty, v []byte) error {
	return paramErr(prop, q.native.SetParamBytes(prop.EntityID(), prop.PropertyID(), v))
}

// SetVector rebinds the nearest-neighbor search vector on prop.
func (q *Query) SetVector(prop VectorProperty, v []float32) error {
	return paramErr(prop, q.native.SetParamVector(prop.EntityID(), prop.PropertyID(), v))
}

// SetMaxNeighbors rebinds the nearest-neighbor hit cap on prop.
func (q *Query) SetMaxNeighbors(prop VectorProperty, maxHits int) error {
	return paramErr(prop, q.native.SetParamMaxNeighbors(prop.EntityID(), prop.PropertyID(), maxHits))
}

// SetRelation rebinds relation-equality conditions on rel to id.
func (q *Query) SetRelation(rel RelationProperty, id engine.RecordID) error {
	return paramErr(rel, q.native.SetParamInt(rel.EntityID(), rel.PropertyID(), int64(id)))
}
