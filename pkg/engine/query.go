package engine

import (
	"fmt"
	"sort"
)

// compiledCond is an immutable-shape condition node owned by one Query.
// Parameter rebinding mutates operand fields in place; the shape (operators,
// tree structure) never changes after compilation.
type compiledCond struct {
	entity EntityID // entity scope, for parameter addressing
	prop   PropertyID
	op     condOp
	domain PropertyType

	i1, i2   int64
	f1, f2   float64
	str      string
	caseSens bool
	blob     []byte
	ints     []int64
	strs     []string
	vector   []float32
	maxHits  int

	children []*compiledCond
}

// compiledLink is a compiled relation join.
type compiledLink struct {
	relProp  PropertyID
	entity   EntityID
	backlink bool
	roots    []*compiledCond
	links    []*compiledLink
}

// Query is a compiled, reusable query plan. It persists for as long as the
// caller holds it: offset/limit and rebound parameters are stored on the
// query and reused by every execution. Not safe for concurrent use from
// multiple goroutines without external synchronization.
type Query struct {
	engine *Engine
	entity EntityID

	roots  []*compiledCond // implicitly ANDed
	links  []*compiledLink
	orders []orderSpec
	nn     *compiledCond // nearest-neighbors condition, if present

	offset uint64 // 0 = start at the first match
	limit  uint64 // 0 = no limit
}

// Entity returns the entity type the query returns records of.
func (q *Query) Entity() EntityID { return q.entity }

// SetOffset skips the first n matches on Find/FindIDs/Visit. Zero resets to
// the default (no skipping); it is a sentinel, not a literal offset.
func (q *Query) SetOffset(n uint64) { q.offset = n }

// SetLimit caps the number of matches returned by Find/FindIDs/Visit. Zero
// resets to "no limit"; a query can never be limited to zero rows.
func (q *Query) SetLimit(n uint64) { q.limit = n }

// Find returns all matching records. With order directives the result follows
// them; otherwise the order is unspecified.
func (q *Query) Find(txn *Txn) ([]*Record, error) {
	var out []*Record
	err := q.run(txn, true, func(rec *Record) bool {
		out = append(out, rec)
		return true
	})
	return out, err
}

// FindIDs returns the ids of all matching records.
func (q *Query) FindIDs(txn *Txn) ([]RecordID, error) {
	var out []RecordID
	err := q.run(txn, true, func(rec *Record) bool {
		out = append(out, rec.ID)
		return true
	})
	return out, err
}

// Visit invokes fn once per matching record, in order-directive order when
// directives exist. Returning false stops the walk.
func (q *Query) Visit(txn *Txn, fn func(*Record) bool) error {
	return q.run(txn, true, fn)
}

// Count returns the number of matching records. Offset and limit do not
// apply: a limit(10) query still counts every match.
func (q *Query) Count(txn *Txn) (uint64, error) {
	var n uint64
	err := q.run(txn, false, func(*Record) bool {
		n++
		return true
	})
	return n, err
}

// Remove deletes all matching records and returns how many were removed.
// Offset and limit do not apply; the whole match set is removed.
func (q *Query) Remove(txn *Txn) (uint64, error) {
	if err := txn.ensureWritable(); err != nil {
		return 0, err
	}
	var ids []RecordID
	err := q.run(txn, false, func(rec *Record) bool {
		ids = append(ids, rec.ID)
		return true
	})
	if err != nil {
		return 0, err
	}
	cur, err := q.engine.OpenCursor(txn, q.entity)
	if err != nil {
		return 0, err
	}
	var removed uint64
	for _, id := range ids {
		ok, err := cur.Remove(id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// run executes the query within txn. paged=false bypasses offset/limit
// (Count and Remove). Matches stream straight off the cursor when no order
// directives and no distance ranking are in play; otherwise they are
// materialized, sorted and then visited.
func (q *Query) run(txn *Txn, paged bool, fn func(*Record) bool) error {
	if err := q.engine.ensureOpen(); err != nil {
		return err
	}
	cur, err := q.engine.OpenCursor(txn, q.entity)
	if err != nil {
		return err
	}

	streaming := len(q.orders) == 0 && q.nn == nil
	if streaming && paged {
		skip := q.offset
		var emitted uint64
		var matchErr error
		err := cur.Scan(func(rec *Record) bool {
			ok, err := q.matches(txn, rec)
			if err != nil {
				matchErr = err
				return false
			}
			if !ok {
				return true
			}
			if skip > 0 {
				skip--
				return true
			}
			if !fn(rec) {
				return false
			}
			emitted++
			return q.limit == 0 || emitted < q.limit
		})
		if matchErr != nil {
			return matchErr
		}
		return err
	}

	// Materializing path: collect, rank, sort, page.
	var matched []*Record
	var scores []float64
	var matchErr error
	err = cur.Scan(func(rec *Record) bool {
		ok, err := q.matches(txn, rec)
		if err != nil {
			matchErr = err
			return false
		}
		if ok {
			matched = append(matched, rec)
			if q.nn != nil {
				scores = append(scores, nnDistance(q.nn, rec))
			}
		}
		return true
	})
	if matchErr != nil {
		return matchErr
	}
	if err != nil {
		return err
	}

	if q.nn != nil {
		matched = rankNearest(matched, scores, q.nn.maxHits)
	}
	if len(q.orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return lessByOrders(q.orders, matched[i], matched[j])
		})
	}

	if paged {
		if q.offset > 0 {
			if q.offset >= uint64(len(matched)) {
				return nil
			}
			matched = matched[q.offset:]
		}
		if q.limit > 0 && q.limit < uint64(len(matched)) {
			matched = matched[:q.limit]
		}
	}
	for _, rec := range matched {
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

// matches evaluates the full predicate (top-level conditions implicitly
// ANDed, plus all relation links) against one record.
func (q *Query) matches(txn *Txn, rec *Record) (bool, error) {
	for _, c := range q.roots {
		ok, err := matchCond(c, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, l := range q.links {
		ok, err := q.matchLink(txn, l, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchLink evaluates one relation join for a parent record.
func (q *Query) matchLink(txn *Txn, l *compiledLink, parent *Record) (bool, error) {
	cur, err := q.engine.OpenCursor(txn, l.entity)
	if err != nil {
		return false, err
	}

	related := func(rec *Record) (bool, error) {
		for _, c := range l.roots {
			ok, err := matchCond(c, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		for _, nested := range l.links {
			ok, err := q.matchLink(txn, nested, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}

	if l.backlink {
		// Reverse join: does any related record point at the parent?
		found := false
		var visitErr error
		err := cur.Scan(func(rec *Record) bool {
			v := rec.Get(l.relProp)
			if v.Type != TypeInt || RecordID(v.Int) != parent.ID {
				return true
			}
			ok, err := related(rec)
			if err != nil {
				visitErr = err
				return false
			}
			if ok {
				found = true
				return false
			}
			return true
		})
		if visitErr != nil {
			return false, visitErr
		}
		return found, err
	}

	// Forward join: follow the to-one relation property.
	v := parent.Get(l.relProp)
	if v.Type != TypeInt || v.Int == 0 {
		return false, nil
	}
	target, err := cur.Get(RecordID(v.Int))
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return related(target)
}

// ----------------------------------------------------------------------------
// Parameter rebinding
// ----------------------------------------------------------------------------

// rebind walks the query's condition tree and applies set to every leaf on
// (entity, prop). Zero hits is an error: the caller addressed a property the
// query has no condition on.
func (q *Query) rebind(entity EntityID, prop PropertyID, set func(*compiledCond)) error {
	hits := 0
	var walk func(conds []*compiledCond)
	walk = func(conds []*compiledCond) {
		for _, c := range conds {
			if len(c.children) > 0 {
				walk(c.children)
				continue
			}
			if c.entity == entity && c.prop == prop {
				set(c)
				hits++
			}
		}
	}
	var walkLinks func(links []*compiledLink)
	walkLinks = func(links []*compiledLink) {
		for _, l := range links {
			walk(l.roots)
			walkLinks(l.links)
		}
	}
	walk(q.roots)
	walkLinks(q.links)

	if hits == 0 {
		return &Error{Code: CodeIllegalArgument,
			Op:  fmt.Sprintf("set parameter: entity %d property %d", entity, prop),
			Err: ErrParamNotFound}
	}
	return nil
}

// SetParamInt rebinds the integer operand of conditions on (entity, prop).
func (q *Query) SetParamInt(entity EntityID, prop PropertyID, v int64) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.i1 = v })
}

// SetParamTwoInts rebinds both operands of a between condition.
func (q *Query) SetParamTwoInts(entity EntityID, prop PropertyID, lo, hi int64) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.i1, c.i2 = lo, hi })
}

// SetParamFloat rebinds the float operand of conditions on (entity, prop).
func (q *Query) SetParamFloat(entity EntityID, prop PropertyID, v float64) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.f1 = v })
}

// SetParamTwoFloats rebinds both operands of a float between condition.
func (q *Query) SetParamTwoFloats(entity EntityID, prop PropertyID, lo, hi float64) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.f1, c.f2 = lo, hi })
}

// SetParamString rebinds the string operand of conditions on (entity, prop).
// The case-sensitivity flag keeps its compiled value.
func (q *Query) SetParamString(entity EntityID, prop PropertyID, v string) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.str = v })
}

// SetParamStrings rebinds the operand list of an in-strings condition.
func (q *Query) SetParamStrings(entity EntityID, prop PropertyID, vs []string) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.strs = append([]string(nil), vs...) })
}

// SetParamInt64s rebinds the operand list of an in/not-in integer condition.
func (q *Query) SetParamInt64s(entity EntityID, prop PropertyID, vs []int64) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.ints = append([]int64(nil), vs...) })
}

// SetParamBytes rebinds the bytes operand of conditions on (entity, prop).
func (q *Query) SetParamBytes(entity EntityID, prop PropertyID, v []byte) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.blob = append([]byte(nil), v...) })
}

// SetParamVector rebinds the query vector of a nearest-neighbors condition.
func (q *Query) SetParamVector(entity EntityID, prop PropertyID, v []float32) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.vector = append([]float32(nil), v...) })
}

// SetParamMaxNeighbors rebinds the hit cap of a nearest-neighbors condition.
func (q *Query) SetParamMaxNeighbors(entity EntityID, prop PropertyID, maxHits int) error {
	return q.rebind(entity, prop, func(c *compiledCond) { c.maxHits = maxHits })
}
