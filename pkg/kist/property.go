package kist

import "github.com/tbergin/kist/pkg/engine"

// Condition factories, indexed by property type. An operator a value domain
// does not support simply does not exist on its wrapper, so an illegal
// (operator, domain) pair does not compile.

// ----------------------------------------------------------------------------
// IntProperty
// ----------------------------------------------------------------------------

// Equals matches records whose value is exactly v.
func (p IntProperty) Equals(v int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopEqual, domain: engine.TypeInt, i1: v}
}

// NotEquals matches records whose value differs from v. Records without a
// value do not match.
func (p IntProperty) NotEquals(v int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopNotEqual, domain: engine.TypeInt, i1: v}
}

func (p IntProperty) LessThan(v int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLess, domain: engine.TypeInt, i1: v}
}

func (p IntProperty) LessOrEq(v int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLessOrEq, domain: engine.TypeInt, i1: v}
}

func (p IntProperty) GreaterThan(v int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreater, domain: engine.TypeInt, i1: v}
}

func (p IntProperty) GreaterOrEq(v int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreaterOrEq, domain: engine.TypeInt, i1: v}
}

// Between matches lo <= value <= hi, both ends inclusive.
func (p IntProperty) Between(lo, hi int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopBetween, domain: engine.TypeInt, i1: lo, i2: hi}
}

// In matches records whose value appears in vs.
func (p IntProperty) In(vs ...int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopIn, domain: engine.TypeInt,
		ints: append([]int64(nil), vs...)}
}

// NotIn matches records whose value does not appear in vs.
func (p IntProperty) NotIn(vs ...int64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopNotIn, domain: engine.TypeInt,
		ints: append([]int64(nil), vs...)}
}

// EqualsBool matches a bool stored in the integer domain.
func (p IntProperty) EqualsBool(v bool) Condition {
	return p.Equals(boolToInt(v))
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// ----------------------------------------------------------------------------
// FloatProperty
// ----------------------------------------------------------------------------

func (p FloatProperty) LessThan(v float64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLess, domain: engine.TypeFloat, f1: v}
}

func (p FloatProperty) LessOrEq(v float64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLessOrEq, domain: engine.TypeFloat, f1: v}
}

func (p FloatProperty) GreaterThan(v float64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreater, domain: engine.TypeFloat, f1: v}
}

func (p FloatProperty) GreaterOrEq(v float64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreaterOrEq, domain: engine.TypeFloat, f1: v}
}

// Between matches lo <= value <= hi, both ends inclusive.
func (p FloatProperty) Between(lo, hi float64) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopBetween, domain: engine.TypeFloat, f1: lo, f2: hi}
}

// ----------------------------------------------------------------------------
// StringProperty. Every factory takes a case-sensitivity flag.
// ----------------------------------------------------------------------------

func (p StringProperty) Equals(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopEqual, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

func (p StringProperty) NotEquals(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopNotEqual, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

func (p StringProperty) LessThan(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLess, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

func (p StringProperty) GreaterThan(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreater, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

func (p StringProperty) Contains(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopContains, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

func (p StringProperty) StartsWith(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopStartsWith, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

func (p StringProperty) EndsWith(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopEndsWith, domain: engine.TypeString,
		str: v, caseSens: caseSensitive}
}

// In matches records whose value appears in vs.
func (p StringProperty) In(vs []string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopIn, domain: engine.TypeString,
		strs: append([]string(nil), vs...), caseSens: caseSensitive}
}

// ----------------------------------------------------------------------------
// BytesProperty, compared lexicographically.
// ----------------------------------------------------------------------------

func (p BytesProperty) Equals(v []byte) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopEqual, domain: engine.TypeBytes,
		blob: append([]byte(nil), v...)}
}

func (p BytesProperty) LessThan(v []byte) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLess, domain: engine.TypeBytes,
		blob: append([]byte(nil), v...)}
}

func (p BytesProperty) LessOrEq(v []byte) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopLessOrEq, domain: engine.TypeBytes,
		blob: append([]byte(nil), v...)}
}

func (p BytesProperty) GreaterThan(v []byte) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreater, domain: engine.TypeBytes,
		blob: append([]byte(nil), v...)}
}

func (p BytesProperty) GreaterOrEq(v []byte) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopGreaterOrEq, domain: engine.TypeBytes,
		blob: append([]byte(nil), v...)}
}

// ----------------------------------------------------------------------------
// StringVectorProperty
// ----------------------------------------------------------------------------

// Contains matches records whose array holds at least one element equal to v.
func (p StringVectorProperty) Contains(v string, caseSensitive bool) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopAnyEquals, domain: engine.TypeStringVector,
		str: v, caseSens: caseSensitive}
}

// ----------------------------------------------------------------------------
// VectorProperty
// ----------------------------------------------------------------------------

// NearestNeighbors ranks matches by distance to query and keeps the maxHits
// closest. Combine with other conditions freely; the distance ranking applies
// to the rows that satisfy the rest of the predicate.
func (p VectorProperty) NearestNeighbors(query []float32, maxHits int) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopNearest, domain: engine.TypeFloatVector,
		vector: append([]float32(nil), query...), maxHits: maxHits}
}

// ----------------------------------------------------------------------------
// RelationProperty, conditions on the raw relation id.
// ----------------------------------------------------------------------------

// Equals matches records pointing at the given target id.
func (p RelationProperty) Equals(id engine.RecordID) Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopEqual, domain: engine.TypeInt, i1: int64(id)}
}

// In matches records pointing at any of the given target ids.
func (p RelationProperty) In(ids ...engine.RecordID) Condition {
	vs := make([]int64, len(ids))
	for i, id := range ids {
		vs[i] = int64(id)
	}
	return &leaf{entity: p.entity, prop: p.id, op: qopIn, domain: engine.TypeInt, ints: vs}
}
