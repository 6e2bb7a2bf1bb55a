// Package kist is the typed binding over the native engine: condition
// algebra, query building, and transaction scoping.
//
// Conditions are built from typed property factories and combined with And/Or
// into a tree, without touching the engine. Applying the tree to a query
// builder lowers it onto the engine's condition primitives.
//
// Example:
//
//	open := Task.Status.Equals("open", true)
//	urgent := Task.Priority.LessThan(3)
//	q, err := box.Query().Where(open.And(urgent)).Build()
package kist

import "github.com/tbergin/kist/pkg/engine"

// queryOp is the operator tag of a leaf condition. The typed property
// factories only construct (operator, domain) pairs the engine has a
// primitive for; the tag exists so apply can pick that primitive.
type queryOp uint8

const (
	qopEqual queryOp = iota + 1
	qopNotEqual
	qopLess
	qopLessOrEq
	qopGreater
	qopGreaterOrEq
	qopBetween
	qopIn
	qopNotIn
	qopContains
	qopStartsWith
	qopEndsWith
	qopNull
	qopNotNull
	qopNearest
	qopAnyEquals
)

// Condition is one predicate or a combination of predicates over the
// properties of an entity type. Conditions are immutable once built and can
// be combined freely; combining never mutates an operand. A condition is
// applied to a query builder exactly once, by Where.
//
// The interface is closed: only this package's leaf and group types satisfy
// it.
type Condition interface {
	// And combines with AND. When the receiver is already an AND group the
	// result is one flat group extended by rhs; when it is an OR group or a
	// leaf, a new two-child AND group wraps both.
	And(rhs Condition) Condition

	// Or combines with OR, with the mirrored merge/wrap rules of And.
	Or(rhs Condition) Condition

	// apply lowers the condition onto a native builder and returns the
	// native condition id. isRoot marks the implicit top-level position
	// where an AND group needs no explicit combinator.
	apply(qb *engine.Builder, isRoot bool) (engine.ConditionID, error)
}

// leaf is a single comparison on one property. Immutable after construction;
// sharing one leaf between several groups is safe.
type leaf struct {
	entity engine.EntityID
	prop   engine.PropertyID
	op     queryOp
	domain engine.PropertyType

	i1, i2   int64
	f1, f2   float64
	str      string
	caseSens bool
	blob     []byte
	ints     []int64
	strs     []string
	vector   []float32
	maxHits  int
}

func (l *leaf) And(rhs Condition) Condition { return newGroup(false, l, rhs) }
func (l *leaf) Or(rhs Condition) Condition  { return newGroup(true, l, rhs) }

func (l *leaf) apply(qb *engine.Builder, _ bool) (engine.ConditionID, error) {
	if l.entity != qb.Entity() {
		return 0, inputErrf("condition on property %d of entity %d used with entity %d",
			l.prop, l.entity, qb.Entity())
	}
	switch l.op {
	case qopNull:
		return qb.Null(l.prop), nil
	case qopNotNull:
		return qb.NotNull(l.prop), nil
	case qopNearest:
		return qb.NearestNeighbors(l.prop, l.vector, l.maxHits), nil
	}

	switch l.domain {
	case engine.TypeInt:
		switch l.op {
		case qopEqual:
			return qb.EqualsInt(l.prop, l.i1), nil
		case qopNotEqual:
			return qb.NotEqualsInt(l.prop, l.i1), nil
		case qopLess:
			return qb.LessThanInt(l.prop, l.i1), nil
		case qopLessOrEq:
			return qb.LessOrEqInt(l.prop, l.i1), nil
		case qopGreater:
			return qb.GreaterThanInt(l.prop, l.i1), nil
		case qopGreaterOrEq:
			return qb.GreaterOrEqInt(l.prop, l.i1), nil
		case qopBetween:
			return qb.BetweenInts(l.prop, l.i1, l.i2), nil
		case qopIn:
			return qb.InInt64s(l.prop, l.ints), nil
		case qopNotIn:
			return qb.NotInInt64s(l.prop, l.ints), nil
		}
	case engine.TypeFloat:
		switch l.op {
		case qopLess:
			return qb.LessThanFloat(l.prop, l.f1), nil
		case qopLessOrEq:
			return qb.LessOrEqFloat(l.prop, l.f1), nil
		case qopGreater:
			return qb.GreaterThanFloat(l.prop, l.f1), nil
		case qopGreaterOrEq:
			return qb.GreaterOrEqFloat(l.prop, l.f1), nil
		case qopBetween:
			return qb.BetweenFloats(l.prop, l.f1, l.f2), nil
		}
	case engine.TypeString:
		switch l.op {
		case qopEqual:
			return qb.EqualsString(l.prop, l.str, l.caseSens), nil
		case qopNotEqual:
			return qb.NotEqualsString(l.prop, l.str, l.caseSens), nil
		case qopLess:
			return qb.LessThanString(l.prop, l.str, l.caseSens), nil
		case qopLessOrEq:
			return qb.LessOrEqString(l.prop, l.str, l.caseSens), nil
		case qopGreater:
			return qb.GreaterThanString(l.prop, l.str, l.caseSens), nil
		case qopGreaterOrEq:
			return qb.GreaterOrEqString(l.prop, l.str, l.caseSens), nil
		case qopContains:
			return qb.ContainsString(l.prop, l.str, l.caseSens), nil
		case qopStartsWith:
			return qb.StartsWithString(l.prop, l.str, l.caseSens), nil
		case qopEndsWith:
			return qb.EndsWithString(l.prop, l.str, l.caseSens), nil
		case qopIn:
			return qb.InStrings(l.prop, l.strs, l.caseSens), nil
		}
	case engine.TypeBytes:
		switch l.op {
		case qopEqual:
			return qb.EqualsBytes(l.prop, l.blob), nil
		case qopLess:
			return qb.LessThanBytes(l.prop, l.blob), nil
		case qopLessOrEq:
			return qb.LessOrEqBytes(l.prop, l.blob), nil
		case qopGreater:
			return qb.GreaterThanBytes(l.prop, l.blob), nil
		case qopGreaterOrEq:
			return qb.GreaterOrEqBytes(l.prop, l.blob), nil
		}
	case engine.TypeStringVector:
		if l.op == qopAnyEquals {
			return qb.AnyEqualsString(l.prop, l.str, l.caseSens), nil
		}
	}
	// Unreachable through the typed factories; kept as a backstop for a
	// binding defect.
	return 0, stateErrf("condition op %d not supported for %s property %d", l.op, l.domain, l.prop)
}

// group is an AND/OR aggregation over conditions. Groups are born with two
// children and only grow via combine operations; an empty or single-child
// group is never constructed.
type group struct {
	or       bool
	children []Condition
}

func newGroup(or bool, a, b Condition) *group {
	return &group{or: or, children: []Condition{a, b}}
}

// And extends an AND group by one child (copy-on-extend, the receiver stays
// untouched), or wraps an OR group in a new two-child AND group.
func (g *group) And(rhs Condition) Condition {
	if g.or {
		return newGroup(false, g, rhs)
	}
	return g.copyAndPush(rhs)
}

// Or extends an OR group by one child, or wraps an AND group.
func (g *group) Or(rhs Condition) Condition {
	if !g.or {
		return newGroup(true, g, rhs)
	}
	return g.copyAndPush(rhs)
}

// AndInPlace is the discard-aware variant of And for long left-to-right
// chains where the receiver will not be used again: the group is extended
// without copying its children. The resulting tree is structurally identical
// to the one And builds for the same sequence.
func (g *group) AndInPlace(rhs Condition) *group {
	if g.or {
		return newGroup(false, g, rhs)
	}
	g.children = append(g.children, rhs)
	return g
}

// OrInPlace is the discard-aware variant of Or.
func (g *group) OrInPlace(rhs Condition) *group {
	if !g.or {
		return newGroup(true, g, rhs)
	}
	g.children = append(g.children, rhs)
	return g
}

func (g *group) copyAndPush(rhs Condition) *group {
	children := make([]Condition, len(g.children)+1)
	copy(children, g.children)
	children[len(g.children)] = rhs
	return &group{or: g.or, children: children}
}

// apply lowers the group. A group that has collapsed to a single child (only
// possible mid-recursion, never by construction) elides itself. The implicit
// top-level AND is not combined explicitly: the engine treats unconnected
// root conditions as ANDed, and this elision is part of the algebra's
// contract.
func (g *group) apply(qb *engine.Builder, isRoot bool) (engine.ConditionID, error) {
	if len(g.children) == 0 {
		return 0, stateErrf("empty condition group")
	}
	if len(g.children) == 1 {
		return g.children[0].apply(qb, isRoot)
	}

	ids := make([]engine.ConditionID, 0, len(g.children))
	for _, child := range g.children {
		id, err := child.apply(qb, false)
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}

	if isRoot && !g.or {
		return 0, nil
	}
	if g.or {
		return qb.Any(ids)
	}
	return qb.All(ids)
}

// All combines conditions with AND into one flat group. A single condition
// is returned as-is; calling All with no conditions yields nil.
func All(conds ...Condition) Condition {
	return combineFlat(false, conds)
}

// AnyOf combines conditions with OR into one flat group. A single condition
// is returned as-is; calling AnyOf with no conditions yields nil.
func AnyOf(conds ...Condition) Condition {
	return combineFlat(true, conds)
}

func combineFlat(or bool, conds []Condition) Condition {
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	}
	g := newGroup(or, conds[0], conds[1])
	for _, c := range conds[2:] {
		if or {
			g = g.OrInPlace(c)
		} else {
			g = g.AndInPlace(c)
		}
	}
	return g
}
