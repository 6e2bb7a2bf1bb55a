package engine

import "fmt"

// ConditionID references a condition created on a Builder. Ids are local to
// one builder; zero is never a valid id (the binding uses zero for "the
// implicit root AND", which has no explicit condition).
type ConditionID int32

// condOp enumerates condition operators. Combinators (opAll/opAny) live in
// the same space so a condition tree is one node type.
type condOp uint8

const (
	opEqual condOp = iota + 1
	opNotEqual
	opLess
	opLessOrEq
	opGreater
	opGreaterOrEq
	opBetween
	opIn
	opNotIn
	opContains
	opStartsWith
	opEndsWith
	opNull
	opNotNull
	opNearest
	opAnyEquals // string-vector element equality

	opAll // combinator: all children match
	opAny // combinator: any child matches
)

func (o condOp) String() string {
	names := map[condOp]string{
		opEqual: "equal", opNotEqual: "notEqual", opLess: "less",
		opLessOrEq: "lessOrEq", opGreater: "greater", opGreaterOrEq: "greaterOrEq",
		opBetween: "between", opIn: "in", opNotIn: "notIn",
		opContains: "contains", opStartsWith: "startsWith", opEndsWith: "endsWith",
		opNull: "null", opNotNull: "notNull", opNearest: "nearestNeighbors",
		opAnyEquals: "anyEquals", opAll: "all", opAny: "any",
	}
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// condition is one node in a builder's condition store: either a leaf
// comparison on a property or a combinator over other conditions.
type condition struct {
	id     ConditionID
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

	children []ConditionID // combinators only
}

// link is a join to a related entity: conditions accumulated on the child
// builder constrain the parent query through the relation property.
type link struct {
	relProp  PropertyID
	entity   EntityID // the related entity the child builder is scoped to
	backlink bool     // reverse direction: related records point at the parent
	builder  *Builder
}

// Builder accumulates conditions, order directives and relation links for one
// entity type, then compiles them into an immutable Query. A Builder is not
// safe for concurrent use. Conditions created on it and never passed to a
// combinator are implicitly ANDed at the top level.
type Builder struct {
	engine *Engine
	entity EntityID
	root   bool

	nextID   ConditionID
	conds    map[ConditionID]*condition
	order    []ConditionID // creation order, for deterministic root collection
	consumed map[ConditionID]bool
	orders   []orderSpec
	links    []*link
}

// NewBuilder opens a root query builder for the given entity type.
func (e *Engine) NewBuilder(entity EntityID) (*Builder, error) {
	if err := e.ensureOpen(); err != nil {
		return nil, err
	}
	return newBuilder(e, entity, true), nil
}

func newBuilder(e *Engine, entity EntityID, root bool) *Builder {
	return &Builder{
		engine:   e,
		entity:   entity,
		root:     root,
		conds:    make(map[ConditionID]*condition),
		consumed: make(map[ConditionID]bool),
	}
}

// Entity returns the entity type the builder is scoped to.
func (b *Builder) Entity() EntityID { return b.entity }

// IsRoot reports whether this builder was opened directly (true) or produced
// by a relation link (false). Only root builders compile.
func (b *Builder) IsRoot() bool { return b.root }

func (b *Builder) add(c *condition) ConditionID {
	b.nextID++
	c.id = b.nextID
	b.conds[c.id] = c
	b.order = append(b.order, c.id)
	return c.id
}

// ----------------------------------------------------------------------------
// Condition primitives, one per (value domain, operator) pair.
// ----------------------------------------------------------------------------

// Integer domain (also bool and date-as-millis).

func (b *Builder) EqualsInt(prop PropertyID, v int64) ConditionID {
	return b.add(&condition{prop: prop, op: opEqual, domain: TypeInt, i1: v})
}

func (b *Builder) NotEqualsInt(prop PropertyID, v int64) ConditionID {
	return b.add(&condition{prop: prop, op: opNotEqual, domain: TypeInt, i1: v})
}

func (b *Builder) LessThanInt(prop PropertyID, v int64) ConditionID {
	return b.add(&condition{prop: prop, op: opLess, domain: TypeInt, i1: v})
}

func (b *Builder) LessOrEqInt(prop PropertyID, v int64) ConditionID {
	return b.add(&condition{prop: prop, op: opLessOrEq, domain: TypeInt, i1: v})
}

func (b *Builder) GreaterThanInt(prop PropertyID, v int64) ConditionID {
	return b.add(&condition{prop: prop, op: opGreater, domain: TypeInt, i1: v})
}

func (b *Builder) GreaterOrEqInt(prop PropertyID, v int64) ConditionID {
	return b.add(&condition{prop: prop, op: opGreaterOrEq, domain: TypeInt, i1: v})
}

// BetweenInts matches a <= value <= b, both ends inclusive.
func (b *Builder) BetweenInts(prop PropertyID, lo, hi int64) ConditionID {
	return b.add(&condition{prop: prop, op: opBetween, domain: TypeInt, i1: lo, i2: hi})
}

func (b *Builder) InInt64s(prop PropertyID, vs []int64) ConditionID {
	return b.add(&condition{prop: prop, op: opIn, domain: TypeInt, ints: append([]int64(nil), vs...)})
}

func (b *Builder) NotInInt64s(prop PropertyID, vs []int64) ConditionID {
	return b.add(&condition{prop: prop, op: opNotIn, domain: TypeInt, ints: append([]int64(nil), vs...)})
}

// Floating-point domain.

func (b *Builder) LessThanFloat(prop PropertyID, v float64) ConditionID {
	return b.add(&condition{prop: prop, op: opLess, domain: TypeFloat, f1: v})
}

func (b *Builder) LessOrEqFloat(prop PropertyID, v float64) ConditionID {
	return b.add(&condition{prop: prop, op: opLessOrEq, domain: TypeFloat, f1: v})
}

func (b *Builder) GreaterThanFloat(prop PropertyID, v float64) ConditionID {
	return b.add(&condition{prop: prop, op: opGreater, domain: TypeFloat, f1: v})
}

func (b *Builder) GreaterOrEqFloat(prop PropertyID, v float64) ConditionID {
	return b.add(&condition{prop: prop, op: opGreaterOrEq, domain: TypeFloat, f1: v})
}

func (b *Builder) BetweenFloats(prop PropertyID, lo, hi float64) ConditionID {
	return b.add(&condition{prop: prop, op: opBetween, domain: TypeFloat, f1: lo, f2: hi})
}

// String domain. caseSensitive=false compares ignoring case.

func (b *Builder) EqualsString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opEqual, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) NotEqualsString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opNotEqual, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) LessThanString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opLess, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) LessOrEqString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opLessOrEq, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) GreaterThanString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opGreater, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) GreaterOrEqString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opGreaterOrEq, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) ContainsString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opContains, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) StartsWithString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opStartsWith, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) EndsWithString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opEndsWith, domain: TypeString, str: v, caseSens: caseSensitive})
}

func (b *Builder) InStrings(prop PropertyID, vs []string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opIn, domain: TypeString,
		strs: append([]string(nil), vs...), caseSens: caseSensitive})
}

// AnyEqualsString matches string-vector properties with at least one element
// equal to v.
func (b *Builder) AnyEqualsString(prop PropertyID, v string, caseSensitive bool) ConditionID {
	return b.add(&condition{prop: prop, op: opAnyEquals, domain: TypeStringVector, str: v, caseSens: caseSensitive})
}

// Bytes domain: lexicographic comparisons.

func (b *Builder) EqualsBytes(prop PropertyID, v []byte) ConditionID {
	return b.add(&condition{prop: prop, op: opEqual, domain: TypeBytes, blob: append([]byte(nil), v...)})
}

func (b *Builder) LessThanBytes(prop PropertyID, v []byte) ConditionID {
	return b.add(&condition{prop: prop, op: opLess, domain: TypeBytes, blob: append([]byte(nil), v...)})
}

func (b *Builder) LessOrEqBytes(prop PropertyID, v []byte) ConditionID {
	return b.add(&condition{prop: prop, op: opLessOrEq, domain: TypeBytes, blob: append([]byte(nil), v...)})
}

func (b *Builder) GreaterThanBytes(prop PropertyID, v []byte) ConditionID {
	return b.add(&condition{prop: prop, op: opGreater, domain: TypeBytes, blob: append([]byte(nil), v...)})
}

func (b *Builder) GreaterOrEqBytes(prop PropertyID, v []byte) ConditionID {
	return b.add(&condition{prop: prop, op: opGreaterOrEq, domain: TypeBytes, blob: append([]byte(nil), v...)})
}

// Null checks apply to any domain.

func (b *Builder) Null(prop PropertyID) ConditionID {
	return b.add(&condition{prop: prop, op: opNull})
}

func (b *Builder) NotNull(prop PropertyID) ConditionID {
	return b.add(&condition{prop: prop, op: opNotNull})
}

// NearestNeighbors ranks records by Euclidean distance between the float
// vector property and query, keeping the maxHits closest. The distance
// ranking is applied after all other conditions.
func (b *Builder) NearestNeighbors(prop PropertyID, query []float32, maxHits int) ConditionID {
	return b.add(&condition{prop: prop, op: opNearest, domain: TypeFloatVector,
		vector: append([]float32(nil), query...), maxHits: maxHits})
}

// ----------------------------------------------------------------------------
// Combinators
// ----------------------------------------------------------------------------

// All combines the given conditions with AND, consuming them. The children
// no longer count as top-level conditions.
func (b *Builder) All(ids []ConditionID) (ConditionID, error) {
	return b.combine(opAll, ids)
}

// Any combines the given conditions with OR, consuming them.
func (b *Builder) Any(ids []ConditionID) (ConditionID, error) {
	return b.combine(opAny, ids)
}

func (b *Builder) combine(op condOp, ids []ConditionID) (ConditionID, error) {
	if len(ids) == 0 {
		return 0, &Error{Code: CodeIllegalArgument, Op: "combine: empty condition list"}
	}
	for _, id := range ids {
		if _, ok := b.conds[id]; !ok {
			return 0, &Error{Code: CodeIllegalArgument, Op: fmt.Sprintf("combine: unknown condition %d", id)}
		}
		if b.consumed[id] {
			return 0, &Error{Code: CodeIllegalState, Op: fmt.Sprintf("combine: condition %d already combined", id)}
		}
	}
	for _, id := range ids {
		b.consumed[id] = true
	}
	return b.add(&condition{op: op, children: append([]ConditionID(nil), ids...)}), nil
}

// Order appends a sort directive. Directives accumulate in call order and are
// never deduplicated.
func (b *Builder) Order(prop PropertyID, flags OrderFlags) {
	b.orders = append(b.orders, orderSpec{prop: prop, flags: flags})
}

// LinkProperty joins to target through a to-one relation property on this
// builder's entity (the property holds the related record's id). The returned
// child builder is scoped to target; conditions added to it constrain which
// parent records match.
func (b *Builder) LinkProperty(relProp PropertyID, target EntityID) *Builder {
	child := newBuilder(b.engine, target, false)
	b.links = append(b.links, &link{relProp: relProp, entity: target, builder: child})
	return child
}

// BacklinkProperty joins to source through a relation property used in
// reverse: a parent record matches when at least one source record points at
// it via relProp and satisfies the child builder's conditions.
func (b *Builder) BacklinkProperty(source EntityID, relProp PropertyID) *Builder {
	child := newBuilder(b.engine, source, false)
	b.links = append(b.links, &link{relProp: relProp, entity: source, backlink: true, builder: child})
	return child
}

// ----------------------------------------------------------------------------
// Compilation
// ----------------------------------------------------------------------------

// Compile snapshots the builder into an immutable, reusable Query. The
// condition tree is deep-copied: later parameter rebinding on one query never
// affects the builder or queries compiled from it earlier. The builder stays
// usable after Compile.
func (b *Builder) Compile() (*Query, error) {
	if err := b.engine.ensureOpen(); err != nil {
		return nil, err
	}
	roots, links, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	q := &Query{
		engine: b.engine,
		entity: b.entity,
		roots:  roots,
		links:  links,
		orders: append([]orderSpec(nil), b.orders...),
	}
	q.nn = findNearest(q.roots)
	return q, nil
}

// snapshot deep-copies the builder's unconsumed conditions (in creation
// order) and its links.
func (b *Builder) snapshot() ([]*compiledCond, []*compiledLink, error) {
	var roots []*compiledCond
	for _, id := range b.order {
		if b.consumed[id] {
			continue
		}
		roots = append(roots, b.compileCond(b.conds[id]))
	}
	var links []*compiledLink
	for _, l := range b.links {
		childRoots, childLinks, err := l.builder.snapshot()
		if err != nil {
			return nil, nil, err
		}
		links = append(links, &compiledLink{
			relProp:  l.relProp,
			entity:   l.entity,
			backlink: l.backlink,
			roots:    childRoots,
			links:    childLinks,
		})
	}
	return roots, links, nil
}

func (b *Builder) compileCond(c *condition) *compiledCond {
	cc := &compiledCond{
		entity:   b.entity,
		prop:     c.prop,
		op:       c.op,
		domain:   c.domain,
		i1:       c.i1,
		i2:       c.i2,
		f1:       c.f1,
		f2:       c.f2,
		str:      c.str,
		caseSens: c.caseSens,
		blob:     append([]byte(nil), c.blob...),
		ints:     append([]int64(nil), c.ints...),
		strs:     append([]string(nil), c.strs...),
		vector:   append([]float32(nil), c.vector...),
		maxHits:  c.maxHits,
	}
	for _, childID := range c.children {
		cc.children = append(cc.children, b.compileCond(b.conds[childID]))
	}
	return cc
}

// findNearest locates the nearest-neighbors condition in a compiled tree, if
// any. At most one per query is supported.
func findNearest(conds []*compiledCond) *compiledCond {
	for _, c := range conds {
		if c.op == opNearest {
			return c
		}
		if nn := findNearest(c.children); nn != nil {
			return nn
		}
	}
	return nil
}
