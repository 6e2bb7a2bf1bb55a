package kist

import (
	"github.com/tbergin/kist/pkg/engine"
)

// QueryBuilder assembles a query for one box. Calls chain fluently; the first
// error sticks and surfaces from Build. Not safe for concurrent use.
type QueryBuilder struct {
	box     *Box
	builder *engine.Builder
	err     error
}

func newQueryBuilder(b *Box) *QueryBuilder {
	eb, err := b.store.engine.NewBuilder(b.entity.ID)
	return &QueryBuilder{box: b, builder: eb, err: err}
}

func newLinkedBuilder(b *Box, eb *engine.Builder) *QueryBuilder {
	return &QueryBuilder{box: b, builder: eb}
}

// Err returns the first error the chain hit, if any.
func (qb *QueryBuilder) Err() error { return qb.err }

// Where adds a condition. Conditions from multiple Where calls are combined
// with AND.
func (qb *QueryBuilder) Where(cond Condition) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if cond == nil {
		qb.err = inputErrf("nil condition")
		return qb
	}
	if _, err := cond.apply(qb.builder, true); err != nil {
		qb.err = err
	}
	return qb
}

// OrderBy adds an ordering directive. Directives apply in the order given.
func (qb *QueryBuilder) OrderBy(prop Property, flags engine.OrderFlags) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if prop.EntityID() != qb.box.entity.ID {
		qb.err = inputErrf("order property belongs to a different entity")
		return qb
	}
	qb.builder.Order(prop.PropertyID(), flags)
	return qb
}

// Link traverses a relation of this entity to its target and returns a
// builder whose conditions constrain the related record.
func (qb *QueryBuilder) Link(rel RelationProperty) *QueryBuilder {
	if qb.err != nil {
		return &QueryBuilder{box: qb.box, err: qb.err}
	}
	if rel.EntityID() != qb.box.entity.ID {
		qb.err = inputErrf("link relation belongs to a different entity")
		return &QueryBuilder{box: qb.box, err: qb.err}
	}
	child := qb.builder.LinkProperty(rel.PropertyID(), rel.Target.ID)
	return newLinkedBuilder(qb.box.store.Box(rel.Target), child)
}

// Backlink traverses a relation pointing at this entity from its source and
// returns a builder whose conditions constrain the referring record.
func (qb *QueryBuilder) Backlink(rel RelationProperty) *QueryBuilder {
	if qb.err != nil {
		return &QueryBuilder{box: qb.box, err: qb.err}
	}
	if rel.Target.ID != qb.box.entity.ID {
		qb.err = inputErrf("backlink relation does not point at this entity")
		return &QueryBuilder{box: qb.box, err: qb.err}
	}
	source := Entity{ID: rel.EntityID()}
	child := qb.builder.BacklinkProperty(rel.EntityID(), rel.PropertyID())
	return newLinkedBuilder(qb.box.store.Box(source), child)
}

// Build compiles the query. Only the root builder of a link chain builds;
// calling Build on a linked builder is an error.
func (qb *QueryBuilder) Build() (*Query, error) {
	if qb.err != nil {
		return nil, qb.err
	}
	if !qb.builder.IsRoot() {
		return nil, stateErrf("Build on a linked builder; build the root instead")
	}
	native, err := qb.builder.Compile()
	if err != nil {
		return nil, err
	}
	return &Query{box: qb.box, native: native}, nil
}
