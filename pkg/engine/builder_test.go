package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineConsumesChildren(t *testing.T) {
	e := newTestEngine(t)
	b, err := e.NewBuilder(1)
	require.NoError(t, err)

	a := b.EqualsInt(1, 1)
	c := b.EqualsInt(1, 2)

	id, err := b.Any([]ConditionID{a, c})
	require.NoError(t, err)
	assert.NotZero(t, id)

	// A consumed condition cannot be combined again.
	_, err = b.All([]ConditionID{a, b.EqualsInt(1, 3)})
	require.Error(t, err)
	assert.Equal(t, CodeIllegalState, ErrorCode(err))
}

func TestCombineValidatesIDs(t *testing.T) {
	e := newTestEngine(t)
	b, err := e.NewBuilder(1)
	require.NoError(t, err)

	_, err = b.All(nil)
	require.Error(t, err)
	assert.Equal(t, CodeIllegalArgument, ErrorCode(err))

	_, err = b.Any([]ConditionID{999})
	require.Error(t, err)
	assert.Equal(t, CodeIllegalArgument, ErrorCode(err))
}

func TestBuilderReusableAfterCompile(t *testing.T) {
	e := newTestEngine(t)
	putRecord(t, e, 1, NewRecord().Set(1, IntValue(5)))
	putRecord(t, e, 1, NewRecord().Set(1, IntValue(50)))

	b, err := e.NewBuilder(1)
	require.NoError(t, err)
	b.LessThanInt(1, 10)

	q1, err := b.Compile()
	require.NoError(t, err)
	q2, err := b.Compile()
	require.NoError(t, err)

	// Rebinding q1 affects neither the builder nor q2.
	require.NoError(t, q1.SetParamInt(1, 1, 100))

	txn, err := e.Begin(TxRead)
	require.NoError(t, err)
	defer txn.Close()

	n1, err := q1.Count(txn)
	require.NoError(t, err)
	n2, err := q2.Count(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n1)
	assert.Equal(t, uint64(1), n2)

	q3, err := b.Compile()
	require.NoError(t, err)
	n3, err := q3.Count(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n3)
}

func TestRootConditionsImplicitlyAnded(t *testing.T) {
	e := newTestEngine(t)
	putRecord(t, e, 1, NewRecord().Set(1, IntValue(5)).Set(2, StringValue("x")))
	putRecord(t, e, 1, NewRecord().Set(1, IntValue(5)).Set(2, StringValue("y")))

	b, err := e.NewBuilder(1)
	require.NoError(t, err)
	b.EqualsInt(1, 5)
	b.EqualsString(2, "x", true)

	q, err := b.Compile()
	require.NoError(t, err)

	txn, err := e.Begin(TxRead)
	require.NoError(t, err)
	defer txn.Close()

	n, err := q.Count(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestLinkedBuilderIsNotRoot(t *testing.T) {
	e := newTestEngine(t)
	b, err := e.NewBuilder(1)
	require.NoError(t, err)

	child := b.LinkProperty(6, 2)
	assert.False(t, child.IsRoot())
	assert.Equal(t, EntityID(2), child.Entity())

	back := b.BacklinkProperty(3, 6)
	assert.False(t, back.IsRoot())
	assert.Equal(t, EntityID(3), back.Entity())
}
