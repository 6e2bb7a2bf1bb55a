package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCond(op condOp, prop PropertyID, v int64) *compiledCond {
	return &compiledCond{prop: prop, op: op, domain: TypeInt, i1: v}
}

func TestMatchCondTypeMismatch(t *testing.T) {
	rec := NewRecord().Set(1, StringValue("not a number"))

	ok, err := matchCond(intCond(opEqual, 1, 3), rec)
	require.NoError(t, err)
	assert.False(t, ok, "a condition on the wrong domain never matches")

	ok, err = matchCond(intCond(opEqual, 2, 0), rec)
	require.NoError(t, err)
	assert.False(t, ok, "a missing property never matches a comparison")
}

func TestMatchCondNull(t *testing.T) {
	rec := NewRecord().Set(1, IntValue(7))

	ok, err := matchCond(&compiledCond{prop: 2, op: opNull}, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchCond(&compiledCond{prop: 1, op: opNotNull}, rec)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchCondCombinators(t *testing.T) {
	rec := NewRecord().Set(1, IntValue(5))

	all := &compiledCond{op: opAll, children: []*compiledCond{
		intCond(opGreater, 1, 1),
		intCond(opLess, 1, 10),
	}}
	ok, err := matchCond(all, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	any := &compiledCond{op: opAny, children: []*compiledCond{
		intCond(opGreater, 1, 100),
		intCond(opEqual, 1, 5),
	}}
	ok, err = matchCond(any, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	neither := &compiledCond{op: opAny, children: []*compiledCond{
		intCond(opGreater, 1, 100),
		intCond(opEqual, 1, 6),
	}}
	ok, err = matchCond(neither, rec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchStringCaseFolding(t *testing.T) {
	rec := NewRecord().Set(1, StringValue("Hello World"))

	cs := &compiledCond{prop: 1, op: opStartsWith, domain: TypeString, str: "hello", caseSens: true}
	ok, err := matchCond(cs, rec)
	require.NoError(t, err)
	assert.False(t, ok)

	ci := &compiledCond{prop: 1, op: opStartsWith, domain: TypeString, str: "hello", caseSens: false}
	ok, err = matchCond(ci, rec)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchCondBackstop(t *testing.T) {
	rec := NewRecord().Set(1, FloatValue(1.0))

	// Equality has no float primitive; the evaluator reports a defect
	// instead of silently failing the record.
	bad := &compiledCond{prop: 1, op: opEqual, domain: TypeFloat}
	_, err := matchCond(bad, rec)
	require.ErrorIs(t, err, ErrInvalidCondition)
	assert.Equal(t, CodeIllegalState, ErrorCode(err))
}

func TestNNDistance(t *testing.T) {
	c := &compiledCond{prop: 1, op: opNearest, domain: TypeFloatVector, vector: []float32{0, 0}}

	rec := NewRecord().Set(1, VectorValue([]float32{3, 4}))
	assert.InDelta(t, 5.0, nnDistance(c, rec), 1e-6)

	mismatch := NewRecord().Set(1, VectorValue([]float32{1, 2, 3}))
	assert.True(t, math.IsInf(nnDistance(c, mismatch), 1))

	missing := NewRecord()
	assert.True(t, math.IsInf(nnDistance(c, missing), 1))
}

func TestRankNearest(t *testing.T) {
	recs := []*Record{
		NewRecord().Set(1, IntValue(0)),
		NewRecord().Set(1, IntValue(1)),
		NewRecord().Set(1, IntValue(2)),
	}
	scores := []float64{0.9, 0.1, 0.5}

	ranked := rankNearest(recs, scores, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, int64(1), ranked[0].Get(1).Int)
	assert.Equal(t, int64(2), ranked[1].Get(1).Int)

	all := rankNearest(recs, scores, 0)
	assert.Len(t, all, 3, "zero cap keeps everything")
}

func TestCompareForOrder(t *testing.T) {
	asc := orderSpec{prop: 1}
	desc := orderSpec{prop: 1, flags: OrderDescending}
	nullsLast := orderSpec{prop: 1, flags: OrderNullsLast}

	lo, hi := IntValue(1), IntValue(2)
	null := Value{}

	assert.Negative(t, compareForOrder(asc, lo, hi))
	assert.Positive(t, compareForOrder(desc, lo, hi))
	assert.Zero(t, compareForOrder(asc, lo, lo))

	// Null placement ignores direction.
	assert.Negative(t, compareForOrder(asc, null, hi))
	assert.Negative(t, compareForOrder(desc, null, hi))
	assert.Positive(t, compareForOrder(nullsLast, null, hi))
}

func TestCompareValuesCaseInsensitive(t *testing.T) {
	a, b := StringValue("Apple"), StringValue("apple")
	assert.NotZero(t, compareValues(a, b, false))
	assert.Zero(t, compareValues(a, b, true))
}

func TestLessByOrdersTieBreak(t *testing.T) {
	orders := []orderSpec{{prop: 1}, {prop: 2, flags: OrderDescending}}

	a := NewRecord().Set(1, IntValue(1)).Set(2, IntValue(10))
	b := NewRecord().Set(1, IntValue(1)).Set(2, IntValue(20))

	assert.False(t, lessByOrders(orders, a, b))
	assert.True(t, lessByOrders(orders, b, a), "second directive breaks the tie")
}
