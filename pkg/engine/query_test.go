package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	entPerson  EntityID = 1
	propName   PropertyID = 1
	propAge    PropertyID = 2
	propTags   PropertyID = 3
	propWeight PropertyID = 4
)

func seedPeople(t *testing.T, e *Engine) {
	t.Helper()
	rows := []struct {
		name   string
		age    int64
		tags   []string
		weight float64
	}{
		{"ada", 36, []string{"math", "code"}, 60},
		{"bob", 17, []string{"music"}, 80},
		{"cleo", 52, []string{"code"}, 70},
		{"dan", 29, nil, 90},
	}
	txn, err := e.Begin(TxWrite)
	require.NoError(t, err)
	cur, err := e.OpenCursor(txn, entPerson)
	require.NoError(t, err)
	for _, r := range rows {
		rec := NewRecord().
			Set(propName, StringValue(r.name)).
			Set(propAge, IntValue(r.age)).
			Set(propWeight, FloatValue(r.weight))
		if r.tags != nil {
			rec.Set(propTags, StringsValue(r.tags))
		}
		_, err := cur.Put(rec)
		require.NoError(t, err)
	}
	require.NoError(t, txn.Commit())
}

func findNames(t *testing.T, e *Engine, q *Query) []string {
	t.Helper()
	txn, err := e.Begin(TxRead)
	require.NoError(t, err)
	defer txn.Close()
	recs, err := q.Find(txn)
	require.NoError(t, err)
	names := make([]string, len(recs))
	for i, rec := range recs {
		names[i] = rec.Get(propName).Str
	}
	return names
}

func TestQueryStreamingFilter(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.GreaterOrEqInt(propAge, 18)
	q, err := b.Compile()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ada", "cleo", "dan"}, findNames(t, e, q))
}

func TestQueryAnyCombinator(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	young := b.LessThanInt(propAge, 20)
	old := b.GreaterThanInt(propAge, 50)
	_, err = b.Any([]ConditionID{young, old})
	require.NoError(t, err)

	q, err := b.Compile()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "cleo"}, findNames(t, e, q))
}

func TestQueryStringVectorAnyEquals(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.AnyEqualsString(propTags, "CODE", false)
	q, err := b.Compile()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ada", "cleo"}, findNames(t, e, q))
}

func TestQueryOffsetLimitStreaming(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	q, err := b.Compile()
	require.NoError(t, err)

	q.SetOffset(1)
	q.SetLimit(2)
	names := findNames(t, e, q)
	assert.Equal(t, []string{"bob", "cleo"}, names, "no orders: id order, paged")

	q.SetOffset(10)
	assert.Empty(t, findNames(t, e, q), "offset past the end yields nothing")

	q.SetOffset(0)
	q.SetLimit(0)
	assert.Len(t, findNames(t, e, q), 4)
}

func TestQueryOrderDirectives(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.Order(propAge, OrderDescending)
	q, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, []string{"cleo", "ada", "dan", "bob"}, findNames(t, e, q))
}

func TestQueryOrderNullPlacement(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	// Only dan misses propTags.
	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.Order(propTags, 0)
	q, err := b.Compile()
	require.NoError(t, err)
	names := findNames(t, e, q)
	assert.Equal(t, "dan", names[0], "nulls sort first by default")

	b2, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b2.Order(propTags, OrderNullsLast)
	q2, err := b2.Compile()
	require.NoError(t, err)
	names = findNames(t, e, q2)
	assert.Equal(t, "dan", names[len(names)-1])
}

func TestQueryCountRemoveBypassPaging(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.GreaterOrEqInt(propAge, 18)
	q, err := b.Compile()
	require.NoError(t, err)
	q.SetOffset(1)
	q.SetLimit(1)

	txn, err := e.Begin(TxRead)
	require.NoError(t, err)
	n, err := q.Count(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
	txn.Close()

	wt, err := e.Begin(TxWrite)
	require.NoError(t, err)
	removed, err := q.Remove(wt)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), removed)
	require.NoError(t, wt.Commit())

	total, err := e.RecordCount(entPerson)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestQueryRemoveNeedsWriteTxn(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	q, err := b.Compile()
	require.NoError(t, err)

	txn, err := e.Begin(TxRead)
	require.NoError(t, err)
	defer txn.Close()
	_, err = q.Remove(txn)
	require.ErrorIs(t, err, ErrTxReadOnly)
}

func TestSetParamUnknownProperty(t *testing.T) {
	e := newTestEngine(t)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.EqualsInt(propAge, 30)
	q, err := b.Compile()
	require.NoError(t, err)

	err = q.SetParamString(entPerson, propName, "ada")
	require.ErrorIs(t, err, ErrParamNotFound)
	assert.Equal(t, CodeIllegalArgument, ErrorCode(err))
}

func TestSetParamRebindsAllOccurrences(t *testing.T) {
	e := newTestEngine(t)
	seedPeople(t, e)

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	lo := b.GreaterThanInt(propAge, 100)
	hi := b.LessThanInt(propAge, 100)
	_, err = b.Any([]ConditionID{lo, hi})
	require.NoError(t, err)

	q, err := b.Compile()
	require.NoError(t, err)

	// Both leaves address (entPerson, propAge); one rebind hits both.
	require.NoError(t, q.SetParamInt(entPerson, propAge, 30))
	assert.ElementsMatch(t, []string{"bob", "dan", "ada", "cleo"}, findNames(t, e, q))
}

const (
	entCity  EntityID = 2
	propCity PropertyID = 9 // relation on person -> city
)

func seedCities(t *testing.T, e *Engine) (oslo, bergen RecordID) {
	t.Helper()
	txn, err := e.Begin(TxWrite)
	require.NoError(t, err)
	cur, err := e.OpenCursor(txn, entCity)
	require.NoError(t, err)
	oslo, err = cur.Put(NewRecord().Set(propName, StringValue("oslo")))
	require.NoError(t, err)
	bergen, err = cur.Put(NewRecord().Set(propName, StringValue("bergen")))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())
	return oslo, bergen
}

func TestQueryForwardLink(t *testing.T) {
	e := newTestEngine(t)
	oslo, bergen := seedCities(t, e)

	txn, err := e.Begin(TxWrite)
	require.NoError(t, err)
	cur, err := e.OpenCursor(txn, entPerson)
	require.NoError(t, err)
	for _, p := range []struct {
		name string
		city RecordID
	}{{"ada", oslo}, {"bob", bergen}, {"cleo", oslo}} {
		_, err := cur.Put(NewRecord().
			Set(propName, StringValue(p.name)).
			Set(propCity, IntValue(int64(p.city))))
		require.NoError(t, err)
	}
	// dan has no city at all.
	_, err = cur.Put(NewRecord().Set(propName, StringValue("dan")))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	child := b.LinkProperty(propCity, entCity)
	child.EqualsString(propName, "oslo", true)

	q, err := b.Compile()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ada", "cleo"}, findNames(t, e, q))

	// Rebinding a linked condition goes through the link's entity scope.
	require.NoError(t, q.SetParamString(entCity, propName, "bergen"))
	assert.ElementsMatch(t, []string{"bob"}, findNames(t, e, q))
}

func TestQueryBacklink(t *testing.T) {
	e := newTestEngine(t)
	oslo, bergen := seedCities(t, e)

	txn, err := e.Begin(TxWrite)
	require.NoError(t, err)
	cur, err := e.OpenCursor(txn, entPerson)
	require.NoError(t, err)
	_, err = cur.Put(NewRecord().
		Set(propName, StringValue("ada")).
		Set(propAge, IntValue(36)).
		Set(propCity, IntValue(int64(oslo))))
	require.NoError(t, err)
	_, err = cur.Put(NewRecord().
		Set(propName, StringValue("bob")).
		Set(propAge, IntValue(17)).
		Set(propCity, IntValue(int64(bergen))))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	// Cities with at least one adult resident.
	b, err := e.NewBuilder(entCity)
	require.NoError(t, err)
	child := b.BacklinkProperty(entPerson, propCity)
	child.GreaterOrEqInt(propAge, 18)

	q, err := b.Compile()
	require.NoError(t, err)

	rd, err := e.Begin(TxRead)
	require.NoError(t, err)
	defer rd.Close()
	recs, err := q.Find(rd)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "oslo", recs[0].Get(propName).Str)
}

func TestQueryNearestNeighborsRanking(t *testing.T) {
	e := newTestEngine(t)

	const propVec PropertyID = 8
	txn, err := e.Begin(TxWrite)
	require.NoError(t, err)
	cur, err := e.OpenCursor(txn, entPerson)
	require.NoError(t, err)
	vecs := [][]float32{{0, 1}, {1, 0}, {0.8, 0.2}}
	for i, v := range vecs {
		_, err := cur.Put(NewRecord().
			Set(propAge, IntValue(int64(i))).
			Set(propVec, VectorValue(v)))
		require.NoError(t, err)
	}
	// One record without a vector never matches.
	_, err = cur.Put(NewRecord().Set(propAge, IntValue(99)))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	b, err := e.NewBuilder(entPerson)
	require.NoError(t, err)
	b.NearestNeighbors(propVec, []float32{1, 0}, 2)
	q, err := b.Compile()
	require.NoError(t, err)

	rd, err := e.Begin(TxRead)
	require.NoError(t, err)
	defer rd.Close()
	recs, err := q.Find(rd)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].Get(propAge).Int)
	assert.Equal(t, int64(2), recs[1].Get(propAge).Int)
}
