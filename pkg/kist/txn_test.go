package kist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbergin/kist/pkg/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTaskRecord(title string, priority int64) *engine.Record {
	rec := engine.NewRecord()
	rec.Set(1, engine.StringValue(title))
	rec.Set(2, engine.IntValue(priority))
	return rec
}

func TestCommitOnSuccess(t *testing.T) {
	store := newTestStore(t)
	box := store.Box(testEntity)
	ctx := context.Background()

	tx, txCtx, err := store.TxWrite(ctx)
	require.NoError(t, err)

	id, err := box.Put(txCtx, newTaskRecord("write docs", 2))
	require.NoError(t, err)

	require.NoError(t, tx.Success())
	require.NoError(t, tx.Close())

	rec, err := box.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestRollbackByOmission(t *testing.T) {
	store := newTestStore(t)
	box := store.Box(testEntity)
	ctx := context.Background()

	tx, txCtx, err := store.TxWrite(ctx)
	require.NoError(t, err)

	id, err := box.Put(txCtx, newTaskRecord("never lands", 1))
	require.NoError(t, err)

	// No Success call; Close must roll back.
	require.NoError(t, tx.Close())

	rec, err := box.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNestedFailurePoisonsChain(t *testing.T) {
	store := newTestStore(t)
	box := store.Box(testEntity)
	ctx := context.Background()

	outer, outerCtx, err := store.TxWrite(ctx)
	require.NoError(t, err)

	id, err := box.Put(outerCtx, newTaskRecord("outer", 1))
	require.NoError(t, err)

	inner, _, err := store.TxWrite(outerCtx)
	require.NoError(t, err)
	require.NoError(t, inner.Close()) // closes without Success

	require.NoError(t, outer.Success())
	require.NoError(t, outer.Close())

	rec, err := box.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec, "one failed nested scope must roll back the whole chain")
}

func TestNestedSuccessCommits(t *testing.T) {
	store := newTestStore(t)
	box := store.Box(testEntity)
	ctx := context.Background()

	outer, outerCtx, err := store.TxWrite(ctx)
	require.NoError(t, err)

	inner, innerCtx, err := store.TxWrite(outerCtx)
	require.NoError(t, err)

	id, err := box.Put(innerCtx, newTaskRecord("nested", 1))
	require.NoError(t, err)

	require.NoError(t, inner.Success())
	require.NoError(t, inner.Close())
	require.NoError(t, outer.Success())
	require.NoError(t, outer.Close())

	rec, err := box.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestNestedReadScopeCannotFailWrites(t *testing.T) {
	store := newTestStore(t)
	box := store.Box(testEntity)
	ctx := context.Background()

	outer, outerCtx, err := store.TxWrite(ctx)
	require.NoError(t, err)

	id, err := box.Put(outerCtx, newTaskRecord("read-nested", 1))
	require.NoError(t, err)

	inner, _, err := store.TxRead(outerCtx)
	require.NoError(t, err)
	require.NoError(t, inner.Close()) // read scopes carry no success obligation

	require.NoError(t, outer.Success())
	require.NoError(t, outer.Close())

	rec, err := box.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestWriteUnderReadScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	outer, outerCtx, err := store.TxRead(ctx)
	require.NoError(t, err)
	defer outer.Close()

	_, _, err = store.TxWrite(outerCtx)
	require.ErrorIs(t, err, ErrInvalidState)

	// Box writes join the ambient scope and hit the same wall.
	_, err = store.Box(testEntity).Put(outerCtx, newTaskRecord("nope", 1))
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSuccessMisuse(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, _, err := store.TxWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Success())
	require.ErrorIs(t, tx.Success(), ErrInvalidState)
	require.NoError(t, tx.Close())
	require.ErrorIs(t, tx.Success(), ErrInvalidState)

	rd, _, err := store.TxRead(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, rd.Success(), ErrInvalidState)
	require.NoError(t, rd.Close())
}

func TestCloseIdempotent(t *testing.T) {
	store := newTestStore(t)

	tx, _, err := store.TxWrite(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Success())
	require.NoError(t, tx.Close())
	require.NoError(t, tx.Close())
}

func TestNestingInClosedScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, txCtx, err := store.TxWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Close())

	_, _, err = store.TxRead(txCtx)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRunInTx(t *testing.T) {
	store := newTestStore(t)
	box := store.Box(testEntity)
	ctx := context.Background()

	var id engine.RecordID
	err := store.RunInTx(ctx, engine.TxWrite, func(ctx context.Context) error {
		var err error
		id, err = box.Put(ctx, newTaskRecord("run in tx", 3))
		return err
	})
	require.NoError(t, err)

	rec, err := box.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// An error return rolls back.
	err = store.RunInTx(ctx, engine.TxWrite, func(ctx context.Context) error {
		if _, err := box.Put(ctx, newTaskRecord("doomed", 1)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	n, err := box.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestTxOnClosedStore(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, _, err = store.TxRead(context.Background())
	require.ErrorIs(t, err, ErrStoreClosed)
}
