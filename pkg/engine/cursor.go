package engine

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// Cursor provides point and scan access to the records of one entity type
// within a transaction. The cursor borrows the transaction; closing the
// transaction invalidates the cursor. Not safe for concurrent use.
type Cursor struct {
	txn    *Txn
	entity EntityID
}

// OpenCursor opens a cursor over entity inside txn.
func (e *Engine) OpenCursor(txn *Txn, entity EntityID) (*Cursor, error) {
	if err := e.ensureOpen(); err != nil {
		return nil, err
	}
	if err := txn.ensureActive(); err != nil {
		return nil, err
	}
	return &Cursor{txn: txn, entity: entity}, nil
}

// Entity returns the entity type this cursor is scoped to.
func (c *Cursor) Entity() EntityID { return c.entity }

// Get fetches one record by id. A miss is reported as ErrNotFound.
func (c *Cursor) Get(id RecordID) (*Record, error) {
	if err := c.txn.ensureActive(); err != nil {
		return nil, err
	}
	item, err := c.txn.btxn.Get(recordKey(c.entity, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errStorage("get", err)
	}
	var rec Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, errStorage("decode record", err)
	}
	return &rec, nil
}

// Put stores a record, allocating an id when rec.ID is zero, and returns the
// id. The record's ID field is updated in place on allocation.
func (c *Cursor) Put(rec *Record) (RecordID, error) {
	if err := c.txn.ensureWritable(); err != nil {
		return 0, err
	}
	if rec.ID == 0 {
		id, err := c.txn.engine.nextID(c.entity)
		if err != nil {
			return 0, err
		}
		rec.ID = id
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, errStorage("encode record", err)
	}
	if err := c.txn.btxn.Set(recordKey(c.entity, rec.ID), data); err != nil {
		return 0, errStorage("put", err)
	}
	return rec.ID, nil
}

// Remove deletes one record by id. Returns false (and no error) when the
// record did not exist.
func (c *Cursor) Remove(id RecordID) (bool, error) {
	if err := c.txn.ensureWritable(); err != nil {
		return false, err
	}
	key := recordKey(c.entity, id)
	if _, err := c.txn.btxn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, errStorage("remove lookup", err)
	}
	if err := c.txn.btxn.Delete(key); err != nil {
		return false, errStorage("remove", err)
	}
	return true, nil
}

// Scan walks all records of the entity in id order, invoking visit once per
// record. Returning false from the visitor stops the scan; that is the only
// cancellation mechanism at this layer.
func (c *Cursor) Scan(visit func(*Record) bool) error {
	if err := c.txn.ensureActive(); err != nil {
		return err
	}
	it := c.txn.btxn.NewIterator(iterOpts(c.entity, true))
	defer it.Close()

	prefix := entityPrefix(c.entity)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec Record
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
		if err != nil {
			return errStorage("decode record", err)
		}
		if !visit(&rec) {
			return nil
		}
	}
	return nil
}

// SeekFirstID returns the lowest record id, or zero when the entity is empty.
func (c *Cursor) SeekFirstID() (RecordID, error) {
	if err := c.txn.ensureActive(); err != nil {
		return 0, err
	}
	it := c.txn.btxn.NewIterator(iterOpts(c.entity, false))
	defer it.Close()

	prefix := entityPrefix(c.entity)
	it.Seek(prefix)
	if !it.ValidForPrefix(prefix) {
		return 0, nil
	}
	id, err := recordIDFromKey(it.Item().Key())
	if err != nil {
		return 0, errStorage("seek first", err)
	}
	return id, nil
}

// RemoveAll deletes every record of the entity and returns how many were
// removed.
func (c *Cursor) RemoveAll() (int64, error) {
	if err := c.txn.ensureWritable(); err != nil {
		return 0, err
	}
	it := c.txn.btxn.NewIterator(iterOpts(c.entity, false))
	prefix := entityPrefix(c.entity)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := c.txn.btxn.Delete(key); err != nil {
			return 0, errStorage("remove all", err)
		}
	}
	return int64(len(keys)), nil
}
