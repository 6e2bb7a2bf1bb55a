// Package engine implements the native storage and query engine for kist.
//
// The engine is deliberately opaque to the binding layer above it: it hands
// out handle types (Txn, Cursor, Builder, Query) and the binding only ever
// calls the operations defined on them. Storage is BadgerDB with records
// JSON-encoded under byte-prefixed keys.
//
// Key Structure:
//   - Records:   0x01 + entityID (4 bytes BE) + recordID (8 bytes BE) -> JSON(Record)
//   - Sequences: managed by badger under 0x02 + entityID
//
// Example:
//
//	eng, err := engine.Open(engine.Options{DataDir: "./data"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	txn, _ := eng.Begin(engine.TxWrite)
//	defer txn.Close()
//	cur, _ := eng.OpenCursor(txn, taskEntity)
//	id, _ := cur.Put(engine.NewRecord().Set(propText, engine.StringValue("buy milk")))
//	_ = id
//	txn.Commit()
package engine

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
)

// Key prefixes for storage organization. Single-byte prefixes keep keys
// short and prefix scans cheap.
const (
	prefixRecord = byte(0x01) // record keys
	prefixSeq    = byte(0x02) // per-entity id sequences
)

const seqBandwidth = 128 // ids leased per sequence fetch

// Options configures the engine.
type Options struct {
	// DataDir is the directory for data files. Required unless InMemory.
	DataDir string

	// InMemory runs badger without disk. Data is lost on Close; intended
	// for tests.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower, more durable.
	SyncWrites bool

	// LowMemory shrinks badger's buffers for constrained environments.
	LowMemory bool

	// Passphrase enables encryption at rest. The badger AES key is derived
	// from it with BLAKE2b-256. Losing the passphrase loses the data.
	Passphrase string

	// Logger receives badger's internal logging. Nil keeps badger quiet.
	Logger badger.Logger
}

// Engine is the native storage engine. One Engine per data directory; safe
// for concurrent use from multiple goroutines. Handles obtained from it
// (Txn, Cursor, Query) are single-goroutine unless noted otherwise.
type Engine struct {
	db *badger.DB

	mu     sync.RWMutex // guards closed and seqs
	closed bool
	seqs   map[EntityID]*badger.Sequence
}

// Open opens (creating if necessary) the engine in opts.DataDir.
func Open(opts Options) (*Engine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	if opts.Passphrase != "" {
		key := blake2b.Sum256([]byte(opts.Passphrase))
		badgerOpts = badgerOpts.WithEncryptionKey(key[:]).
			WithIndexCacheSize(32 << 20) // badger requires an index cache with encryption
	}

	if opts.LowMemory {
		badgerOpts = badgerOpts.
			WithMemTableSize(8 << 20).
			WithValueLogFileSize(32 << 20).
			WithNumMemtables(1).
			WithNumLevelZeroTables(1).
			WithNumLevelZeroTablesStall(2).
			WithBlockCacheSize(8 << 20)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errStorage("open", err)
	}

	return &Engine{
		db:   db,
		seqs: make(map[EntityID]*badger.Sequence),
	}, nil
}

// OpenInMemory opens a throwaway in-memory engine for tests.
func OpenInMemory() (*Engine, error) {
	return Open(Options{InMemory: true})
}

// Close releases all sequences and the underlying database. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	for _, seq := range e.seqs {
		_ = seq.Release()
	}
	e.seqs = nil

	if err := e.db.Close(); err != nil {
		return errStorage("close", err)
	}
	return nil
}

func (e *Engine) ensureOpen() error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrEngineClosed
	}
	return nil
}

// nextID allocates the next record id for an entity. Sequences live outside
// transactions; ids leased by a rolled-back transaction are simply skipped.
func (e *Engine) nextID(entity EntityID) (RecordID, error) {
	e.mu.Lock()
	seq, ok := e.seqs[entity]
	if !ok {
		var err error
		seq, err = e.db.GetSequence(seqKey(entity), seqBandwidth)
		if err != nil {
			e.mu.Unlock()
			return 0, errStorage("sequence", err)
		}
		e.seqs[entity] = seq
	}
	e.mu.Unlock()

	n, err := seq.Next()
	if err != nil {
		return 0, errStorage("sequence next", err)
	}
	// Sequences start at 0 but record id 0 is the "unassigned" sentinel.
	return RecordID(n + 1), nil
}

// RecordCount counts the records of one entity. Opens its own read
// transaction; used for stats, not on hot paths.
func (e *Engine) RecordCount(entity EntityID) (int64, error) {
	if err := e.ensureOpen(); err != nil {
		return 0, err
	}
	var count int64
	err := e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(iterOpts(entity, false))
		defer it.Close()
		prefix := entityPrefix(entity)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errStorage("record count", err)
	}
	return count, nil
}

// RunValueLogGC triggers one round of badger value-log garbage collection.
// Returns badger.ErrNoRewrite when there was nothing to collect.
func (e *Engine) RunValueLogGC(discardRatio float64) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.db.RunValueLogGC(discardRatio)
}

// ============================================================================
// Key encoding helpers
// ============================================================================

// recordKey builds the key for one record.
func recordKey(entity EntityID, id RecordID) []byte {
	key := make([]byte, 1+4+8)
	key[0] = prefixRecord
	binary.BigEndian.PutUint32(key[1:5], uint32(entity))
	binary.BigEndian.PutUint64(key[5:], uint64(id))
	return key
}

// entityPrefix is the scan prefix covering all records of one entity.
func entityPrefix(entity EntityID) []byte {
	key := make([]byte, 1+4)
	key[0] = prefixRecord
	binary.BigEndian.PutUint32(key[1:5], uint32(entity))
	return key
}

// recordIDFromKey recovers the record id from a full record key.
func recordIDFromKey(key []byte) (RecordID, error) {
	if len(key) != 1+4+8 || key[0] != prefixRecord {
		return 0, fmt.Errorf("malformed record key (%d bytes)", len(key))
	}
	return RecordID(binary.BigEndian.Uint64(key[5:])), nil
}

// seqKey is the badger sequence key for an entity.
func seqKey(entity EntityID) []byte {
	key := make([]byte, 1+4)
	key[0] = prefixSeq
	binary.BigEndian.PutUint32(key[1:5], uint32(entity))
	return key
}

// iterOpts builds iterator options for an entity scan. prefetch loads values
// eagerly; key-only scans leave it off.
func iterOpts(entity EntityID, prefetch bool) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = entityPrefix(entity)
	opts.PrefetchValues = prefetch
	return opts
}
