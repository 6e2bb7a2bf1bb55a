package kist

import (
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/tbergin/kist/pkg/engine"
)

// Options configures a store. The zero value opens a plain persistent store;
// see Open.
type Options struct {
	// InMemory keeps all data in RAM; the data dir is ignored. For tests.
	InMemory bool

	// SyncWrites forces fsync after every write transaction.
	SyncWrites bool

	// LowMemory shrinks engine buffers for constrained environments.
	LowMemory bool

	// Passphrase enables encryption at rest.
	Passphrase string

	// Logger receives the engine's internal logging; nil keeps it quiet.
	Logger badger.Logger
}

// Store is the top-level database object. One Store per data directory; safe
// to share across goroutines. Scopes and queries obtained from it are not;
// each concurrent caller opens its own.
type Store struct {
	engine *engine.Engine

	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if needed) a store in dataDir. opts may be nil for
// defaults.
func Open(dataDir string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	eng, err := engine.Open(engine.Options{
		DataDir:    dataDir,
		InMemory:   opts.InMemory,
		SyncWrites: opts.SyncWrites,
		LowMemory:  opts.LowMemory,
		Passphrase: opts.Passphrase,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Store{engine: eng}, nil
}

// OpenInMemory opens a throwaway in-memory store for tests.
func OpenInMemory() (*Store, error) {
	return Open("", &Options{InMemory: true})
}

// Close shuts the store down. Idempotent. Open scopes become unusable.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.engine.Close()
}

func (s *Store) ensureOpen() error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}
	return nil
}

// Engine exposes the underlying native engine for stats and maintenance.
func (s *Store) Engine() *engine.Engine { return s.engine }

// Box returns the box for one entity type. Boxes are cheap and may be shared
// read-only across goroutines.
func (s *Store) Box(entity Entity) *Box {
	return &Box{store: s, entity: entity}
}
