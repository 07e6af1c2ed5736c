// Package mem implements an in-memory petastore.Store: the "toy"
// implementation of the blob store spec.md §1 describes as an external
// collaborator. It is grounded on bs/store/mem, simplified because ids
// here are caller-assigned rather than content hashes, so there is no
// dedup bookkeeping to do.
package mem

import (
	"context"
	"math"
	"sync"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store is a memory-based implementation of petastore.Store.
type Store struct {
	mu    sync.Mutex
	blobs map[petastore.ID]petastore.Blob
}

// New produces a new Store.
func New() *Store {
	return &Store{blobs: make(map[petastore.ID]petastore.Blob)}
}

// Get returns the blob at id, or an empty Blob if id has never been
// written, per the blob-store contract in spec.md §6.
func (s *Store) Get(_ context.Context, id petastore.ID) (petastore.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[id], nil
}

// Put overwrites the blob at id.
func (s *Store) Put(_ context.Context, id petastore.ID, b petastore.Blob) error {
	if len(b) > petastore.MaxBlobSize {
		return petastore.ErrOutOfSpace
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(petastore.Blob, len(b))
	copy(cp, b)
	s.blobs[id] = cp
	return nil
}

// Release is a no-op for the in-memory store; there is no underlying
// handle to close.
func (s *Store) Release(_ context.Context, _ petastore.ID) error {
	return nil
}

// FreeSpace has no natural meaning for a map-backed store, so it reports
// a generous constant rather than pretending to track host memory.
func (s *Store) FreeSpace(_ context.Context) (uint64, error) {
	return math.MaxUint64 / 2, nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (petastore.Store, error) {
		return New(), nil
	})
}
