// Package lru implements a petastore.Store that caches a nested store's
// blobs in memory, grounded on bs/store/lru. Writes pass through to the
// underlying store; reads populate the cache.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store is a least-recently-used cache of blobs in front of a nested
// petastore.Store.
type Store struct {
	c *lru.Cache // petastore.ID -> petastore.Blob
	s petastore.Store
}

// New produces a new Store backed by s and caching up to size blobs.
func New(s petastore.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Get returns the blob at id, checking the cache first.
func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	if cached, ok := s.c.Get(id); ok {
		return cached.(petastore.Blob), nil
	}
	blob, err := s.s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.c.Add(id, blob)
	return blob, nil
}

// Put writes through to the nested store and updates the cache.
func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	if err := s.s.Put(ctx, id, b); err != nil {
		return err
	}
	s.c.Add(id, b)
	return nil
}

// Release evicts id from the cache and releases it in the nested store.
func (s *Store) Release(ctx context.Context, id petastore.ID) error {
	s.c.Remove(id)
	return s.s.Release(ctx, id)
}

// FreeSpace delegates to the nested store; the cache consumes host
// memory, not the space the nested store is tracking.
func (s *Store) FreeSpace(ctx context.Context) (uint64, error) {
	return s.s.FreeSpace(ctx)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
		size, ok := conf["size"].(int)
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, size)
	})
}
