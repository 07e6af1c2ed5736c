// Package logging implements a petastore.Store that delegates every call
// to a nested store, logging operations as they happen, grounded on
// bs/store/logging. Like its teacher it logs with the standard log
// package rather than a structured logger: this is a thin debugging
// wrapper, not the system's own log output.
package logging

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store wraps a nested petastore.Store, logging every call.
type Store struct {
	s petastore.Store
}

// New produces a Store that logs around calls to s.
func New(s petastore.Store) *Store {
	return &Store{s: s}
}

func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	b, err := s.s.Get(ctx, id)
	if err != nil {
		log.Printf("ERROR Get %d: %s", id, err)
	} else {
		log.Printf("Get %d (%d bytes)", id, len(b))
	}
	return b, err
}

func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	err := s.s.Put(ctx, id, b)
	if err != nil {
		log.Printf("ERROR Put %d: %s", id, err)
	} else {
		log.Printf("Put %d (%d bytes)", id, len(b))
	}
	return err
}

func (s *Store) Release(ctx context.Context, id petastore.ID) error {
	err := s.s.Release(ctx, id)
	if err != nil {
		log.Printf("ERROR Release %d: %s", id, err)
	} else {
		log.Printf("Release %d", id)
	}
	return err
}

func (s *Store) FreeSpace(ctx context.Context) (uint64, error) {
	free, err := s.s.FreeSpace(ctx)
	if err != nil {
		log.Printf("ERROR FreeSpace: %s", err)
	} else {
		log.Printf("FreeSpace: %d", free)
	}
	return free, err
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
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
		if nestedStore == nil {
			return nil, fmt.Errorf("nested store %q produced a nil store", nestedType)
		}
		return New(nestedStore), nil
	})
}
