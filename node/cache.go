package node

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
)

// Arena is an id-keyed cache of live Nodes, holding at most one Node per
// blob id at a time and reusing it across look-ups, per spec.md §5. This
// is the "arena with explicit id-based lookup" alternative spec.md §9
// recommends over the original's reference-counted Blob handles: a single
// process, declared single-threaded (spec.md §1, §5), has no need for
// atomic refcounts, only for a count that tracks how many callers still
// hold a Node before its underlying blob handle is released.
type Arena struct {
	store   petastore.Store
	entries map[petastore.ID]*entry
}

type entry struct {
	node *Node
	refs int
}

// NewArena creates an Arena backed by store.
func NewArena(store petastore.Store) *Arena {
	return &Arena{
		store:   store,
		entries: make(map[petastore.ID]*entry),
	}
}

// Acquire returns the Node for id, creating it (and, for Dir/Control
// blocks, initializing a fresh header) on first access, per spec.md
// §4.3's maybe_init step. Every successful Acquire must be paired with a
// call to the returned Node's Release.
func (a *Arena) Acquire(ctx context.Context, id petastore.ID, typ block.Type) (*Node, error) {
	if e, ok := a.entries[id]; ok {
		e.refs++
		return e.node, nil
	}

	raw, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting blob %d", id)
	}

	n := &Node{id: id, typ: typ, arena: a, raw: []byte(raw)}

	if typ == block.Data {
		a.entries[id] = &entry{node: n, refs: 1}
		return n, nil
	}

	if len(n.raw) == 0 {
		n.header = block.Header{Type: typ, Flags: block.FlagNew}
		n.raw = block.WriteHeader(nil, n.header)
		if err := a.store.Put(ctx, id, petastore.Blob(n.raw)); err != nil {
			return nil, errors.Wrapf(err, "initializing blob %d", id)
		}
	} else {
		h, err := block.ReadHeader(n.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "reading header of blob %d", id)
		}
		if h.Type != typ {
			return nil, errors.Wrapf(petastore.ErrMalformed, "blob %d has type %s, want %s", id, h.Type, typ)
		}
		n.header = h
	}

	a.entries[id] = &entry{node: n, refs: 1}
	return n, nil
}

// release is called by Node.Release. When the last acquirer of an id lets
// go, the underlying blob handle is released back to the store.
func (a *Arena) release(ctx context.Context, id petastore.ID) error {
	e, ok := a.entries[id]
	if !ok {
		return errors.Errorf("release of unacquired node %d", id)
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(a.entries, id)
	return errors.Wrapf(a.store.Release(ctx, id), "releasing blob %d", id)
}

// Live reports how many distinct blob ids currently have at least one
// outstanding acquisition. It exists for tests and for fsck.
func (a *Arena) Live() int {
	return len(a.entries)
}
