// Package node wraps one blob at a time with a cached, typed view plus
// linked-chain traversal. It is the layer that turns the block package's
// pure byte-level operations into stateful handles with header mutators
// and a next/prev API, per spec.md §4.3.
//
// Dir- and Control-typed nodes carry a block.Header; per the Open Question
// resolved in DESIGN.md, Data-typed nodes do not — they are raw byte
// buffers managed with SetBytes/Bytes instead of the header mutators.
package node

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
)

// Node is a cached handle on one blob, interpreted as a block of the given
// type. At all times a Node holds a valid id and raw bytes consistent with
// that id — there is no detached or stale state.
type Node struct {
	id     petastore.ID
	typ    block.Type
	arena  *Arena
	raw    []byte
	header block.Header // meaningful only when typ != block.Data
}

// ID returns the blob id this node is currently bound to.
func (n *Node) ID() petastore.ID { return n.id }

// Type returns this node's block type.
func (n *Node) Type() block.Type { return n.typ }

// Size returns the current byte length of the underlying blob.
func (n *Node) Size() int { return len(n.raw) }

// Header returns the cached header. It is the zero Header for Data nodes.
func (n *Node) Header() block.Header { return n.header }

// Bytes returns the full raw content of the blob, header included for
// Dir/Control nodes. Callers that want only the record array should use
// the helpers in package block (block.DirEntries, block.BlobIDAt, etc.)
// against this slice.
func (n *Node) Bytes() []byte { return n.raw }

func (n *Node) persist(ctx context.Context) error {
	return errors.Wrapf(n.arena.store.Put(ctx, n.id, petastore.Blob(n.raw)), "writing blob %d", n.id)
}

// SetBytes overwrites the full raw content of a Data node (only — typed
// nodes must go through UpdateHeader/AppendRecord/SetPreamble so the
// header stays consistent).
func (n *Node) SetBytes(ctx context.Context, b []byte) error {
	if n.typ != block.Data {
		return errors.Wrapf(petastore.ErrBadArgs, "SetBytes is only for data nodes, this is %s", n.typ)
	}
	n.raw = b
	return n.persist(ctx)
}

// SetPreamble overwrites the raw bytes of a typed (non-Data) node with
// b, which must still begin with a valid Header for this node's type —
// it is meant for rewriting the fields between the Header and the
// record array, such as Control's Directory/Start pair, which neither
// UpdateHeader nor AppendRecord reach.
func (n *Node) SetPreamble(ctx context.Context, b []byte) error {
	if n.typ == block.Data {
		return errors.Wrap(petastore.ErrBadArgs, "data nodes have no preamble")
	}
	h, err := block.ReadHeader(b)
	if err != nil {
		return errors.Wrap(err, "validating header of new bytes")
	}
	n.raw = b
	n.header = h
	return n.persist(ctx)
}

// UpdateHeader applies f to a copy of this node's header, writes the
// result back to the blob, and updates the cache. f must not retain or
// mutate h after returning.
func (n *Node) UpdateHeader(ctx context.Context, f func(h *block.Header)) error {
	if n.typ == block.Data {
		return errors.Wrap(petastore.ErrBadArgs, "data nodes have no header")
	}
	h := n.header
	f(&h)
	h.Type = n.typ // f must not be able to change the block's type
	n.raw = block.WriteHeader(n.raw, h)
	n.header = h
	return n.persist(ctx)
}

// SetNext sets this node's chain-next pointer.
func (n *Node) SetNext(ctx context.Context, id petastore.ID) error {
	return n.UpdateHeader(ctx, func(h *block.Header) { h.Next = id })
}

// SetPrev sets this node's chain-prev pointer.
func (n *Node) SetPrev(ctx context.Context, id petastore.ID) error {
	return n.UpdateHeader(ctx, func(h *block.Header) { h.Prev = id })
}

// AppendRecord appends a fixed-size record after a preamble of
// preambleSize bytes, per block.AppendRecord. It returns
// petastore.ErrBlockFull (never partially appending) when the record
// would overflow the blob; callers catch that and chain a new block.
func (n *Node) AppendRecord(ctx context.Context, preambleSize, recordSize int, record []byte) error {
	grown, err := block.AppendRecord(n.raw, preambleSize, recordSize, record)
	if err != nil {
		return err
	}
	n.raw = grown
	return n.persist(ctx)
}

// Next acquires and returns the node following this one in its chain;
// n itself stays bound to its own id. The bool return is false (with a nil *Node and nil error) when
// this node's Next pointer is zero — the common, non-error end-of-chain
// case.
func (n *Node) Next(ctx context.Context) (*Node, bool, error) {
	if n.typ == block.Data {
		return nil, false, errors.Wrap(petastore.ErrBadArgs, "data nodes do not chain")
	}
	if n.header.Next == 0 {
		return nil, false, nil
	}
	next, err := n.arena.Acquire(ctx, n.header.Next, n.typ)
	if err != nil {
		return nil, false, errors.Wrapf(err, "acquiring next block %d", n.header.Next)
	}
	return next, true, nil
}

// Prev is the mirror of Next.
func (n *Node) Prev(ctx context.Context) (*Node, bool, error) {
	if n.typ == block.Data {
		return nil, false, errors.Wrap(petastore.ErrBadArgs, "data nodes do not chain")
	}
	if n.header.Prev == 0 {
		return nil, false, nil
	}
	prev, err := n.arena.Acquire(ctx, n.header.Prev, n.typ)
	if err != nil {
		return nil, false, errors.Wrapf(err, "acquiring prev block %d", n.header.Prev)
	}
	return prev, true, nil
}

// Release tells this node's arena that the caller is done with it. Once
// every acquirer of an id has released it, the arena releases the
// underlying blob handle (petastore.Store.Release).
func (n *Node) Release(ctx context.Context) error {
	return n.arena.release(ctx, n.id)
}

// ChainBlock allocates a new block of the same type as prev, links it in
// after prev (prev.Next = new.id, new.Prev = prev.id), and returns it.
// Per spec.md §4.4, a crash between the two header writes leaves an
// orphan tail; this module does not attempt to make the two writes atomic,
// matching the non-durability stance of spec.md §1.
func ChainBlock(ctx context.Context, prev *Node, nextID func(context.Context) (petastore.ID, error)) (*Node, error) {
	id, err := nextID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "allocating id for chained block")
	}
	next, err := prev.arena.Acquire(ctx, id, prev.typ)
	if err != nil {
		return nil, errors.Wrapf(err, "acquiring new block %d", id)
	}
	if err := next.SetPrev(ctx, prev.id); err != nil {
		return nil, errors.Wrap(err, "linking new block's prev")
	}
	if err := prev.SetNext(ctx, next.id); err != nil {
		return nil, errors.Wrap(err, "linking prev block's next")
	}
	return next, nil
}
