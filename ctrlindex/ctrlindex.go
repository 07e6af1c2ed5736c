// Package ctrlindex maps a byte offset within a file to a data-blob id,
// per spec.md §4.5: which control block (by its Start field) along a
// file's control-block chain covers the offset, which slot in that
// block's id array holds it, and the byte offset within that data blob.
package ctrlindex

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/node"
)

// Position is the decomposition of a file byte offset, spec.md §4.5.
type Position struct {
	// CBIndex is which control block, by Start, covers the offset.
	CBIndex uint64
	// Slot is the index within that block's blob-id array.
	Slot int
	// Within is the byte offset inside the data blob at Slot.
	Within int
}

// Locate decomposes a file byte offset p.
func Locate(p uint64) Position {
	bpcb := block.BytesPerCB
	return Position{
		CBIndex: p / bpcb,
		Slot:    int((p % bpcb) / uint64(petastore.MaxBlobSize)),
		Within:  int(p % uint64(petastore.MaxBlobSize)),
	}
}

// FindSlot returns the data-blob id at slot in cb's blob-id array, and
// whether that slot is populated. An unpopulated slot (spec.md's "slot
// hole") is not an error.
func FindSlot(cb *node.Node, slot int) (petastore.ID, bool) {
	id := block.BlobIDAt(cb.Bytes(), slot)
	return id, id != 0
}

// Allocator is the subset of alloc.Allocator that this package needs.
type Allocator interface {
	Next(ctx context.Context) (petastore.ID, error)
}

// Walk repositions cb (a node already acquired by the caller) onto the
// control block whose Start equals target, walking prev/next as needed
// and chaining a new tail (via ChainBlock) when the file's control chain
// does not yet reach that far. The returned node replaces cb; the caller
// releases exactly one of the two (the one ultimately returned) — Walk
// releases any intermediate node it passes through.
func Walk(ctx context.Context, allocator Allocator, cb *node.Node, target uint64) (*node.Node, error) {
	cur := cb

	for {
		pre, err := block.ReadControlPreamble(cur.Bytes())
		if err != nil {
			return cur, errors.Wrapf(err, "reading control preamble of block %d", cur.ID())
		}

		switch {
		case pre.Start == target:
			return cur, nil

		case target < pre.Start:
			p, ok, err := cur.Prev(ctx)
			if err != nil {
				return cur, errors.Wrapf(err, "walking to prev control block from %d", cur.ID())
			}
			if !ok {
				return cur, errors.Wrapf(petastore.ErrMalformed, "control chain has no block for index %d", target)
			}
			if err := cur.Release(ctx); err != nil {
				return p, errors.Wrapf(err, "releasing control block %d", cur.ID())
			}
			cur = p

		default: // target > pre.Start
			next, ok, err := cur.Next(ctx)
			if err != nil {
				return cur, errors.Wrapf(err, "walking to next control block from %d", cur.ID())
			}
			if ok {
				if err := cur.Release(ctx); err != nil {
					return next, errors.Wrapf(err, "releasing control block %d", cur.ID())
				}
				cur = next
				continue
			}

			newTail, err := node.ChainBlock(ctx, cur, allocator.Next)
			if err != nil {
				return cur, errors.Wrap(err, "chaining new control block")
			}
			newPre := block.ControlPreamble{Directory: pre.Directory, Start: pre.Start + 1}
			if err := newTail.SetPreamble(ctx, block.WriteControlPreamble(newTail.Bytes(), newPre)); err != nil {
				return newTail, errors.Wrapf(err, "initializing chained control block %d", newTail.ID())
			}
			if err := cur.Release(ctx); err != nil {
				return newTail, errors.Wrapf(err, "releasing control block %d", cur.ID())
			}
			cur = newTail
		}
	}
}

// Peek is the read-only counterpart to Walk: it repositions cb onto the
// control block whose Start equals target by walking prev/next, but
// never chains a new tail. When the file's control chain does not
// reach that far, it returns the chain's current tail and ok == false
// rather than extending anything — this is how Read stays a pure,
// structure-preserving operation per spec.md §4.6.
func Peek(ctx context.Context, cb *node.Node, target uint64) (*node.Node, bool, error) {
	cur := cb

	for {
		pre, err := block.ReadControlPreamble(cur.Bytes())
		if err != nil {
			return cur, false, errors.Wrapf(err, "reading control preamble of block %d", cur.ID())
		}

		switch {
		case pre.Start == target:
			return cur, true, nil

		case target < pre.Start:
			p, ok, err := cur.Prev(ctx)
			if err != nil {
				return cur, false, errors.Wrapf(err, "walking to prev control block from %d", cur.ID())
			}
			if !ok {
				return cur, false, errors.Wrapf(petastore.ErrMalformed, "control chain has no block for index %d", target)
			}
			if err := cur.Release(ctx); err != nil {
				return p, false, errors.Wrapf(err, "releasing control block %d", cur.ID())
			}
			cur = p

		default: // target > pre.Start
			next, ok, err := cur.Next(ctx)
			if err != nil {
				return cur, false, errors.Wrapf(err, "walking to next control block from %d", cur.ID())
			}
			if !ok {
				return cur, false, nil
			}
			if err := cur.Release(ctx); err != nil {
				return next, false, errors.Wrapf(err, "releasing control block %d", cur.ID())
			}
			cur = next
		}
	}
}

// AppendSlot appends a new data-blob id to cb's blob-id array, per
// spec.md §4.6's write path (step 2): the caller has already confirmed
// the slot is unpopulated.
func AppendSlot(ctx context.Context, cb *node.Node, id petastore.ID) error {
	return cb.AppendRecord(ctx, block.ControlPreambleSize, block.BlobIDSize, block.EncodeBlobID(id))
}
