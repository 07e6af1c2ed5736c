// Package dirindex maps filenames to control-block ids, per spec.md
// §4.4. It hashes a name to one of a fixed set of directory-chain heads
// and scans the chain rooted there, creating a new chain link or a new
// control block on demand.
package dirindex

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/alloc"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/node"
)

const (
	fnvInit  uint32 = 0x811c9dc5
	fnvPrime uint32 = 0x01000193
)

// DirHeads is the number of reserved directory-chain head ids, spec.md
// §3's DIR_HEADS.
const DirHeads = alloc.DirHeads

// FNV1a32 computes the 32-bit FNV-1a hash of name, byte-at-a-time
// XOR-then-multiply, per spec.md §4.4.
func FNV1a32(name string) uint32 {
	h := fnvInit
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= fnvPrime
	}
	return h
}

// HeadID returns the directory-chain head id for name: spec.md's
// dir_head_id(name) = fnv1a32(name) mod DIR_HEADS + 1.
func HeadID(name string) petastore.ID {
	return petastore.ID(FNV1a32(name)%DirHeads) + 1
}

// Action selects the behavior of LookupOrCreate when name is absent.
type Action int

const (
	// MustExist causes LookupOrCreate to report petastore.ErrNotFound
	// when name is absent.
	MustExist Action = iota
	// Create causes LookupOrCreate to allocate a new control block and
	// file entry when name is absent.
	Create
)

// Allocator is the subset of alloc.Allocator that LookupOrCreate needs,
// expressed as an interface so this package does not have to depend on
// alloc's concrete type.
type Allocator interface {
	Next(ctx context.Context) (petastore.ID, error)
}

// LookupOrCreate implements spec.md §4.4's lookup_or_create. It opens
// the directory chain rooted at HeadID(name), scans every block in
// order for an exact, NUL-terminated match, and on a miss either fails
// (MustExist) or allocates a fresh control block and appends a FileEntry
// for it (Create).
//
// The returned Control node is the caller's to Release.
func LookupOrCreate(ctx context.Context, arena *node.Arena, allocator Allocator, name string, action Action) (*node.Node, error) {
	if len(name) >= block.MaxPath {
		return nil, errors.Wrapf(petastore.ErrBadArgs, "name %q is %d bytes, must be < %d", name, len(name), block.MaxPath)
	}

	head, err := arena.Acquire(ctx, HeadID(name), block.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "acquiring dir chain head")
	}

	cur := head
	var tail *node.Node
	for {
		entries, err := block.DirEntries(cur.Bytes())
		if err != nil {
			releaseChain(ctx, head, cur)
			return nil, errors.Wrapf(err, "decoding dir block %d", cur.ID())
		}
		for _, e := range entries {
			if e.Tombstoned() {
				continue
			}
			if e.Name == name {
				cb, err := arena.Acquire(ctx, e.ControlBlob, block.Control)
				releaseChain(ctx, head, cur)
				if err != nil {
					return nil, errors.Wrapf(err, "acquiring control block %d", e.ControlBlob)
				}
				return cb, nil
			}
		}

		next, ok, err := cur.Next(ctx)
		if err != nil {
			releaseChain(ctx, head, cur)
			return nil, errors.Wrapf(err, "advancing dir chain from %d", cur.ID())
		}
		if !ok {
			tail = cur
			break
		}
		if cur != head {
			if err := cur.Release(ctx); err != nil {
				return nil, errors.Wrapf(err, "releasing dir block %d", cur.ID())
			}
		}
		cur = next
	}

	if action == MustExist {
		releaseChain(ctx, head, tail)
		return nil, petastore.ErrNotFound
	}

	cbID, err := allocator.Next(ctx)
	if err != nil {
		releaseChain(ctx, head, tail)
		return nil, errors.Wrap(err, "allocating control block id")
	}
	cb, err := arena.Acquire(ctx, cbID, block.Control)
	if err != nil {
		releaseChain(ctx, head, tail)
		return nil, errors.Wrapf(err, "acquiring new control block %d", cbID)
	}
	pre := block.ControlPreamble{Directory: HeadID(name)}
	if err := writeControlPreamble(ctx, cb, pre); err != nil {
		releaseChain(ctx, head, tail)
		return nil, err
	}

	rec, err := block.EncodeFileEntry(block.FileEntry{Name: name, ControlBlob: cbID})
	if err != nil {
		releaseChain(ctx, head, tail)
		return nil, errors.Wrap(err, "encoding file entry")
	}

	if err := tail.AppendRecord(ctx, block.HeaderSize, block.FileEntrySize, rec); err != nil {
		if err != petastore.ErrBlockFull {
			releaseChain(ctx, head, tail)
			return nil, errors.Wrapf(err, "appending file entry to dir block %d", tail.ID())
		}
		newTail, err := node.ChainBlock(ctx, tail, allocator.Next)
		if err != nil {
			releaseChain(ctx, head, tail)
			return nil, errors.Wrap(err, "chaining new dir block")
		}
		if tail != head {
			tail.Release(ctx)
		}
		tail = newTail
		if err := tail.AppendRecord(ctx, block.HeaderSize, block.FileEntrySize, rec); err != nil {
			releaseChain(ctx, head, tail)
			return nil, errors.Wrapf(err, "appending file entry to chained dir block %d", tail.ID())
		}
	}

	releaseChain(ctx, head, tail)
	return cb, nil
}

func writeControlPreamble(ctx context.Context, cb *node.Node, pre block.ControlPreamble) error {
	return cb.SetPreamble(ctx, block.WriteControlPreamble(cb.Bytes(), pre))
}

func releaseChain(ctx context.Context, head, cur *node.Node) {
	if cur != nil && cur != head {
		cur.Release(ctx)
	}
	if head != nil {
		head.Release(ctx)
	}
}
