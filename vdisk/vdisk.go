// Package vdisk implements the externally visible file-handle API of
// spec.md §4.6-4.7 over the directory index, control index, and
// free-id allocator: open/close/read/write/tell/seek/remove, plus the
// meta-block bootstrap of spec.md §4.1/§6.
package vdisk

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/alloc"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/ctrlindex"
	"github.com/bobg/petastore/dirindex"
	"github.com/bobg/petastore/node"
)

// FileSystem is the explicit context spec.md §9 asks for in place of the
// original's g_meta global and fs singleton: every API call takes one of
// these rather than relying on process-wide state.
type FileSystem struct {
	store petastore.Store
	arena *node.Arena
	alloc *alloc.Allocator
}

// Initialize reads blob 0 and either bootstraps a fresh meta record (per
// spec.md §4.6's init) or validates and loads an existing one. Using a
// FileSystem before Initialize, or after Finalize, is undefined behaviour,
// per spec.md §5.
func Initialize(ctx context.Context, store petastore.Store) (*FileSystem, error) {
	b, err := store.Get(ctx, 0)
	if err != nil {
		return nil, errors.Wrap(err, "reading meta block")
	}

	var m meta
	if len(b) < metaSize {
		m = freshMeta()
		if err := store.Put(ctx, 0, petastore.Blob(encodeMeta(m))); err != nil {
			return nil, errors.Wrap(err, "writing fresh meta block")
		}
	} else {
		m, err = decodeMeta(b)
		if err != nil {
			return nil, errors.Wrap(err, "validating meta block")
		}
	}

	return &FileSystem{
		store: store,
		arena: node.NewArena(store),
		alloc: alloc.New(m.nextFree),
	}, nil
}

// Finalize persists the current allocator counter back to blob 0. After
// Finalize, this FileSystem must not be used again.
func (fs *FileSystem) Finalize(ctx context.Context) error {
	m := meta{magic: magic, version: metaVersion, nextFree: fs.alloc.Peek()}
	return errors.Wrap(fs.store.Put(ctx, 0, petastore.Blob(encodeMeta(m))), "writing meta block")
}

// mode is the parsed intent of an Open call, per spec.md §9's resolution
// of the original's mode-parsing ambiguity: any 'w' means create, and a
// 'w' with no 'r' also truncates ("rw" opens read-write and keeps the
// contents); 'a' means append, and bare "r" means must-exist at position 0.
type mode struct {
	create   bool
	truncate bool
	append   bool
}

func parseMode(s string) mode {
	var m mode
	if strings.ContainsRune(s, 'w') {
		m.create = true
		m.truncate = !strings.ContainsRune(s, 'r')
	}
	if strings.ContainsRune(s, 'a') {
		m.create = true
		m.append = true
	}
	return m
}

func validName(name string) error {
	if len(name) == 0 || len(name) >= block.MaxPath {
		return errors.Wrapf(petastore.ErrBadArgs, "name %q has invalid length %d", name, len(name))
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return errors.Wrapf(petastore.ErrBadArgs, "name %q is not printable ASCII", name)
		}
	}
	return nil
}

// Open implements spec.md §4.6's open. The mode string is parsed per
// parseMode; on a must-exist miss it returns petastore.ErrNotFound.
func (fs *FileSystem) Open(ctx context.Context, name string, modeStr string) (*File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	m := parseMode(modeStr)
	action := dirindex.MustExist
	if m.create {
		action = dirindex.Create
	}

	cb, err := dirindex.LookupOrCreate(ctx, fs.arena, fs.alloc, name, action)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", name)
	}

	if m.truncate {
		cb, err = fs.truncate(ctx, cb)
		if err != nil {
			return nil, errors.Wrapf(err, "truncating %q", name)
		}
	}

	f := &File{ctx: ctx, fs: fs, name: name, cb: cb}
	if m.append {
		size, head, err := fs.size(ctx, cb)
		if err != nil {
			return nil, errors.Wrapf(err, "sizing %q", name)
		}
		f.cb = head
		f.position = size
	}
	return f, nil
}

// Remove implements spec.md §4.6's remove: it clears the FileEntry in
// place, leaving a tombstone, and leaks the file's control and data
// blobs (spec.md §9's unresolved reclamation question).
func (fs *FileSystem) Remove(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}

	head, err := fs.arena.Acquire(ctx, dirindex.HeadID(name), block.Dir)
	if err != nil {
		return errors.Wrap(err, "acquiring dir chain head")
	}

	cur := head
	for {
		entries, err := block.DirEntries(cur.Bytes())
		if err != nil {
			releaseIfNotHead(ctx, head, cur)
			return errors.Wrapf(err, "decoding dir block %d", cur.ID())
		}
		for i, e := range entries {
			if e.Tombstoned() || e.Name != name {
				continue
			}
			tomb, err := block.EncodeFileEntry(block.FileEntry{})
			if err != nil {
				releaseIfNotHead(ctx, head, cur)
				return errors.Wrap(err, "encoding tombstone")
			}
			raw := cur.Bytes()
			off := block.HeaderSize + i*block.FileEntrySize
			copy(raw[off:off+block.FileEntrySize], tomb)
			if err := cur.SetPreamble(ctx, raw); err != nil {
				releaseIfNotHead(ctx, head, cur)
				return errors.Wrapf(err, "writing tombstone to dir block %d", cur.ID())
			}
			releaseIfNotHead(ctx, head, cur)
			return nil
		}

		next, ok, err := cur.Next(ctx)
		if err != nil {
			releaseIfNotHead(ctx, head, cur)
			return errors.Wrapf(err, "advancing dir chain from %d", cur.ID())
		}
		if !ok {
			releaseIfNotHead(ctx, head, cur)
			return petastore.ErrNotFound
		}
		if cur != head {
			cur.Release(ctx)
		}
		cur = next
	}
}

func releaseIfNotHead(ctx context.Context, head, cur *node.Node) {
	if cur != head {
		cur.Release(ctx)
	}
	head.Release(ctx)
}

// truncate clears every control block in cb's chain back to an empty
// blob-id array and returns the chain's head (Start == 0), per the
// decision recorded in DESIGN.md for spec.md §9's "initial position for
// 'w'" open question.
func (fs *FileSystem) truncate(ctx context.Context, cb *node.Node) (*node.Node, error) {
	cur, err := ctrlindex.Walk(ctx, fs.alloc, cb, 0)
	if err != nil {
		return nil, errors.Wrap(err, "walking to control chain head")
	}
	for {
		if err := cur.SetPreamble(ctx, cur.Bytes()[:block.ControlPreambleSize]); err != nil {
			cur.Release(ctx)
			return nil, errors.Wrapf(err, "clearing control block %d", cur.ID())
		}
		next, ok, err := cur.Next(ctx)
		if err != nil {
			cur.Release(ctx)
			return nil, errors.Wrapf(err, "advancing control chain from %d", cur.ID())
		}
		if !ok {
			head, err := ctrlindex.Walk(ctx, fs.alloc, cur, 0)
			if err != nil {
				return nil, errors.Wrap(err, "walking back to control chain head")
			}
			return head, nil
		}
		cur.Release(ctx)
		cur = next
	}
}

// size walks cb's chain to its tail and computes the file's current
// length. There is no persisted size field (spec.md never specifies
// one); length is derived from the last populated slot's actual blob
// length, which is correct as long as writes only ever extend a file
// sequentially — the only way this module's Write path grows one.
func (fs *FileSystem) size(ctx context.Context, cb *node.Node) (uint64, *node.Node, error) {
	cur := cb
	for {
		next, ok, err := cur.Next(ctx)
		if err != nil {
			cur.Release(ctx)
			return 0, nil, errors.Wrapf(err, "advancing control chain from %d", cur.ID())
		}
		if !ok {
			break
		}
		cur.Release(ctx)
		cur = next
	}

	pre, err := block.ReadControlPreamble(cur.Bytes())
	if err != nil {
		cur.Release(ctx)
		return 0, nil, errors.Wrapf(err, "reading control preamble of block %d", cur.ID())
	}

	populated := block.PopulatedSlots(cur.Bytes())
	size := pre.Start * block.BytesPerCB
	if populated > 0 {
		size += uint64(populated-1) * uint64(petastore.MaxBlobSize)
		lastID := block.BlobIDAt(cur.Bytes(), populated-1)
		if lastID != 0 {
			dn, err := fs.arena.Acquire(ctx, lastID, block.Data)
			if err != nil {
				cur.Release(ctx)
				return 0, nil, errors.Wrapf(err, "acquiring data blob %d", lastID)
			}
			size += uint64(dn.Size())
			if err := dn.Release(ctx); err != nil {
				cur.Release(ctx)
				return 0, nil, err
			}
		}
	}

	head, err := ctrlindex.Walk(ctx, fs.alloc, cur, 0)
	if err != nil {
		return 0, nil, errors.Wrap(err, "walking back to control chain head")
	}
	return size, head, nil
}
