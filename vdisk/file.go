package vdisk

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/ctrlindex"
	"github.com/bobg/petastore/node"
)

var (
	_ io.ReadWriteSeeker = (*File)(nil)
)

// File is spec.md §4.6's FILE: a cursor plus the last-visited control
// block, cached to keep sequential I/O cheap.
//
// File stores the context it was opened with and reuses it from Read,
// Write, and Seek, which must satisfy the context-free stdlib
// io.ReadWriteSeeker interface (so that vdisk.FS, this package's
// io/fs.FS adapter, and any other stdlib-shaped consumer can use a
// File directly). This is the same antipattern bs/fs.FS accepts for
// the same reason; see its NewFS for the precedent.
type File struct {
	ctx      context.Context
	fs       *FileSystem
	name     string
	position uint64
	cb       *node.Node
	closed   bool
}

// Tell returns the file's current cursor position.
func (f *File) Tell() (int64, error) {
	if f.closed {
		return 0, errors.Wrap(petastore.ErrBadArgs, "file is closed")
	}
	return int64(f.position), nil
}

// Seek implements io.Seeker per spec.md §4.6. Negative resulting
// positions are rejected with petastore.ErrBadArgs; seeking past EOF is
// allowed.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, errors.Wrap(petastore.ErrBadArgs, "file is closed")
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(f.position)
	case io.SeekEnd:
		size, head, err := f.fs.size(f.ctx, f.cb)
		if err != nil {
			return 0, errors.Wrap(err, "sizing for seek")
		}
		f.cb = head
		base = int64(size)
	default:
		return 0, errors.Wrapf(petastore.ErrBadArgs, "unrecognized whence %d", whence)
	}

	newPos := base + offset
	if newPos < 0 {
		return 0, errors.Wrapf(petastore.ErrBadArgs, "seek to negative position %d", newPos)
	}
	f.position = uint64(newPos)
	return newPos, nil
}

// Read implements io.Reader per spec.md §4.6: it never extends the
// file's structures. A slot hole or an exhausted chain both end the
// read as a short read, not an error; a Read that finds no bytes at all
// there returns (0, io.EOF).
func (f *File) Read(buf []byte) (int, error) {
	if f.closed {
		return 0, errors.Wrap(petastore.ErrBadArgs, "file is closed")
	}

	var read int
	for read < len(buf) {
		pos := ctrlindex.Locate(f.position)

		cb, found, err := ctrlindex.Peek(f.ctx, f.cb, pos.CBIndex)
		f.cb = cb
		if err != nil {
			return read, errors.Wrapf(err, "locating control block for offset %d", f.position)
		}
		if !found {
			break
		}

		id, ok := ctrlindex.FindSlot(cb, pos.Slot)
		if !ok {
			break
		}

		dn, err := f.fs.arena.Acquire(f.ctx, id, block.Data)
		if err != nil {
			return read, errors.Wrapf(err, "acquiring data blob %d", id)
		}
		data := dn.Bytes()
		if pos.Within >= len(data) {
			dn.Release(f.ctx)
			break
		}

		chunk := len(data) - pos.Within
		if remain := len(buf) - read; chunk > remain {
			chunk = remain
		}
		copy(buf[read:read+chunk], data[pos.Within:pos.Within+chunk])
		if err := dn.Release(f.ctx); err != nil {
			return read, err
		}

		f.position += uint64(chunk)
		read += chunk

		if chunk == 0 {
			break
		}
	}
	if read == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return read, nil
}

// Write implements io.Writer per spec.md §4.6: it locates (extending
// the control-block chain if necessary), fills any intervening slot
// holes with zero entries, grows the target data blob as needed, and
// splices in the new bytes.
func (f *File) Write(buf []byte) (int, error) {
	if f.closed {
		return 0, errors.Wrap(petastore.ErrBadArgs, "file is closed")
	}

	var written int
	for written < len(buf) {
		pos := ctrlindex.Locate(f.position)

		cb, err := ctrlindex.Walk(f.ctx, f.fs.alloc, f.cb, pos.CBIndex)
		f.cb = cb
		if err != nil {
			return written, errors.Wrapf(err, "locating control block for offset %d", f.position)
		}

		id, ok := ctrlindex.FindSlot(cb, pos.Slot)
		if !ok {
			newID, err := f.fs.alloc.Next(f.ctx)
			if err != nil {
				return written, errors.Wrap(err, "allocating data blob id")
			}
			populated := block.PopulatedSlots(cb.Bytes())
			for s := populated; s < pos.Slot; s++ {
				if err := ctrlindex.AppendSlot(f.ctx, cb, 0); err != nil {
					return written, errors.Wrapf(err, "filling slot hole %d", s)
				}
			}
			if err := ctrlindex.AppendSlot(f.ctx, cb, newID); err != nil {
				return written, errors.Wrapf(err, "appending slot %d", pos.Slot)
			}
			id = newID
		}

		dn, err := f.fs.arena.Acquire(f.ctx, id, block.Data)
		if err != nil {
			return written, errors.Wrapf(err, "acquiring data blob %d", id)
		}

		chunk := len(buf) - written
		if max := petastore.MaxBlobSize - pos.Within; chunk > max {
			chunk = max
		}

		raw := dn.Bytes()
		needed := pos.Within + chunk
		if len(raw) < needed {
			grown := make([]byte, needed)
			copy(grown, raw)
			raw = grown
		}
		copy(raw[pos.Within:needed], buf[written:written+chunk])
		if err := dn.SetBytes(f.ctx, raw); err != nil {
			dn.Release(f.ctx)
			return written, errors.Wrapf(err, "writing data blob %d", id)
		}
		if err := dn.Release(f.ctx); err != nil {
			return written, err
		}

		f.position += uint64(chunk)
		written += chunk
	}
	return written, nil
}

// Close releases this file's cached control-block node. Per spec.md
// §4.6 close always succeeds unless the file is already closed.
func (f *File) Close() error {
	if f.closed {
		return errors.Wrap(petastore.ErrBadArgs, "file already closed")
	}
	f.closed = true
	return f.cb.Release(f.ctx)
}
