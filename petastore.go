// Package petastore describes the blob store that the vdisk file system is
// layered on top of: a fixed-size address space of numbered, mutable byte
// buffers.
//
// A blob is identified by a uint64 id, not by the hash of its content —
// the caller (in practice, the vdisk allocator) assigns ids, and a blob's
// bytes can be overwritten in place. This is the one place this module's
// design departs from the content-addressable model of the repository it
// is developed in the style of: here, identity comes from the caller, not
// from a digest.
package petastore

import (
	"context"
	"errors"
)

// MaxBlobSize is the largest number of bytes a single blob may hold.
const MaxBlobSize = 262144

// ID identifies a blob. 0 is reserved for the meta block (see package
// vdisk); callers of Store should otherwise treat the id space as opaque.
type ID uint64

// Blob is the content of one blob.
type Blob []byte

// Getter is the read half of Store.
type Getter interface {
	// Get returns the current bytes of the blob with the given id.
	// A never-written id yields an empty, non-error Blob, matching the
	// "creates a zero-length blob on first access" contract of spec.md §6.
	Get(ctx context.Context, id ID) (Blob, error)
}

// Store is a blob store: a fixed-size address space of numbered, mutable
// byte buffers, each at most MaxBlobSize bytes.
type Store interface {
	Getter

	// Put overwrites the blob with the given id. It is the caller's job to
	// keep b within MaxBlobSize; stores return ErrOutOfSpace or ErrBadArgs
	// as appropriate when they can't.
	Put(ctx context.Context, id ID, b Blob) error

	// Release lets the store know this id's handle is no longer needed.
	// Most backends make this a no-op; file-handle-backed ones may use it
	// to close a descriptor.
	Release(ctx context.Context, id ID) error

	// FreeSpace reports how many bytes of storage remain, in whatever unit
	// the backend finds meaningful. Backed stores with no natural notion of
	// a limit (e.g. store/mem) return a very large number.
	FreeSpace(ctx context.Context) (uint64, error)
}

// Error kinds, per spec.md §7. Callers test for these with errors.Is;
// every layer of this module wraps the sentinel with context using
// github.com/pkg/errors rather than discarding it.
var (
	// ErrNotFound is returned when a name is absent from its directory
	// chain on a must-exist open, or on fremove.
	ErrNotFound = errors.New("petastore: not found")

	// ErrBadArgs is returned for a malformed request: a name too long or
	// not printable ASCII, a negative seek result, a nil handle.
	ErrBadArgs = errors.New("petastore: bad arguments")

	// ErrOutOfSpace is returned when the free-id allocator or a backing
	// store has exhausted its capacity.
	ErrOutOfSpace = errors.New("petastore: out of space")

	// ErrBlockFull is returned internally when a record append would
	// overflow a blob; callers never see it directly — it is always
	// caught and turned into a chained block.
	ErrBlockFull = errors.New("petastore: block full")

	// ErrMalformed is returned when a blob's header cannot be interpreted
	// as the expected block type, or the meta block fails magic/version
	// validation.
	ErrMalformed = errors.New("petastore: malformed block")

	// ErrIO covers any other underlying store failure.
	ErrIO = errors.New("petastore: I/O error")
)
