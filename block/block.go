// Package block interprets a blob's bytes as a typed block: a fixed
// header followed by an array of fixed-size records. It is the thinnest
// layer in this module and knows nothing about chains, caching, or file
// semantics — see package node for that.
package block

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
)

// Type identifies the kind of block a blob holds.
type Type uint32

const (
	// None marks an uninitialized or unused blob.
	None Type = iota
	// Control blocks index a file's data blobs.
	Control
	// Dir blocks hold FileEntry records for one directory-chain bucket.
	Dir
	// Data blobs hold raw file bytes. They carry no Header — see
	// DESIGN.md for why this module picked that convention.
	Data
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Control:
		return "control"
	case Dir:
		return "dir"
	case Data:
		return "data"
	default:
		return "unknown"
	}
}

// Flag bits for Header.Flags.
const (
	FlagNone uint32 = 0
	FlagNew  uint32 = 1 << 0
)

// HeaderSize is the on-blob size, in bytes, of a Header.
const HeaderSize = 24

// Header is the first HeaderSize bytes of every non-meta, non-data blob.
type Header struct {
	Type  Type
	Flags uint32
	Prev  petastore.ID
	Next  petastore.ID
}

// byteOrder is the serialization order this module uses for every
// multi-byte integer on the blob. spec.md §9 permits either a declared
// portable layout or an assertion that the process never migrates blobs
// across hosts; this module picks the former with a fixed little-endian
// layout, which is both portable and avoids the unsafe, non-idiomatic
// struct-casting the design notes warn against. See DESIGN.md.
var byteOrder = binary.LittleEndian

// ReadHeader parses the header at the start of b. It returns
// petastore.ErrMalformed for any b shorter than HeaderSize, an empty b
// included, even though an empty blob is the "never-written" state
// spec.md §6 describes; callers distinguish that state by checking
// len(b) == 0 before calling ReadHeader, or by using node.Node, which
// does this for them.
func ReadHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrapf(petastore.ErrMalformed, "blob too short for a header: %d bytes", len(b))
	}
	var h Header
	h.Type = Type(byteOrder.Uint32(b[0:4]))
	h.Flags = byteOrder.Uint32(b[4:8])
	h.Prev = petastore.ID(byteOrder.Uint64(b[8:16]))
	h.Next = petastore.ID(byteOrder.Uint64(b[16:24]))
	if h.Type != None && h.Type != Control && h.Type != Dir && h.Type != Data {
		return Header{}, errors.Wrapf(petastore.ErrMalformed, "unrecognized block type %d", h.Type)
	}
	return h, nil
}

// WriteHeader overwrites the first HeaderSize bytes of b with h, growing b
// if necessary, and returns the (possibly reallocated) slice. It preserves
// every byte beyond the header untouched.
func WriteHeader(b []byte, h Header) []byte {
	if len(b) < HeaderSize {
		grown := make([]byte, HeaderSize)
		copy(grown, b)
		b = grown
	}
	byteOrder.PutUint32(b[0:4], uint32(h.Type))
	byteOrder.PutUint32(b[4:8], h.Flags)
	byteOrder.PutUint64(b[8:16], uint64(h.Prev))
	byteOrder.PutUint64(b[16:24], uint64(h.Next))
	return b
}

// RecordCount returns how many fixed-size records of recordSize bytes
// follow a preamble of preambleSize bytes within a blob of blobLen bytes.
func RecordCount(blobLen, preambleSize, recordSize int) int {
	if blobLen <= preambleSize {
		return 0
	}
	return (blobLen - preambleSize) / recordSize
}

// RecordAt returns the slice of b holding the i-th record of recordSize
// bytes after a preamble of preambleSize bytes. The caller must have
// already checked i < RecordCount(len(b), preambleSize, recordSize).
func RecordAt(b []byte, preambleSize, recordSize, i int) []byte {
	off := preambleSize + i*recordSize
	return b[off : off+recordSize]
}

// Capacity returns the maximum number of recordSize-byte records that can
// follow a preamble of preambleSize bytes within a blob of at most
// petastore.MaxBlobSize bytes.
func Capacity(preambleSize, recordSize int) int {
	return (petastore.MaxBlobSize - preambleSize) / recordSize
}

// AppendRecord appends record (which must be recordSize bytes) to b, which
// holds preambleSize bytes of preamble followed by zero or more
// recordSize-byte records. It returns petastore.ErrBlockFull, and leaves b
// unmodified, if the result would exceed petastore.MaxBlobSize; the append
// is never partial.
func AppendRecord(b []byte, preambleSize, recordSize int, record []byte) ([]byte, error) {
	if len(record) != recordSize {
		return b, errors.Wrapf(petastore.ErrBadArgs, "record is %d bytes, want %d", len(record), recordSize)
	}
	if len(b)+recordSize > petastore.MaxBlobSize {
		return b, petastore.ErrBlockFull
	}
	out := make([]byte, len(b)+recordSize)
	copy(out, b)
	copy(out[len(b):], record)
	return out, nil
}
