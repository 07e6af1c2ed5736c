package block

import (
	"github.com/pkg/errors"

	"github.com/bobg/petastore"
)

// ControlPreambleSize is the number of bytes of a Control blob that come
// before its blob-id array: the Header, plus the Directory and Start
// fields of spec.md §3.
const ControlPreambleSize = HeaderSize + 8 + 8

// BlobIDSize is the size of one entry in a Control blob's blob-id array.
const BlobIDSize = 8

// ControlCapacity is the maximum number of data-blob ids a single Control
// blob can index.
var ControlCapacity = Capacity(ControlPreambleSize, BlobIDSize)

// BytesPerCB is the span of file-byte offsets one Control blob covers —
// spec.md's BYTES_PER_CB.
var BytesPerCB = uint64(petastore.MaxBlobSize) * uint64(ControlCapacity)

// ControlPreamble is the Directory/Start pair stored right after a
// Control blob's Header.
type ControlPreamble struct {
	// Directory is the id of the head of the directory chain that holds
	// this file's FileEntry. vdisk's Remove does not read it; it finds
	// the entry by hashing the name.
	Directory petastore.ID

	// Start is this block's index (in units of BytesPerCB) within its
	// file's control chain: the k-th block has Start == k.
	Start uint64
}

// ReadControlPreamble parses the Directory/Start fields that follow the
// Header in a Control blob.
func ReadControlPreamble(b []byte) (ControlPreamble, error) {
	if len(b) < ControlPreambleSize {
		return ControlPreamble{}, errors.Wrapf(petastore.ErrMalformed, "control blob too short: %d bytes", len(b))
	}
	return ControlPreamble{
		Directory: petastore.ID(byteOrder.Uint64(b[HeaderSize : HeaderSize+8])),
		Start:     byteOrder.Uint64(b[HeaderSize+8 : HeaderSize+16]),
	}, nil
}

// WriteControlPreamble overwrites the Directory/Start fields of a Control
// blob, growing b if necessary, and returns the (possibly reallocated)
// slice.
func WriteControlPreamble(b []byte, p ControlPreamble) []byte {
	if len(b) < ControlPreambleSize {
		grown := make([]byte, ControlPreambleSize)
		copy(grown, b)
		b = grown
	}
	byteOrder.PutUint64(b[HeaderSize:HeaderSize+8], uint64(p.Directory))
	byteOrder.PutUint64(b[HeaderSize+8:HeaderSize+16], p.Start)
	return b
}

// BlobIDAt returns the j-th data-blob id stored in a Control blob, or 0 if
// j is beyond the populated range (spec.md's "slot hole").
func BlobIDAt(b []byte, j int) petastore.ID {
	n := RecordCount(len(b), ControlPreambleSize, BlobIDSize)
	if j >= n {
		return 0
	}
	return petastore.ID(byteOrder.Uint64(RecordAt(b, ControlPreambleSize, BlobIDSize, j)))
}

// PopulatedSlots returns the number of data-blob ids currently stored in a
// Control blob.
func PopulatedSlots(b []byte) int {
	return RecordCount(len(b), ControlPreambleSize, BlobIDSize)
}

// EncodeBlobID renders a data-blob id as a BlobIDSize-byte record, for use
// with AppendRecord.
func EncodeBlobID(id petastore.ID) []byte {
	out := make([]byte, BlobIDSize)
	byteOrder.PutUint64(out, uint64(id))
	return out
}
