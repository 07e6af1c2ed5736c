package vdisk

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/alloc"
)

// magic is the 16-byte constant (including its trailing NUL) identifying
// the on-disk format, spec.md §6.
var magic = [16]byte{'v', 'd', 'i', 's', 'k', '2', '0', '2', '1', '-', '0', '0', '0', '0', '1'}

// metaVersion is the only version this package writes or accepts.
const metaVersion uint64 = 1

// metaSize is the on-blob size of the meta block.
const metaSize = 16 + 8 + 8

// meta is the bootstrap record at blob id 0.
type meta struct {
	magic    [16]byte
	version  uint64
	nextFree petastore.ID
}

func freshMeta() meta {
	return meta{magic: magic, version: metaVersion, nextFree: alloc.FirstFree}
}

func decodeMeta(b []byte) (meta, error) {
	if len(b) < metaSize {
		return meta{}, errors.Wrapf(petastore.ErrMalformed, "meta block too short: %d bytes", len(b))
	}
	var m meta
	copy(m.magic[:], b[0:16])
	if m.magic != magic {
		return meta{}, errors.Wrapf(petastore.ErrMalformed, "bad magic %q", m.magic)
	}
	m.version = binary.LittleEndian.Uint64(b[16:24])
	if m.version != metaVersion {
		return meta{}, errors.Wrapf(petastore.ErrMalformed, "unsupported meta version %d", m.version)
	}
	m.nextFree = petastore.ID(binary.LittleEndian.Uint64(b[24:32]))
	return m, nil
}

func encodeMeta(m meta) []byte {
	b := make([]byte, metaSize)
	copy(b[0:16], m.magic[:])
	binary.LittleEndian.PutUint64(b[16:24], m.version)
	binary.LittleEndian.PutUint64(b[24:32], uint64(m.nextFree))
	return b
}
