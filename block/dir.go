package block

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
)

// MaxPath is the longest filename this module supports, in bytes.
const MaxPath = 512

// FileEntrySize is the on-blob size of a FileEntry record.
const FileEntrySize = MaxPath + 8

// DirCapacity is the maximum number of FileEntry records a single Dir
// blob can hold.
var DirCapacity = Capacity(HeaderSize, FileEntrySize)

// FileEntry maps one filename to the id of its control block. A tombstoned
// entry (spec.md's term for one cleared by Remove) has a zero Name and a
// zero ControlBlob.
type FileEntry struct {
	Name        string
	ControlBlob petastore.ID
}

// Tombstoned reports whether e has been cleared by Remove.
func (e FileEntry) Tombstoned() bool {
	return e.Name == "" && e.ControlBlob == 0
}

// EncodeFileEntry renders e as FileEntrySize bytes: the name, NUL-padded
// to MaxPath, followed by the control-blob id.
func EncodeFileEntry(e FileEntry) ([]byte, error) {
	if len(e.Name) >= MaxPath {
		return nil, errors.Wrapf(petastore.ErrBadArgs, "name %q is %d bytes, must be < %d", e.Name, len(e.Name), MaxPath)
	}
	out := make([]byte, FileEntrySize)
	copy(out[:MaxPath], e.Name)
	byteOrder.PutUint64(out[MaxPath:], uint64(e.ControlBlob))
	return out, nil
}

// DecodeFileEntry parses a FileEntrySize-byte record produced by
// EncodeFileEntry.
func DecodeFileEntry(b []byte) (FileEntry, error) {
	if len(b) != FileEntrySize {
		return FileEntry{}, errors.Wrapf(petastore.ErrMalformed, "file entry is %d bytes, want %d", len(b), FileEntrySize)
	}
	nameBytes := b[:MaxPath]
	if i := bytes.IndexByte(nameBytes, 0); i >= 0 {
		nameBytes = nameBytes[:i]
	}
	return FileEntry{
		Name:        string(nameBytes),
		ControlBlob: petastore.ID(byteOrder.Uint64(b[MaxPath:])),
	}, nil
}

// NameMatches reports whether the bytes of b's Name field match name
// exactly, comparing as C strings (up to the first NUL), per spec.md §4.4.
func NameMatches(b []byte, name string) bool {
	nameBytes := b[:MaxPath]
	if i := bytes.IndexByte(nameBytes, 0); i >= 0 {
		nameBytes = nameBytes[:i]
	}
	return string(nameBytes) == name
}

// DirEntries decodes every FileEntry in a Dir blob, tombstoned ones
// included (callers check FileEntry.Tombstoned). b is the full blob bytes
// including the header; DirEntries skips HeaderSize itself.
func DirEntries(b []byte) ([]FileEntry, error) {
	n := RecordCount(len(b), HeaderSize, FileEntrySize)
	entries := make([]FileEntry, 0, n)
	for i := 0; i < n; i++ {
		e, err := DecodeFileEntry(RecordAt(b, HeaderSize, FileEntrySize, i))
		if err != nil {
			return nil, errors.Wrapf(err, "decoding file entry %d", i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
