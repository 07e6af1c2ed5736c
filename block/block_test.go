package block

import (
	"testing"

	"github.com/bobg/petastore"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Type: Dir, Flags: FlagNew, Prev: 7, Next: 9}
	b := WriteHeader(nil, h)
	if len(b) != HeaderSize {
		t.Fatalf("got %d bytes, want %d", len(b), HeaderSize)
	}
	got, err := ReadHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestReadHeaderTooShort(t *testing.T) {
	_, err := ReadHeader(make([]byte, HeaderSize-1))
	if err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestReadHeaderBadType(t *testing.T) {
	b := WriteHeader(nil, Header{Type: 99})
	_, err := ReadHeader(b)
	if err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestAppendRecordFull(t *testing.T) {
	b := make([]byte, petastore.MaxBlobSize-FileEntrySize+1)
	_, err := AppendRecord(b, 0, FileEntrySize, make([]byte, FileEntrySize))
	if err != petastore.ErrBlockFull {
		t.Fatalf("got %v, want ErrBlockFull", err)
	}
}

func TestFileEntryRoundTrip(t *testing.T) {
	e := FileEntry{Name: "abcdef.txt", ControlBlob: 1025}
	enc, err := EncodeFileEntry(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != FileEntrySize {
		t.Fatalf("got %d bytes, want %d", len(enc), FileEntrySize)
	}
	got, err := DecodeFileEntry(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Errorf("got %+v, want %+v", got, e)
	}
}

func TestFileEntryNameTooLong(t *testing.T) {
	name := make([]byte, MaxPath)
	for i := range name {
		name[i] = 'x'
	}
	_, err := EncodeFileEntry(FileEntry{Name: string(name)})
	if err == nil {
		t.Fatal("want error, got nil")
	}
}

func TestControlPreambleRoundTrip(t *testing.T) {
	p := ControlPreamble{Directory: 42, Start: 3}
	b := WriteHeader(nil, Header{Type: Control})
	b = WriteControlPreamble(b, p)
	got, err := ReadControlPreamble(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("got %+v, want %+v", got, p)
	}
}

func TestBlobIDAtHole(t *testing.T) {
	b := make([]byte, ControlPreambleSize)
	if BlobIDAt(b, 0) != 0 {
		t.Error("want 0 for unpopulated slot")
	}
}

func TestCapacityMatchesSpecApprox(t *testing.T) {
	// spec.md gives these as approximate figures; assert we're in the
	// right ballpark rather than pinning exact numbers that depend on
	// exactly which fields precede the array.
	if DirCapacity < 490 || DirCapacity > 520 {
		t.Errorf("DirCapacity = %d, want roughly 504", DirCapacity)
	}
	if ControlCapacity < 32000 || ControlCapacity > 33000 {
		t.Errorf("ControlCapacity = %d, want roughly 32765", ControlCapacity)
	}
}
