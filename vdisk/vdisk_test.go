package vdisk

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/store/mem"
)

func TestRoundTripSmallFile(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}

	h, err := fs.Open(ctx, "abcdef.txt", "rw")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("hello disk!\x00")
	n, err := h.Write(want)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(want) {
		t.Fatalf("wrote %d bytes, want %d", n, len(want))
	}
	pos, err := h.Tell()
	if err != nil {
		t.Fatal(err)
	}
	if pos != int64(len(want)) {
		t.Fatalf("Tell() = %d, want %d", pos, len(want))
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	h2, err := fs.Open(ctx, "abcdef.txt", "rw")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	n, err = h2.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(want) {
		t.Fatalf("read %d bytes, want %d", n, len(want))
	}
	if !bytes.Equal(buf[:n], want) {
		t.Fatalf("got %q, want %q", buf[:n], want)
	}
	if err := h2.Close(); err != nil {
		t.Fatal(err)
	}

	if err := fs.Finalize(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestOpenMustExistMiss(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open(ctx, "nope.txt", "r"); err == nil {
		t.Fatal("want error opening missing file for read")
	}
}

func TestRemoveThenOpenMustExistFails(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}

	h, err := fs.Open(ctx, "a", "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	if err := fs.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open(ctx, "a", "r"); err == nil {
		t.Fatal("want error opening removed file")
	}
}

func TestPersistenceAcrossFinalizeInitialize(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	fs1, err := Initialize(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	h, err := fs1.Open(ctx, "p", "w")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("persisted bytes")
	if _, err := h.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fs1.Finalize(ctx); err != nil {
		t.Fatal(err)
	}
	nextFree := fs1.alloc.Peek()

	fs2, err := Initialize(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if got := fs2.alloc.Peek(); got != nextFree {
		t.Errorf("next_free after reinitialize = %d, want %d", got, nextFree)
	}

	h2, err := fs2.Open(ctx, "p", "r")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(h2, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("got %q, want %q", buf, want)
	}
	h2.Close()
}

func TestAppendStartsAtEOF(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}

	h, err := fs.Open(ctx, "log", "w")
	if err != nil {
		t.Fatal(err)
	}
	h.Write([]byte("first"))
	h.Close()

	h2, err := fs.Open(ctx, "log", "a")
	if err != nil {
		t.Fatal(err)
	}
	pos, err := h2.Tell()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 5 {
		t.Fatalf("append position = %d, want 5", pos)
	}
	h2.Write([]byte("second"))
	h2.Close()

	h3, err := fs.Open(ctx, "log", "r")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 32)
	n, _ := h3.Read(buf)
	if string(buf[:n]) != "firstsecond" {
		t.Fatalf("got %q, want %q", buf[:n], "firstsecond")
	}
	h3.Close()
}

func TestWriteTruncatesOnReopenWithW(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}

	h, err := fs.Open(ctx, "trunc", "w")
	if err != nil {
		t.Fatal(err)
	}
	h.Write([]byte("0123456789"))
	h.Close()

	h2, err := fs.Open(ctx, "trunc", "w")
	if err != nil {
		t.Fatal(err)
	}
	pos, _ := h2.Tell()
	if pos != 0 {
		t.Fatalf("position after truncating open = %d, want 0", pos)
	}
	h2.Write([]byte("ab"))
	h2.Close()

	h3, err := fs.Open(ctx, "trunc", "r")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 32)
	n, _ := h3.Read(buf)
	if string(buf[:n]) != "ab" {
		t.Fatalf("got %q, want %q", buf[:n], "ab")
	}
	h3.Close()
}

func TestControlBlockChaining(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}

	h, err := fs.Open(ctx, "big", "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Seek(int64(block.BytesPerCB), io.SeekStart); err != nil {
		t.Fatal(err)
	}
	payload := []byte("0123456789abcdef")
	if _, err := h.Write(payload); err != nil {
		t.Fatal(err)
	}
	h.Close()

	h2, err := fs.Open(ctx, "big", "r")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h2.Seek(int64(block.BytesPerCB), io.SeekStart); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, len(payload))
	n, err := h2.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Fatalf("got %q, want %q", buf[:n], payload)
	}
	h2.Close()
}

func TestSeekNegativeRejected(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}
	h, err := fs.Open(ctx, "s", "w")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	if _, err := h.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("want error seeking to negative position")
	}
}

func TestOpenBadName(t *testing.T) {
	ctx := context.Background()
	fs, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Open(ctx, "", "w"); err == nil {
		t.Fatal("want error for empty name")
	}
	if _, err := fs.Open(ctx, "bad\x01name", "w"); err == nil {
		t.Fatal("want error for non-printable name")
	}
}
