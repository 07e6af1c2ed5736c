package vdisk

import (
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/bobg/petastore/store/mem"
)

func TestIOFSReadAndStat(t *testing.T) {
	ctx := context.Background()
	fsys, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}

	h, err := fsys.Open(ctx, "readme.txt", "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Write([]byte("contents")); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	iofs := fsys.AsIOFS(ctx)

	info, err := fs.Stat(iofs, "readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 8 {
		t.Errorf("Size() = %d, want 8", info.Size())
	}

	f, err := iofs.Open("readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "contents" {
		t.Errorf("got %q, want %q", got, "contents")
	}
	f.Close()

	entries, err := fs.ReadDir(iofs, ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "readme.txt" {
		t.Errorf("got %v, want a single entry named readme.txt", entries)
	}
}

func TestIOFSOpenMissing(t *testing.T) {
	ctx := context.Background()
	fsys, err := Initialize(ctx, mem.New())
	if err != nil {
		t.Fatal(err)
	}
	iofs := fsys.AsIOFS(ctx)
	if _, err := iofs.Open("nope"); err == nil {
		t.Fatal("want error opening missing file")
	}
}
