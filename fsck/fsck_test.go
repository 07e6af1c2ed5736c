package fsck

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/petastore/node"
	"github.com/bobg/petastore/store/mem"
	"github.com/bobg/petastore/vdisk"
)

func TestCheckCleanFileSystem(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	fs, err := vdisk.Initialize(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	h, err := fs.Open(ctx, "a.txt", "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fs.Finalize(ctx); err != nil {
		t.Fatal(err)
	}

	arena := node.NewArena(store)
	report, err := Check(ctx, arena)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Violation(nil), report.Violations); diff != "" {
		t.Errorf("got violations on a clean file system (-want +got):\n%s", diff)
	}
	if report.ControlChains != 1 {
		t.Errorf("got %d control chains, want 1", report.ControlChains)
	}
}

func TestCheckCountsManyFiles(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	fs, err := vdisk.Initialize(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "c"} {
		h, err := fs.Open(ctx, name, "w")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := h.Write([]byte(name)); err != nil {
			t.Fatal(err)
		}
		if err := h.Close(); err != nil {
			t.Fatal(err)
		}
	}

	arena := node.NewArena(store)
	report, err := Check(ctx, arena)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Violations) != 0 {
		t.Errorf("got violations: %v", report.Violations)
	}
	if report.ControlChains != 3 {
		t.Errorf("got %d control chains, want 3", report.ControlChains)
	}
}
