// Package testutil holds backend-agnostic conformance tests for
// petastore.Store implementations, grounded on bs/testutil's pattern of
// one shared exported test function per concern that every backend's
// own _test.go invokes against its own constructor.
package testutil

import (
	"bytes"
	"context"
	"testing"
	"testing/quick"

	"github.com/bobg/petastore"
)

// ReadWrite puts and gets a range of ids against store, checking that
// what comes back matches what went in, and that an id never written
// reads back empty rather than erroring.
func ReadWrite(ctx context.Context, t *testing.T, store petastore.Store) {
	t.Helper()

	const nids = 16

	for i := petastore.ID(1); i <= nids; i++ {
		blob, err := store.Get(ctx, i)
		if err != nil {
			t.Fatalf("getting unwritten id %d: %s", i, err)
		}
		if len(blob) != 0 {
			t.Fatalf("unwritten id %d came back with %d bytes", i, len(blob))
		}
	}

	want := make(map[petastore.ID][]byte, nids)
	f := func(id petastore.ID, data []byte) bool {
		id = id%nids + 1
		if len(data) > petastore.MaxBlobSize {
			data = data[:petastore.MaxBlobSize]
		}
		if err := store.Put(ctx, id, petastore.Blob(data)); err != nil {
			t.Logf("putting blob %d: %s", id, err)
			return false
		}
		want[id] = data

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Logf("getting blob %d: %s", id, err)
			return false
		}
		if !bytes.Equal(got, data) {
			t.Logf("blob %d: got %d bytes, want %d", id, len(got), len(data))
			return false
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}

	for id, data := range want {
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("final get of blob %d: %s", id, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("final check of blob %d: got %d bytes, want %d", id, len(got), len(data))
		}
	}
}

// Release exercises the Get/Release pairing a caller is expected to
// observe around every blob access.
func Release(ctx context.Context, t *testing.T, store petastore.Store) {
	t.Helper()

	if err := store.Put(ctx, 1, petastore.Blob("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Release(ctx, 1); err != nil {
		t.Fatalf("releasing blob 1: %s", err)
	}
}

// FreeSpace sanity-checks that a store reports some nonzero figure and
// does not error.
func FreeSpace(ctx context.Context, t *testing.T, store petastore.Store) {
	t.Helper()

	free, err := store.FreeSpace(ctx)
	if err != nil {
		t.Fatalf("FreeSpace: %s", err)
	}
	if free == 0 {
		t.Error("FreeSpace reported 0")
	}
}

// Conformance runs the full suite against a freshly constructed store.
func Conformance(ctx context.Context, t *testing.T, store petastore.Store) {
	t.Helper()
	t.Run("ReadWrite", func(t *testing.T) { ReadWrite(ctx, t, store) })
	t.Run("Release", func(t *testing.T) { Release(ctx, t, store) })
	t.Run("FreeSpace", func(t *testing.T) { FreeSpace(ctx, t, store) })
}
