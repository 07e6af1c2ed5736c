package ctrlindex

import (
	"context"
	"testing"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/alloc"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/node"
	"github.com/bobg/petastore/store/mem"
)

func TestLocate(t *testing.T) {
	bpcb := block.BytesPerCB
	cases := []struct {
		p    uint64
		want Position
	}{
		{0, Position{0, 0, 0}},
		{1, Position{0, 0, 1}},
		{uint64(petastore.MaxBlobSize), Position{0, 1, 0}},
		{bpcb, Position{1, 0, 0}},
		{bpcb + uint64(petastore.MaxBlobSize) + 5, Position{1, 1, 5}},
	}
	for _, c := range cases {
		if got := Locate(c.p); got != c.want {
			t.Errorf("Locate(%d) = %+v, want %+v", c.p, got, c.want)
		}
	}
}

// initPreamble gives a freshly acquired control node its Directory/Start
// preamble — Arena.Acquire only writes the bare Header for a new block,
// same as dirindex.LookupOrCreate does for a file's first control block.
func initPreamble(ctx context.Context, cb *node.Node, pre block.ControlPreamble) error {
	return cb.SetPreamble(ctx, block.WriteControlPreamble(cb.Bytes(), pre))
}

func TestFindSlotHole(t *testing.T) {
	ctx := context.Background()
	arena := node.NewArena(mem.New())
	cb, err := arena.Acquire(ctx, 2000, block.Control)
	if err != nil {
		t.Fatal(err)
	}
	defer cb.Release(ctx)
	if err := initPreamble(ctx, cb, block.ControlPreamble{}); err != nil {
		t.Fatal(err)
	}

	if _, ok := FindSlot(cb, 0); ok {
		t.Error("want no slot populated in a fresh control block")
	}

	if err := AppendSlot(ctx, cb, 42); err != nil {
		t.Fatal(err)
	}
	id, ok := FindSlot(cb, 0)
	if !ok || id != 42 {
		t.Errorf("got (%d, %v), want (42, true)", id, ok)
	}
	if _, ok := FindSlot(cb, 1); ok {
		t.Error("want slot 1 still a hole")
	}
}

func TestWalkStaysPut(t *testing.T) {
	ctx := context.Background()
	arena := node.NewArena(mem.New())
	a := alloc.New(alloc.FirstFree)

	cb, err := arena.Acquire(ctx, 2001, block.Control)
	if err != nil {
		t.Fatal(err)
	}
	if err := initPreamble(ctx, cb, block.ControlPreamble{}); err != nil {
		t.Fatal(err)
	}

	got, err := Walk(ctx, a, cb, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID() != cb.ID() {
		t.Errorf("Walk to current block moved to %d, want %d", got.ID(), cb.ID())
	}
	got.Release(ctx)
}

func TestWalkChainsForward(t *testing.T) {
	ctx := context.Background()
	arena := node.NewArena(mem.New())
	a := alloc.New(alloc.FirstFree)

	cb, err := arena.Acquire(ctx, 2002, block.Control)
	if err != nil {
		t.Fatal(err)
	}
	if err := initPreamble(ctx, cb, block.ControlPreamble{}); err != nil {
		t.Fatal(err)
	}

	tail, err := Walk(ctx, a, cb, 2)
	if err != nil {
		t.Fatal(err)
	}
	pre, err := block.ReadControlPreamble(tail.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if pre.Start != 2 {
		t.Errorf("got Start %d, want 2", pre.Start)
	}
	if tail.ID() == 2002 {
		t.Error("Walk did not advance past the original block")
	}
	tail.Release(ctx)

	head, err := arena.Acquire(ctx, 2002, block.Control)
	if err != nil {
		t.Fatal(err)
	}
	defer head.Release(ctx)

	blocks := 1
	cur := head
	for {
		next, ok, err := cur.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		blocks++
		if cur != head {
			cur.Release(ctx)
		}
		cur = next
	}
	if cur != head {
		cur.Release(ctx)
	}
	if blocks != 3 {
		t.Errorf("got %d chained control blocks, want 3", blocks)
	}
}

func TestWalkBacktracks(t *testing.T) {
	ctx := context.Background()
	arena := node.NewArena(mem.New())
	a := alloc.New(alloc.FirstFree)

	cb, err := arena.Acquire(ctx, 2003, block.Control)
	if err != nil {
		t.Fatal(err)
	}
	if err := initPreamble(ctx, cb, block.ControlPreamble{}); err != nil {
		t.Fatal(err)
	}
	tail, err := Walk(ctx, a, cb, 2)
	if err != nil {
		t.Fatal(err)
	}

	back, err := Walk(ctx, a, tail, 0)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID() != 2003 {
		t.Errorf("got block %d, want original block 2003", back.ID())
	}
	back.Release(ctx)
}
