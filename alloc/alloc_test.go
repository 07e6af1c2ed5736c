package alloc

import (
	"context"
	"errors"
	"testing"

	"github.com/bobg/petastore"
)

func TestNextIsMonotonic(t *testing.T) {
	a := New(FirstFree)
	ctx := context.Background()

	seen := make(map[petastore.ID]bool)
	for i := 0; i < 1000; i++ {
		id, err := a.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if id < FirstFree {
			t.Fatalf("got id %d below FirstFree %d", id, FirstFree)
		}
		if seen[id] {
			t.Fatalf("id %d returned twice", id)
		}
		seen[id] = true
	}
	if got := a.Peek(); got != FirstFree+1000 {
		t.Errorf("Peek() = %d, want %d", got, FirstFree+1000)
	}
}

func TestNextExhausted(t *testing.T) {
	a := New(MaxID - 1)
	ctx := context.Background()

	if _, err := a.Next(ctx); err != nil {
		t.Fatalf("unexpected error on last valid id: %s", err)
	}
	if _, err := a.Next(ctx); !errors.Is(err, petastore.ErrOutOfSpace) {
		t.Fatalf("got %v, want ErrOutOfSpace", err)
	}
}
