package lru

import (
	"context"
	"testing"

	"github.com/bobg/petastore/store/mem"
	"github.com/bobg/petastore/testutil"
)

func TestStore(t *testing.T) {
	s, err := New(mem.New(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Conformance(context.Background(), t, s)
}
