package logging

import (
	"context"
	"testing"

	"github.com/bobg/petastore/store/mem"
	"github.com/bobg/petastore/testutil"
)

func TestStore(t *testing.T) {
	testutil.Conformance(context.Background(), t, New(mem.New()))
}
