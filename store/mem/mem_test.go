package mem

import (
	"context"
	"testing"

	"github.com/bobg/petastore/testutil"
)

func TestStore(t *testing.T) {
	testutil.Conformance(context.Background(), t, New())
}
