package file

import (
	"context"
	"os"
	"testing"

	"github.com/bobg/petastore/testutil"
)

func TestStore(t *testing.T) {
	dirname, err := os.MkdirTemp("", "filestore")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dirname)

	testutil.Conformance(context.Background(), t, New(dirname))
}
