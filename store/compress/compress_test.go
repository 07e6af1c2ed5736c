package compress

import (
	"compress/lzw"
	"context"
	"testing"

	"github.com/bobg/petastore/store/mem"
	"github.com/bobg/petastore/testutil"
)

func TestStoreFlate(t *testing.T) {
	testutil.Conformance(context.Background(), t, New(mem.New(), Flate{Level: -1}))
}

func TestStoreLZW(t *testing.T) {
	testutil.Conformance(context.Background(), t, New(mem.New(), LZW{Order: lzw.LSB}))
}

func TestStoreSnappy(t *testing.T) {
	testutil.Conformance(context.Background(), t, New(mem.New(), Snappy{}))
}
