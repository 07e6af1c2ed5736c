package compress

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"io/ioutil"
)

// LZW compresses with compress/lzw, the algorithm the original
// petastore has no opinion on but spec.md's ambient stack leaves open
// to the implementation.
type LZW struct {
	Order lzw.Order
}

func (l LZW) Compress(inp []byte) []byte {
	buf := new(bytes.Buffer)
	w := lzw.NewWriter(buf, l.Order, 8)
	w.Write(inp)
	w.Close()
	return buf.Bytes()
}

func (l LZW) Uncompress(inp []byte) ([]byte, error) {
	r := bytes.NewReader(inp)
	rr := lzw.NewReader(r, l.Order, 8)
	defer rr.Close()
	return ioutil.ReadAll(rr)
}

// Flate compresses with compress/flate.
type Flate struct {
	Level int
}

func (f Flate) Compress(inp []byte) []byte {
	buf := new(bytes.Buffer)
	level := f.Level
	if level < -2 || level > 9 {
		level = -1
	}
	w, _ := flate.NewWriter(buf, level)
	w.Write(inp)
	w.Close()
	return buf.Bytes()
}

func (f Flate) Uncompress(inp []byte) ([]byte, error) {
	r := bytes.NewReader(inp)
	rr := flate.NewReader(r)
	defer rr.Close()
	return ioutil.ReadAll(rr)
}
