package compress

import "github.com/golang/snappy"

// Snappy compresses with github.com/golang/snappy, favoring speed over
// ratio compared to LZW or Flate.
type Snappy struct{}

func (Snappy) Compress(inp []byte) []byte {
	return snappy.Encode(nil, inp)
}

func (Snappy) Uncompress(inp []byte) ([]byte, error) {
	return snappy.Decode(nil, inp)
}
