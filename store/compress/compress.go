// Package compress implements a petastore.Store that compresses blobs
// on their way into a nested store and uncompresses them on the way
// out, grounded on bs/store/compress. The teacher needed a ref-map and
// an anchor to remember which content-addressed ref a compressed blob
// ended up under; here the id never changes, so a one-byte tag in front
// of the nested blob ("was this compressed?") is all the bookkeeping
// that's needed.
package compress

import (
	"compress/lzw"
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

const (
	tagRaw        byte = 0
	tagCompressed byte = 1
)

// Compressor is the interface a compression algorithm must implement to
// be usable by Store.
type Compressor interface {
	Compress([]byte) []byte
	Uncompress([]byte) ([]byte, error)
}

// Store wraps a nested petastore.Store, compressing blobs with c before
// writing them through.
type Store struct {
	s petastore.Store
	c Compressor
}

// New produces a Store that compresses blobs with c before delegating
// to s.
func New(s petastore.Store, c Compressor) *Store {
	return &Store{s: s, c: c}
}

// Get returns the blob at id, uncompressing it first if it was stored
// compressed.
func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	tagged, err := s.s.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting blob %d", id)
	}
	if len(tagged) == 0 {
		return nil, nil
	}
	tag, body := tagged[0], tagged[1:]
	if tag == tagRaw {
		return petastore.Blob(body), nil
	}
	uncompressed, err := s.c.Uncompress(body)
	return petastore.Blob(uncompressed), errors.Wrapf(err, "uncompressing blob %d", id)
}

// Put compresses b and writes it through to the nested store, falling
// back to storing it raw if compression does not shrink it.
func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	compressed := s.c.Compress(b)

	var tagged []byte
	if len(compressed) < len(b) {
		tagged = append([]byte{tagCompressed}, compressed...)
	} else {
		tagged = append([]byte{tagRaw}, b...)
	}
	if len(tagged) > petastore.MaxBlobSize {
		return petastore.ErrOutOfSpace
	}
	return errors.Wrapf(s.s.Put(ctx, id, petastore.Blob(tagged)), "storing compressed blob %d", id)
}

// Release delegates to the nested store.
func (s *Store) Release(ctx context.Context, id petastore.ID) error {
	return s.s.Release(ctx, id)
}

// FreeSpace delegates to the nested store; the one-byte tag is noise at
// this scale.
func (s *Store) FreeSpace(ctx context.Context) (uint64, error) {
	return s.s.FreeSpace(ctx)
}

func init() {
	store.Register("compress", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}

		compressor, ok := conf["compressor"].(string)
		if !ok {
			return nil, errors.New(`missing "compressor" parameter`)
		}
		switch compressor {
		case "lzw":
			order := lzw.LSB
			if o, ok := conf["order"].(int); ok && lzw.Order(o) == lzw.MSB {
				order = lzw.MSB
			}
			return New(nestedStore, LZW{Order: order}), nil

		case "flate":
			level := -1
			if l, ok := conf["level"].(int); ok {
				level = l
			}
			return New(nestedStore, Flate{Level: level}), nil

		case "snappy":
			return New(nestedStore, Snappy{}), nil

		default:
			return nil, fmt.Errorf(`unknown compressor "%s"`, compressor)
		}
	})
}
