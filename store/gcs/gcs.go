// Package gcs implements petastore.Store on Google Cloud Storage,
// grounded on bs/store/gcs. Objects are named directly by id, so the
// teacher's hex-prefix range-iteration machinery (needed there to walk
// a bucket keyed by content hash) has no job to do here.
package gcs

import (
	"context"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store is a Google Cloud Storage-based implementation of
// petastore.Store.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

func objName(id petastore.ID) string {
	return "blob:" + strconv.FormatUint(uint64(id), 10)
}

// Get returns the blob at id, or a nil Blob if id has never been
// written.
func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	name := objName(id)
	obj := s.bucket.Object(name)
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading object %s", name)
	}
	defer r.Close()

	b := make([]byte, r.Attrs.Size)
	_, err = io.ReadFull(r, b)
	return b, errors.Wrapf(err, "reading contents of object %s", name)
}

// Put overwrites the blob at id.
func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	if len(b) > petastore.MaxBlobSize {
		return petastore.ErrOutOfSpace
	}

	name := objName(id)
	w := s.bucket.Object(name).NewWriter(ctx)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", name)
	}
	return errors.Wrapf(w.Close(), "closing object %s", name)
}

// Release is a no-op; GCS object handles carry no state to release.
func (s *Store) Release(_ context.Context, _ petastore.ID) error {
	return nil
}

// FreeSpace reports a generous constant: GCS buckets have no fixed
// capacity the client can query, unlike bs/store/gcs's teacher, which
// never needed the concept either.
func (s *Store) FreeSpace(_ context.Context) (uint64, error) {
	return 1 << 40, nil
}

// deleteAll removes every object this Store has written, for use by
// tests that create a scratch bucket.
func (s *Store) deleteAll(ctx context.Context) error {
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: "blob:"})
	for {
		attrs, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return err
		}
	}
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
