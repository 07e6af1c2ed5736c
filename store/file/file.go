// Package file implements petastore.Store as a flat file hierarchy, one
// file per blob id, grounded on bs/store/file. Ids are caller-assigned
// here rather than content hashes, so there is no fan-out-by-hash-prefix
// directory scheme to maintain: files are named directly by id, bucketed
// into subdirectories only to keep any one directory from growing huge.
package file

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store is a file-based implementation of petastore.Store.
type Store struct {
	root    string
	flocker flock.Locker
}

// New produces a new Store storing data beneath root.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) blobpath(id petastore.ID) string {
	bucket := strconv.FormatUint(uint64(id)/1000, 10)
	name := strconv.FormatUint(uint64(id), 10)
	return filepath.Join(s.root, "blobs", bucket, name)
}

// Get returns the blob at id, or a nil Blob if id has never been
// written.
func (s *Store) Get(_ context.Context, id petastore.ID) (petastore.Blob, error) {
	path := s.blobpath(id)
	blob, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return blob, errors.Wrapf(err, "opening %s", path)
}

// Put overwrites the blob at id, writing through a temp file and rename
// so a reader never observes a partial write.
func (s *Store) Put(_ context.Context, id petastore.ID, b petastore.Blob) error {
	if len(b) > petastore.MaxBlobSize {
		return petastore.ErrOutOfSpace
	}

	path := s.blobpath(id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	if err := s.flocker.Lock(path); err != nil {
		return errors.Wrapf(err, "locking %s", path)
	}
	defer s.flocker.Unlock(path)

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%d-*", id))
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpname)
		return errors.Wrapf(err, "writing %s", tmpname)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpname)
		return errors.Wrapf(err, "closing %s", tmpname)
	}
	return errors.Wrapf(os.Rename(tmpname, path), "renaming %s to %s", tmpname, path)
}

// Release is a no-op; the file-based store opens and closes a handle on
// every call rather than holding one open across calls.
func (s *Store) Release(_ context.Context, _ petastore.ID) error {
	return nil
}

// FreeSpace reports free bytes on the filesystem under root, via
// syscall.Statfs — no third-party library in the retrieval pack wraps
// this, and it is unavoidably platform-specific regardless.
func (s *Store) FreeSpace(_ context.Context) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.root, &stat); err != nil {
		return 0, errors.Wrapf(err, "statfs %s", s.root)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (petastore.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
