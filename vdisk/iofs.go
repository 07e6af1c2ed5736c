package vdisk

import (
	"context"
	"io/fs"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/dirindex"
)

var (
	_ fs.FS        = (*FS)(nil)
	_ fs.ReadDirFS = (*FS)(nil)
	_ fs.StatFS    = (*FS)(nil)
	_ fs.File      = (*fsFile)(nil)
	_ fs.FileInfo  = (*fsFileInfo)(nil)
	_ fs.DirEntry  = (*fsDirEntry)(nil)
)

// FS adapts a FileSystem to the stdlib io/fs.FS family, read-only. The
// namespace here is flat (spec.md's Non-goals exclude hierarchical
// directories), so every name lives directly under ".".
//
// FS stores the context it was constructed with and reuses it from
// Open, ReadDir, and Stat, which must satisfy context-free stdlib
// interfaces — the same antipattern, and for the same reason, as
// bs/fs.FS.
type FS struct {
	ctx context.Context
	fs  *FileSystem
}

// AsIOFS adapts fs to the stdlib io/fs.FS family for read-only use by
// io/fs.WalkDir, http.FS, and similar consumers.
func (fs *FileSystem) AsIOFS(ctx context.Context) *FS {
	return &FS{ctx: ctx, fs: fs}
}

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	if name == "." {
		return &fsDir{f: f}, nil
	}
	file, err := f.fs.Open(f.ctx, name, "r")
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: unwrapForFS(err)}
	}
	size, head, err := f.fs.size(f.ctx, file.cb)
	if err != nil {
		file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: unwrapForFS(err)}
	}
	file.cb = head
	return &fsFile{File: file, size: int64(size)}, nil
}

// ReadDir implements fs.ReadDirFS for the root directory only — every
// name in a PetaStore volume is a direct child of ".".
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	names, err := f.fs.listNames(f.ctx)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: unwrapForFS(err)}
	}
	entries := make([]fs.DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, &fsDirEntry{name: n})
	}
	return entries, nil
}

// Stat implements fs.StatFS.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	file, err := f.fs.Open(f.ctx, name, "r")
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: unwrapForFS(err)}
	}
	defer file.Close()
	size, _, err := f.fs.size(f.ctx, file.cb)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: unwrapForFS(err)}
	}
	return &fsFileInfo{name: name, size: int64(size)}, nil
}

// listNames walks every directory-chain head and returns every live
// (non-tombstoned) name found, per spec.md §3's bucket layout.
func (fs *FileSystem) listNames(ctx context.Context) ([]string, error) {
	var names []string
	for id := petastore.ID(1); id <= dirindex.DirHeads; id++ {
		head, err := fs.arena.Acquire(ctx, id, block.Dir)
		if err != nil {
			return nil, errors.Wrapf(err, "acquiring dir head %d", id)
		}
		cur := head
		for {
			entries, err := block.DirEntries(cur.Bytes())
			if err != nil {
				releaseIfNotHead(ctx, head, cur)
				return nil, errors.Wrapf(err, "decoding dir block %d", cur.ID())
			}
			for _, e := range entries {
				if !e.Tombstoned() {
					names = append(names, e.Name)
				}
			}
			next, ok, err := cur.Next(ctx)
			if err != nil {
				releaseIfNotHead(ctx, head, cur)
				return nil, errors.Wrapf(err, "advancing dir chain from %d", cur.ID())
			}
			if !ok {
				break
			}
			if cur != head {
				cur.Release(ctx)
			}
			cur = next
		}
		releaseIfNotHead(ctx, head, cur)
	}
	return names, nil
}

func unwrapForFS(err error) error {
	if errors.Is(err, petastore.ErrNotFound) {
		return fs.ErrNotExist
	}
	return err
}

// fsFile implements fs.File over a File, adding the Stat method io/fs
// requires.
type fsFile struct {
	*File
	size int64
}

func (f *fsFile) Stat() (fs.FileInfo, error) {
	return &fsFileInfo{name: f.name, size: f.size}, nil
}

// fsDir implements fs.File for the synthetic root directory.
type fsDir struct {
	f *FS
}

func (d *fsDir) Stat() (fs.FileInfo, error) {
	return &fsFileInfo{name: ".", size: 0, dir: true}, nil
}
func (d *fsDir) Read([]byte) (int, error) { return 0, errors.New("vdisk: is a directory") }
func (d *fsDir) Close() error             { return nil }

type fsFileInfo struct {
	name string
	size int64
	dir  bool
}

func (i *fsFileInfo) Name() string { return i.name }
func (i *fsFileInfo) Size() int64  { return i.size }
func (i *fsFileInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}
func (i *fsFileInfo) ModTime() time.Time { return time.Time{} }
func (i *fsFileInfo) IsDir() bool        { return i.dir }
func (i *fsFileInfo) Sys() interface{}   { return nil }

type fsDirEntry struct {
	name string
}

func (e *fsDirEntry) Name() string      { return e.name }
func (e *fsDirEntry) IsDir() bool       { return false }
func (e *fsDirEntry) Type() fs.FileMode { return 0 }
func (e *fsDirEntry) Info() (fs.FileInfo, error) {
	return &fsFileInfo{name: e.name}, nil
}
