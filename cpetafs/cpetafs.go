// Package cpetafs exposes the exact C-style entry points of spec.md §6
// (fopen/fclose/fread/fwrite/ftell/fseek/fremove/finitialize/ffinalize)
// over package vdisk. Go errors are the source of truth throughout this
// module; this package's only job is translating them to the documented
// negative integer codes, per SPEC_FULL.md §A.1.
package cpetafs

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/vdisk"
)

// Error codes, spec.md §6.
const (
	ErrOutOfSpace = -1
	ErrBadArgs    = -2
	ErrInternal   = -3
)

// Handle identifies an open file to the C-style API. The zero Handle is
// never valid.
type Handle int64

var (
	mu      sync.Mutex
	fs      *vdisk.FileSystem
	ctx     = context.Background()
	handles = map[Handle]*vdisk.File{}
	nextH   Handle = 1
)

// Finitialize sets the process-wide FileSystem context, per spec.md §9's
// explicit-context note: the public API itself stays context-free, so
// this package keeps a hidden singleton set here and cleared by
// Ffinalize, exactly as spec.md §6 documents.
func Finitialize(store petastore.Store) {
	mu.Lock()
	defer mu.Unlock()
	var err error
	fs, err = vdisk.Initialize(ctx, store)
	if err != nil {
		panic(errors.Wrap(err, "finitialize"))
	}
}

// Ffinalize persists the current file system state and clears the
// process-wide context.
func Ffinalize() {
	mu.Lock()
	defer mu.Unlock()
	if fs == nil {
		return
	}
	if err := fs.Finalize(ctx); err != nil {
		panic(errors.Wrap(err, "ffinalize"))
	}
	fs = nil
	handles = map[Handle]*vdisk.File{}
}

// Fopen opens or creates a file. It returns 0 (an invalid handle) on
// failure — the null-pointer convention of spec.md §6.
func Fopen(name, mode string) Handle {
	mu.Lock()
	defer mu.Unlock()
	if fs == nil {
		return 0
	}
	f, err := fs.Open(ctx, name, mode)
	if err != nil {
		return 0
	}
	h := nextH
	nextH++
	handles[h] = f
	return h
}

// Fclose closes h. Returns 0 on success, ErrBadArgs if h is unknown.
func Fclose(h Handle) int64 {
	mu.Lock()
	defer mu.Unlock()
	f, ok := handles[h]
	if !ok {
		return ErrBadArgs
	}
	delete(handles, h)
	if err := f.Close(); err != nil {
		return codeFor(err)
	}
	return 0
}

// Fread reads up to len(buf) bytes. Returns bytes read (≥ 0, possibly 0
// at EOF) or a negative error code.
func Fread(h Handle, buf []byte) int64 {
	mu.Lock()
	f, ok := handles[h]
	mu.Unlock()
	if !ok {
		return ErrBadArgs
	}
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		if n > 0 {
			return int64(n)
		}
		return codeFor(err)
	}
	return int64(n)
}

// Fwrite writes buf. Returns bytes written (≥ 0) or a negative error
// code; per spec.md §4.6, a partial write before a failure still
// reports the bytes actually written.
func Fwrite(h Handle, buf []byte) int64 {
	mu.Lock()
	f, ok := handles[h]
	mu.Unlock()
	if !ok {
		return ErrBadArgs
	}
	n, err := f.Write(buf)
	if err != nil && n == 0 {
		return codeFor(err)
	}
	return int64(n)
}

// Ftell returns the current cursor position, or a negative error code.
func Ftell(h Handle) int64 {
	mu.Lock()
	f, ok := handles[h]
	mu.Unlock()
	if !ok {
		return ErrBadArgs
	}
	pos, err := f.Tell()
	if err != nil {
		return codeFor(err)
	}
	return pos
}

// Fseek moves the cursor. origin: 0 = start, 1 = end, 2 = current.
// Returns the new absolute position, or a negative error code.
func Fseek(h Handle, offset int64, origin int) int64 {
	mu.Lock()
	f, ok := handles[h]
	mu.Unlock()
	if !ok {
		return ErrBadArgs
	}
	whence, err := whenceFor(origin)
	if err != nil {
		return ErrBadArgs
	}
	pos, err := f.Seek(offset, whence)
	if err != nil {
		return codeFor(err)
	}
	return pos
}

// Fremove deletes name. Returns 0 on success, or a negative error code.
func Fremove(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	if fs == nil {
		return ErrInternal
	}
	if err := fs.Remove(ctx, name); err != nil {
		return codeFor(err)
	}
	return 0
}

func whenceFor(origin int) (int, error) {
	switch origin {
	case 0:
		return io.SeekStart, nil
	case 1:
		return io.SeekEnd, nil
	case 2:
		return io.SeekCurrent, nil
	default:
		return 0, errors.Errorf("unrecognized origin %d", origin)
	}
}

func codeFor(err error) int64 {
	switch {
	case errors.Is(err, petastore.ErrOutOfSpace):
		return ErrOutOfSpace
	case errors.Is(err, petastore.ErrBadArgs):
		return ErrBadArgs
	case errors.Is(err, petastore.ErrNotFound):
		return ErrBadArgs
	default:
		return ErrInternal
	}
}
