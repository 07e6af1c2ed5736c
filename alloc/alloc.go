// Package alloc hands out never-before-used blob ids, the free-id
// allocator spec.md §4.1 describes as a pure in-memory counter: the
// original source scans a free-block bitmap for a hole, but the spec
// replaces that with a monotonic counter persisted in the meta block,
// leaving reclamation of removed files' ids unimplemented (DESIGN.md).
package alloc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
)

// DirHeads is the number of reserved directory-chain head ids,
// DIR_HEADS in spec.md §3. Ids 1..DirHeads are never handed out by an
// Allocator.
const DirHeads = 1024

// MaxID is the size of the address space, 2^34 per spec.md §4.1. An
// Allocator refuses to grow next_free past this.
const MaxID petastore.ID = 1 << 34

// FirstFree is the initial value of next_free in a freshly initialised
// meta block.
const FirstFree petastore.ID = DirHeads + 1

// Allocator is the in-memory next_free counter. It is not itself
// persisted; callers are expected to read Peek back into the meta block
// at finalize time, per spec.md §4.1 and §4.6.
type Allocator struct {
	next petastore.ID
}

// New creates an Allocator whose next call to Next returns next.
func New(next petastore.ID) *Allocator {
	return &Allocator{next: next}
}

// Next returns a never-previously-returned id and advances the
// counter. It never blocks; the context is accepted for symmetry with
// the rest of this module's blocking-on-the-store API and is otherwise
// unused.
func (a *Allocator) Next(_ context.Context) (petastore.ID, error) {
	if a.next >= MaxID {
		return 0, errors.Wrap(petastore.ErrOutOfSpace, "blob address space exhausted")
	}
	id := a.next
	a.next++
	return id, nil
}

// Peek returns the counter's current value without advancing it, for
// persisting back into the meta block.
func (a *Allocator) Peek() petastore.ID {
	return a.next
}
