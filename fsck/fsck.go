// Package fsck walks every directory chain and every live file's
// control chain and reports violations of the invariants spec.md §3 and
// §8 describe: prev/next symmetry, sequential control-block Start
// values, valid header types, and at-most-one FileEntry per name. It
// repairs nothing — id reclamation remains spec.md §9's unresolved open
// question — it only marks what it finds, in the mark-and-sweep style
// of bs/gc's Keep walk, adapted here to walk chains instead of a ref
// graph.
package fsck

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/block"
	"github.com/bobg/petastore/dirindex"
	"github.com/bobg/petastore/node"
)

// Violation describes one invariant breach found during Check.
type Violation struct {
	Kind   string
	BlobID petastore.ID
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at blob %d: %s", v.Kind, v.BlobID, v.Detail)
}

// Report is the result of a Check.
type Report struct {
	Violations []Violation
	DirBlocks  int
	ControlChains int
	ControlBlocks int
}

func (r *Report) add(kind string, id petastore.ID, detail string) {
	r.Violations = append(r.Violations, Violation{Kind: kind, BlobID: id, Detail: detail})
}

// Check walks every directory-chain head (1..dirindex.DirHeads) and, for
// every live FileEntry it finds, that file's control-block chain.
func Check(ctx context.Context, arena *node.Arena) (*Report, error) {
	r := &Report{}
	seen := make(map[string]petastore.ID)

	for id := petastore.ID(1); id <= dirindex.DirHeads; id++ {
		if err := checkDirChain(ctx, arena, id, r, seen); err != nil {
			return r, errors.Wrapf(err, "checking dir chain at head %d", id)
		}
	}
	return r, nil
}

func checkDirChain(ctx context.Context, arena *node.Arena, headID petastore.ID, r *Report, seen map[string]petastore.ID) error {
	head, err := arena.Acquire(ctx, headID, block.Dir)
	if err != nil {
		return errors.Wrap(err, "acquiring dir head")
	}
	defer head.Release(ctx)

	if head.Header().Prev != 0 {
		r.add("dir-head-has-prev", headID, "directory chain head has a nonzero prev pointer")
	}

	cur := head
	for {
		r.DirBlocks++
		entries, err := block.DirEntries(cur.Bytes())
		if err != nil {
			r.add("malformed-dir-block", cur.ID(), err.Error())
		} else {
			for _, e := range entries {
				if e.Tombstoned() {
					continue
				}
				if wantHead := dirindex.HeadID(e.Name); wantHead != headID {
					r.add("misplaced-entry", cur.ID(), fmt.Sprintf("name %q hashes to head %d, found under %d", e.Name, wantHead, headID))
				}
				if other, dup := seen[e.Name]; dup {
					r.add("duplicate-name", cur.ID(), fmt.Sprintf("name %q also referenced from control block %d", e.Name, other))
				} else {
					seen[e.Name] = e.ControlBlob
				}
				if err := checkControlChain(ctx, arena, e.ControlBlob, r); err != nil {
					return errors.Wrapf(err, "checking control chain for %q", e.Name)
				}
			}
		}

		next, ok, err := cur.Next(ctx)
		if err != nil {
			return errors.Wrapf(err, "advancing dir chain from %d", cur.ID())
		}
		if !ok {
			if cur.Header().Next != 0 {
				r.add("dangling-next", cur.ID(), "next pointer set but neighbour unreachable")
			}
			break
		}
		if next.Header().Prev != cur.ID() {
			r.add("broken-prev-link", next.ID(), fmt.Sprintf("prev is %d, want %d", next.Header().Prev, cur.ID()))
		}
		if cur != head {
			cur.Release(ctx)
		}
		cur = next
	}
	if cur != head {
		cur.Release(ctx)
	}
	return nil
}

func checkControlChain(ctx context.Context, arena *node.Arena, headID petastore.ID, r *Report) error {
	r.ControlChains++

	head, err := arena.Acquire(ctx, headID, block.Control)
	if err != nil {
		return errors.Wrap(err, "acquiring control chain head")
	}
	defer head.Release(ctx)

	pre, err := block.ReadControlPreamble(head.Bytes())
	if err != nil {
		r.add("malformed-control-block", headID, err.Error())
		return nil
	}
	if pre.Start != 0 {
		r.add("control-head-not-zero", headID, fmt.Sprintf("Start = %d, want 0", pre.Start))
	}
	if head.Header().Prev != 0 {
		r.add("control-head-has-prev", headID, "control chain head has a nonzero prev pointer")
	}

	cur := head
	wantStart := uint64(0)
	for {
		r.ControlBlocks++
		pre, err := block.ReadControlPreamble(cur.Bytes())
		if err != nil {
			r.add("malformed-control-block", cur.ID(), err.Error())
		} else if pre.Start != wantStart {
			r.add("out-of-order-control-block", cur.ID(), fmt.Sprintf("Start = %d, want %d", pre.Start, wantStart))
		}

		next, ok, err := cur.Next(ctx)
		if err != nil {
			return errors.Wrapf(err, "advancing control chain from %d", cur.ID())
		}
		if !ok {
			if cur.Header().Next != 0 {
				r.add("dangling-next", cur.ID(), "next pointer set but neighbour unreachable")
			}
			break
		}
		if next.Header().Prev != cur.ID() {
			r.add("broken-prev-link", next.ID(), fmt.Sprintf("prev is %d, want %d", next.Header().Prev, cur.ID()))
		}
		wantStart++
		if cur != head {
			cur.Release(ctx)
		}
		cur = next
	}
	if cur != head {
		cur.Release(ctx)
	}
	return nil
}
