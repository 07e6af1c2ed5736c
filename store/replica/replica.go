// Package replica implements a petastore.Store that delegates reads
// and writes to two sets of nested stores, grounded on bs/store/replica.
// One set is synchronous: writes to all of these must succeed before a
// call to Put returns, and an error from any will cause Put to fail.
// The other set is asynchronous: a call to Put queues writes on these
// stores but does not wait for them to finish. However, if any
// asynchronous write encounters an error, the whole Store is put into an
// error state and further calls to Put and Get will fail (Release and
// FreeSpace do not check that state).
package replica

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = (*Store)(nil)

// Store is a blob store that replicates every write across a set of
// nested stores.
type Store struct {
	sync   []petastore.Store
	async  []asyncChans
	cancel context.CancelFunc

	mu  sync.Mutex // protects err
	err error      // the error from an async goroutine, if any
}

type asyncChans struct {
	id   chan<- putReq
	errs <-chan error
}

type putReq struct {
	id  petastore.ID
	blb petastore.Blob
}

// New produces a new Store. The set of synchronous stores must be
// non-empty. The set of asynchronous stores may be empty. If there are
// any asynchronous stores, goroutines are launched for them, and
// canceling the given context object causes those to exit, placing the
// Store in an error state.
//
// Writes to asynchronous stores do not normally block calls to Put, but
// the queue for each nested store has a fixed length given by n, which
// must be 1 or greater. If any async store falls too far behind, Put
// blocks until all requests can be queued.
func New(ctx context.Context, sync []petastore.Store, async []petastore.Store, n int) *Store {
	result := &Store{sync: sync}

	if len(async) > 0 {
		ctx, result.cancel = context.WithCancel(ctx)

		for _, a := range async {
			var (
				reqs = make(chan putReq, n)
				errs = make(chan error, 1)
			)
			result.async = append(result.async, asyncChans{id: reqs, errs: errs})

			a := a
			go runAsync(ctx, a, reqs, errs)
		}

		for _, a := range result.async {
			a := a
			go func() {
				err, ok := <-a.errs
				if ok && err != nil {
					result.mu.Lock()
					result.err = err
					result.mu.Unlock()
					if result.cancel != nil {
						result.cancel()
					}
				}
			}()
		}
	}

	return result
}

// runAsync runs as a goroutine until ctx is canceled or an error occurs
// (which it writes to errs).
func runAsync(ctx context.Context, s petastore.Store, reqs <-chan putReq, errs chan<- error) {
	defer close(errs)

	for {
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return

		case req := <-reqs:
			if err := s.Put(ctx, req.id, req.blb); err != nil {
				errs <- err
				return
			}
		}
	}
}

func (s *Store) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Put writes b to every synchronous nested store, failing if any of
// them fails, then queues the same write for every asynchronous store.
func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	if err := s.checkErr(); err != nil {
		return errors.Wrap(err, "in async-store goroutine")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, st := range s.sync {
		st := st
		g.Go(func() error {
			return st.Put(ctx, id, b)
		})
	}

	for _, a := range s.async {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a.id <- putReq{id: id, blb: b}:
		}
	}

	if err := g.Wait(); err != nil {
		if s.cancel != nil {
			s.cancel()
		}
		return err
	}
	return nil
}

// Get delegates to all of the synchronous stores, returning the result
// from the first one to respond without error.
func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	if err := s.checkErr(); err != nil {
		return nil, errors.Wrap(err, "in async-store goroutine")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	ch := make(chan petastore.Blob, 1)

	for _, st := range s.sync {
		st := st
		g.Go(func() error {
			blob, err := st.Get(ctx, id)
			if err != nil {
				return err
			}
			select {
			case ch <- blob:
			case <-ctx.Done():
			}
			return nil
		})
	}

	done := make(chan struct{})
	var (
		blob petastore.Blob
		got  bool
		gerr error
	)
	go func() {
		select {
		case blob = <-ch:
			got = true
		case <-ctx.Done():
		}
		close(done)
	}()
	go func() {
		gerr = g.Wait()
	}()

	<-done
	if got {
		return blob, nil
	}
	return nil, gerr
}

// Release delegates to every synchronous nested store.
func (s *Store) Release(ctx context.Context, id petastore.ID) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, st := range s.sync {
		st := st
		g.Go(func() error { return st.Release(ctx, id) })
	}
	return g.Wait()
}

// FreeSpace reports the minimum free space among the synchronous nested
// stores, since a write can succeed only as long as all of them have
// room.
func (s *Store) FreeSpace(ctx context.Context) (uint64, error) {
	var min uint64
	for i, st := range s.sync {
		free, err := st.FreeSpace(ctx)
		if err != nil {
			return 0, err
		}
		if i == 0 || free < min {
			min = free
		}
	}
	return min, nil
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
		var (
			syncStores  []petastore.Store
			asyncStores []petastore.Store
			queueLen    int64
		)

		syncConf, ok := conf["sync"].([]map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "sync" parameter`)
		}
		for _, nested := range syncConf {
			nestedType, ok := nested["type"].(string)
			if !ok {
				return nil, errors.New(`"sync" item missing "type"`)
			}
			nestedStore, err := store.Create(ctx, nestedType, nested)
			if err != nil {
				return nil, errors.Wrap(err, "creating nested sync store")
			}
			syncStores = append(syncStores, nestedStore)
		}

		asyncConf, ok := conf["async"].([]map[string]interface{})
		if ok {
			for _, nested := range asyncConf {
				nestedType, ok := nested["type"].(string)
				if !ok {
					return nil, errors.New(`"async" item missing "type"`)
				}
				nestedStore, err := store.Create(ctx, nestedType, nested)
				if err != nil {
					return nil, errors.Wrap(err, "creating nested async store")
				}
				asyncStores = append(asyncStores, nestedStore)
			}
		}

		if queueLenNum, ok := conf["queuelen"].(json.Number); ok {
			var err error
			queueLen, err = queueLenNum.Int64()
			if err != nil {
				return nil, errors.Wrapf(err, "parsing queue length %v", queueLenNum)
			}
		} else {
			queueLen = 10
		}

		return New(ctx, syncStores, asyncStores, int(queueLen)), nil
	})
}
