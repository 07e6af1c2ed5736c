// Package store is a registry of petastore.Store backend factories, keyed
// by a short name, mirroring bs/store's registry for content-addressable
// backends. Each backend package registers itself from an init function;
// cmd/petafs only needs to blank-import the backends it was built with.
package store

import (
	"context"
	"fmt"

	"github.com/bobg/petastore"
)

// Factory builds a petastore.Store from a JSON-decoded configuration map.
type Factory func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error)

var registry = make(map[string]Factory)

// Register associates a Factory with a name. It is meant to be called
// from package init functions; it panics on a duplicate name, since that
// can only indicate two backends compiled in under the same key.
func Register(name string, f Factory) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("store: Register called twice for %q", name))
	}
	registry[name] = f
}

// Create builds the backend registered under name.
func Create(ctx context.Context, name string, conf map[string]interface{}) (petastore.Store, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("store: no backend registered under %q", name)
	}
	return f(ctx, conf)
}
