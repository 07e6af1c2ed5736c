package replica

import (
	"context"
	"testing"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store/mem"
)

func TestReplicaSets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		m1 = mem.New()
		m2 = mem.New()
		s  = New(ctx, []petastore.Store{m1, m2}, nil, 1)
	)

	if err := s.Put(ctx, 1, petastore.Blob("baz")); err != nil {
		t.Fatal(err)
	}

	checkReplica(ctx, t, "m1", m1)
	checkReplica(ctx, t, "m2", m2)
	checkReplica(ctx, t, "replica", s)
}

func checkReplica(ctx context.Context, t *testing.T, name string, s petastore.Store) {
	t.Run(name, func(t *testing.T) {
		got, err := s.Get(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "baz" {
			t.Errorf("got %q, want %q", got, "baz")
		}
	})
}

func TestReadWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		m1 = mem.New()
		m2 = mem.New()
		s  = New(ctx, []petastore.Store{m1, m2}, nil, 1)
	)

	for id := petastore.ID(1); id <= 8; id++ {
		data := []byte{byte(id), byte(id), byte(id)}
		if err := s.Put(ctx, id, petastore.Blob(data)); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(data) {
			t.Errorf("id %d: got %v, want %v", id, got, data)
		}
	}
}
