package sqlite3

import (
	"context"
	"database/sql"
	"io/ioutil"
	"os"
	"testing"

	"github.com/bobg/petastore/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	err := withTestStore(ctx, func(s *Store) error {
		testutil.Conformance(ctx, t, s)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func withTestStore(ctx context.Context, fn func(*Store) error) error {
	f, err := ioutil.TempFile("", "petasqlite3test")
	if err != nil {
		return err
	}

	tmpfile := f.Name()
	f.Close()
	defer os.Remove(tmpfile)

	db, err := sql.Open("sqlite3", tmpfile)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := New(ctx, db)
	if err != nil {
		return err
	}

	return fn(s)
}
