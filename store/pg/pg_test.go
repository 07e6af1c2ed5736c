package pg

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/bobg/petastore/testutil"
)

const connVar = "PETASTORE_PG_TESTING_CONN"

func TestStore(t *testing.T) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid PostgreSQL connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	store, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	testutil.Conformance(ctx, t, store)
}
