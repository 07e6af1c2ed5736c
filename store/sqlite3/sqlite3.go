// Package sqlite3 implements petastore.Store atop a SQLite database,
// grounded on bs/store/sqlite3. Ids are caller-assigned integers here, so
// the schema drops the teacher's hash-keyed types/anchors tables down to
// a single id-keyed blobs table.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store is a SQLite-based implementation of petastore.Store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes. It creates the blobs table if it
// does not already exist. (If it does exist, it must have the columns
// and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS blobs (
  id INTEGER PRIMARY KEY NOT NULL,
  data BLOB NOT NULL
);
`

// New produces a new Store using db for storage. It expects to create
// the blobs table, or for that table already to exist with the correct
// schema (see Schema).
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Get returns the blob at id, or a nil Blob if id has never been
// written.
func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	const q = `SELECT data FROM blobs WHERE id = $1`

	var b petastore.Blob
	err := s.db.QueryRowContext(ctx, q, id).Scan(&b)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, errors.Wrapf(err, "querying blob %d", id)
}

// Put overwrites the blob at id.
func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	if len(b) > petastore.MaxBlobSize {
		return petastore.ErrOutOfSpace
	}

	const q = `INSERT INTO blobs (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`

	_, err := s.db.ExecContext(ctx, q, id, []byte(b))
	return errors.Wrapf(err, "upserting blob %d", id)
}

// Release is a no-op; the database connection pool manages its own
// handles.
func (s *Store) Release(_ context.Context, _ petastore.ID) error {
	return nil
}

// FreeSpace reports the free space sqlite believes is available within
// its configured limits, via PRAGMA freelist_count and page_size.
func (s *Store) FreeSpace(ctx context.Context) (uint64, error) {
	var pageSize, freePages int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, errors.Wrap(err, "querying page_size")
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA freelist_count`).Scan(&freePages); err != nil {
		return 0, errors.Wrap(err, "querying freelist_count")
	}
	if freePages == 0 {
		// An empty freelist does not mean the database is full; report a
		// generous figure rather than 0, matching the mem backend's stance
		// that "no natural accounting" is not the same as "no space".
		return 1 << 32, nil
	}
	return uint64(freePages) * uint64(pageSize), nil
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
