// Package pg implements petastore.Store atop a PostgreSQL database,
// grounded on bs/store/pg. As with the sqlite3 backend, the schema
// collapses to a single id-keyed blobs table: there are no content
// hashes or anchors in this domain.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/bobg/petastore"
	"github.com/bobg/petastore/store"
)

var _ petastore.Store = &Store{}

// Store is a PostgreSQL-based implementation of petastore.Store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes. It creates the blobs table if it
// does not exist. (If it does exist, it must have the columns and
// constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS blobs (
  id BIGINT PRIMARY KEY NOT NULL,
  data BYTEA NOT NULL
);
`

// New produces a new Store using db for storage.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Get returns the blob at id, or a nil Blob if id has never been
// written.
func (s *Store) Get(ctx context.Context, id petastore.ID) (petastore.Blob, error) {
	const q = `SELECT data FROM blobs WHERE id = $1`

	var result petastore.Blob
	err := s.db.QueryRowContext(ctx, q, int64(id)).Scan(&result)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return result, errors.Wrapf(err, "querying blob %d", id)
}

// Put overwrites the blob at id.
func (s *Store) Put(ctx context.Context, id petastore.ID, b petastore.Blob) error {
	if len(b) > petastore.MaxBlobSize {
		return petastore.ErrOutOfSpace
	}

	const q = `INSERT INTO blobs (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`

	_, err := s.db.ExecContext(ctx, q, int64(id), []byte(b))
	return errors.Wrapf(err, "upserting blob %d", id)
}

// Release is a no-op; database/sql manages the underlying connections.
func (s *Store) Release(_ context.Context, _ petastore.ID) error {
	return nil
}

// FreeSpace reports the database's total size against pg_database_size,
// treating the configured 10GB soft limit as the ceiling.
func (s *Store) FreeSpace(ctx context.Context) (uint64, error) {
	const q = `SELECT pg_database_size(current_database())`

	const limit = 10 << 30

	var used int64
	if err := s.db.QueryRowContext(ctx, q).Scan(&used); err != nil {
		return 0, errors.Wrap(err, "querying database size")
	}
	if used >= limit {
		return 0, nil
	}
	return uint64(limit - used), nil
}

func init() {
	store.Register("pg", func(ctx context.Context, conf map[string]interface{}) (petastore.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
