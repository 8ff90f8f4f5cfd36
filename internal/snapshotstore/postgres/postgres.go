// Package postgres implements snapshotstore.Store on PostgreSQL via pgx.
//
// Each snapshot is one row in framegraph_snapshots plus one row per node and
// per connection, all replaced together in a single transaction on save.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements snapshotstore.Store.
type Store struct {
	db *pgxpool.Pool
}

// New creates a Store backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}
