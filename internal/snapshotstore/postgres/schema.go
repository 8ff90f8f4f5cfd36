package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS framegraph_snapshots (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    version    INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS framegraph_snapshot_nodes (
    snapshot_id TEXT NOT NULL REFERENCES framegraph_snapshots(id) ON DELETE CASCADE,
    node_id     TEXT NOT NULL,
    seq         INTEGER NOT NULL DEFAULT 0,
    type_name   TEXT NOT NULL,
    data        JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (snapshot_id, node_id)
);

CREATE TABLE IF NOT EXISTS framegraph_snapshot_connections (
    snapshot_id TEXT NOT NULL REFERENCES framegraph_snapshots(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    input_node  TEXT NOT NULL,
    input_idx   INTEGER NOT NULL,
    output_node TEXT NOT NULL,
    output_idx  INTEGER NOT NULL,
    PRIMARY KEY (snapshot_id, seq)
);

ALTER TABLE framegraph_snapshot_nodes ADD COLUMN IF NOT EXISTS seq INTEGER NOT NULL DEFAULT 0;

CREATE INDEX IF NOT EXISTS idx_framegraph_nodes_type ON framegraph_snapshot_nodes(type_name);
`

// CreateSchema creates the snapshot tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the snapshot tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS framegraph_snapshot_connections, framegraph_snapshot_nodes, framegraph_snapshots CASCADE;`)
	return err
}
