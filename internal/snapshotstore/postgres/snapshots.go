package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vk/framegraph/internal/snapshot"
	"github.com/vk/framegraph/internal/snapshotstore"
)

// Save replaces the snapshot stored under name.
func (s *Store) Save(ctx context.Context, name string, snap *snapshot.Snapshot) (snapshotstore.Info, error) {
	if err := snapshotstore.ValidateName(name); err != nil {
		return snapshotstore.Info{}, err
	}

	snap.Normalize()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return snapshotstore.Info{}, fmt.Errorf("snapshotstore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	var updated time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO framegraph_snapshots (id, name, version, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE SET version = EXCLUDED.version, updated_at = NOW()
		RETURNING id, updated_at`,
		uuid.NewString(), name, snap.Version,
	).Scan(&id, &updated)
	if err != nil {
		return snapshotstore.Info{}, fmt.Errorf("snapshotstore: upsert %s: %w", name, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM framegraph_snapshot_connections WHERE snapshot_id = $1`, id); err != nil {
		return snapshotstore.Info{}, fmt.Errorf("snapshotstore: delete connections: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM framegraph_snapshot_nodes WHERE snapshot_id = $1`, id); err != nil {
		return snapshotstore.Info{}, fmt.Errorf("snapshotstore: delete nodes: %w", err)
	}

	order, err := snap.NodeOrder()
	if err != nil {
		return snapshotstore.Info{}, err
	}
	for seq, nodeID := range order {
		n := snap.Nodes[nodeID]
		data, err := json.Marshal(n)
		if err != nil {
			return snapshotstore.Info{}, fmt.Errorf("snapshotstore: encode node %s: %w", nodeID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO framegraph_snapshot_nodes (snapshot_id, node_id, seq, type_name, data) VALUES ($1, $2, $3, $4, $5)`,
			id, nodeID, seq, n.TypeName, data,
		); err != nil {
			return snapshotstore.Info{}, fmt.Errorf("snapshotstore: insert node %s: %w", nodeID, err)
		}
	}

	for seq, c := range snap.Connections {
		if _, err := tx.Exec(ctx,
			`INSERT INTO framegraph_snapshot_connections (snapshot_id, seq, input_node, input_idx, output_node, output_idx) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, seq, c.InputNode, c.InputIdx, c.OutputNode, c.OutputIdx,
		); err != nil {
			return snapshotstore.Info{}, fmt.Errorf("snapshotstore: insert connection %d: %w", seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return snapshotstore.Info{}, fmt.Errorf("snapshotstore: commit: %w", err)
	}
	return snapshotstore.Info{Name: name, Nodes: len(snap.Nodes), UpdatedAt: updated.UTC()}, nil
}

// Load reads the snapshot stored under name.
func (s *Store) Load(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	if err := snapshotstore.ValidateName(name); err != nil {
		return nil, err
	}

	var id string
	snap := &snapshot.Snapshot{Nodes: map[string]snapshot.Node{}, Connections: []snapshot.Connection{}}
	err := s.db.QueryRow(ctx,
		`SELECT id, version FROM framegraph_snapshots WHERE name = $1`, name,
	).Scan(&id, &snap.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", snapshotstore.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: query snapshot %s: %w", name, err)
	}
	if snap.Version > snapshot.Version {
		return nil, fmt.Errorf("%w: %d", snapshot.ErrUnsupportedVersion, snap.Version)
	}

	rows, err := s.db.Query(ctx,
		`SELECT node_id, data FROM framegraph_snapshot_nodes WHERE snapshot_id = $1 ORDER BY seq, node_id`, id)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: query nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var nodeID string
		var data []byte
		if err := rows.Scan(&nodeID, &data); err != nil {
			return nil, fmt.Errorf("snapshotstore: scan node: %w", err)
		}
		var n snapshot.Node
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("snapshotstore: decode node %s: %w", nodeID, err)
		}
		snap.Nodes[nodeID] = n
		snap.Order = append(snap.Order, nodeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshotstore: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT input_node, input_idx, output_node, output_idx FROM framegraph_snapshot_connections WHERE snapshot_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: query connections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c snapshot.Connection
		if err := rows.Scan(&c.InputNode, &c.InputIdx, &c.OutputNode, &c.OutputIdx); err != nil {
			return nil, fmt.Errorf("snapshotstore: scan connection: %w", err)
		}
		snap.Connections = append(snap.Connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshotstore: rows connections: %w", err)
	}
	return snap, nil
}

// List returns every stored snapshot, sorted by name.
func (s *Store) List(ctx context.Context) ([]snapshotstore.Info, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.name, s.updated_at, COUNT(n.node_id)
		FROM framegraph_snapshots s
		LEFT JOIN framegraph_snapshot_nodes n ON n.snapshot_id = s.id
		GROUP BY s.id, s.name, s.updated_at
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: list: %w", err)
	}
	defer rows.Close()

	infos := []snapshotstore.Info{}
	for rows.Next() {
		var info snapshotstore.Info
		if err := rows.Scan(&info.Name, &info.UpdatedAt, &info.Nodes); err != nil {
			return nil, fmt.Errorf("snapshotstore: scan: %w", err)
		}
		info.UpdatedAt = info.UpdatedAt.UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a snapshot with its nodes and connections.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := snapshotstore.ValidateName(name); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM framegraph_snapshots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("snapshotstore: delete %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", snapshotstore.ErrNotFound, name)
	}
	return nil
}
