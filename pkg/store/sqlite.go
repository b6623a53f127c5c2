// Package store persists architecture snapshots locally so analyses can be
// compared over time without re-hitting the backend.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zenpipeline/archview/pkg/client"
)

// ErrSnapshotNotFound is returned when a snapshot id does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// One row per saved snapshot. The three view payloads are kept as
	// JSON blobs; repo and time are columns for querying.
	query := `
	CREATE TABLE IF NOT EXISTS snapshots (
		snapshot_id TEXT PRIMARY KEY,
		repository_id TEXT NOT NULL,
		taken_at DATETIME NOT NULL,

		graph JSON NOT NULL,
		compliance JSON NOT NULL,
		drift JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_repo_taken ON snapshots(repository_id, taken_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return nil
}

// SavedSnapshot is a stored snapshot plus its storage id.
type SavedSnapshot struct {
	ID uuid.UUID
	client.Snapshot
}

// SaveSnapshot persists a snapshot and returns its id.
func (s *Store) SaveSnapshot(ctx context.Context, snap client.Snapshot) (uuid.UUID, error) {
	graph, err := json.Marshal(snap.Graph)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal graph: %w", err)
	}
	compliance, err := json.Marshal(snap.Compliance)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal compliance: %w", err)
	}
	drift, err := json.Marshal(snap.Drift)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal drift: %w", err)
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (snapshot_id, repository_id, taken_at, graph, compliance, drift)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), snap.RepositoryID.String(), snap.TakenAt.UTC(), graph, compliance, drift,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// GetSnapshot loads one snapshot by id.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (SavedSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, repository_id, taken_at, graph, compliance, drift
		FROM snapshots WHERE snapshot_id = ?`, id.String())
	return scanSnapshot(row)
}

// ListSnapshots returns the most recent snapshots for a repository, newest
// first. limit <= 0 means a default of 20.
func (s *Store) ListSnapshots(ctx context.Context, repoID uuid.UUID, limit int) ([]SavedSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id, repository_id, taken_at, graph, compliance, drift
		FROM snapshots WHERE repository_id = ?
		ORDER BY taken_at DESC LIMIT ?`, repoID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SavedSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune deletes snapshots older than the retention window and returns the
// number removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE taken_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (SavedSnapshot, error) {
	var (
		snap                     SavedSnapshot
		idStr, repoStr           string
		graph, compliance, drift []byte
	)
	err := row.Scan(&idStr, &repoStr, &snap.TakenAt, &graph, &compliance, &drift)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedSnapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return SavedSnapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}

	if snap.ID, err = uuid.Parse(idStr); err != nil {
		return SavedSnapshot{}, fmt.Errorf("parse snapshot id: %w", err)
	}
	if snap.RepositoryID, err = uuid.Parse(repoStr); err != nil {
		return SavedSnapshot{}, fmt.Errorf("parse repository id: %w", err)
	}
	if err := json.Unmarshal(graph, &snap.Graph); err != nil {
		return SavedSnapshot{}, fmt.Errorf("decode graph: %w", err)
	}
	if err := json.Unmarshal(compliance, &snap.Compliance); err != nil {
		return SavedSnapshot{}, fmt.Errorf("decode compliance: %w", err)
	}
	if err := json.Unmarshal(drift, &snap.Drift); err != nil {
		return SavedSnapshot{}, fmt.Errorf("decode drift: %w", err)
	}
	return snap, nil
}
