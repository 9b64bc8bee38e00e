package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"percolator_go/internal/state"
)

// Snapshot is one decoded engine-state reading, stored with the raw bytes
// it came from so it can be re-decoded under another layout later.
type Snapshot struct {
	ID        int64        `json:"id"`
	Address   string       `json:"address"`
	Slot      uint64       `json:"slot"`
	Layout    string       `json:"layout"`
	Record    state.Record `json:"record"`
	Raw       []byte       `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}

// SnapshotStore persists snapshots in SQLite.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (or creates) the database at dbPath with WAL mode
// enabled.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; WAL lets the history command read concurrently
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL,
			slot INTEGER NOT NULL,
			layout TEXT NOT NULL,
			tier INTEGER NOT NULL,
			raw BLOB NOT NULL,
			record TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_address_slot ON snapshots (address, slot);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SnapshotStore{db: db}, nil
}

// SaveSnapshot inserts snap and returns its row id. A zero CreatedAt is
// set to now.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap *Snapshot) (int64, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	record, err := json.Marshal(snap.Record)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}
	// sqlite INTEGER is signed; slots stay far below 2^63
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO snapshots (address, slot, layout, tier, raw, record, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		snap.Address, int64(snap.Slot), snap.Layout, int(snap.Record.Tier), snap.Raw, string(record), snap.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	snap.ID = id
	return id, nil
}

const snapshotColumns = "id, address, slot, layout, raw, record, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		snap      Snapshot
		slot      int64
		record    string
		createdAt int64
	)
	if err := row.Scan(&snap.ID, &snap.Address, &slot, &snap.Layout, &snap.Raw, &record, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(record), &snap.Record); err != nil {
		return nil, fmt.Errorf("snapshot %d: failed to unmarshal record: %w", snap.ID, err)
	}
	snap.Slot = uint64(slot)
	snap.CreatedAt = time.UnixMilli(createdAt)
	return &snap, nil
}

// LatestSnapshot returns the highest-slot snapshot for address, or nil if
// there is none.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context, address string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots WHERE address = ? ORDER BY slot DESC, id DESC LIMIT 1",
		address,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns up to limit snapshots for address, newest first.
// An empty address lists every account.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, address string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT " + snapshotColumns + " FROM snapshots"
	args := []any{}
	if address != "" {
		query += " WHERE address = ?"
		args = append(args, address)
	}
	query += " ORDER BY slot DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// LastSlot returns the highest stored slot for address, 0 if none.
func (s *SnapshotStore) LastSlot(ctx context.Context, address string) (uint64, error) {
	var slot sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(slot) FROM snapshots WHERE address = ?", address).Scan(&slot)
	if err != nil {
		return 0, fmt.Errorf("failed to get last slot: %w", err)
	}
	if !slot.Valid {
		return 0, nil
	}
	return uint64(slot.Int64), nil
}

// UpsertMetadata saves a key-value pair, e.g. the engine-state address
// found for a program.
func (s *SnapshotStore) UpsertMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().UnixMilli(),
	)
	return err
}

// GetMetadata retrieves a value; missing keys return "".
func (s *SnapshotStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
