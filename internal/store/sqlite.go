package store

// sqlite.go stores snapshots in a SQLite database using the pure-Go
// modernc driver, so the binary stays cgo-free.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/datatable/internal/core"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS table_snapshots (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps snapshots in table_snapshots, one row per table name.
type SQLiteStore struct {
	db   *sql.DB
	name string
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path, name string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageError("create database dir", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageError("open sqlite", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, storageError("create sqlite schema", err)
	}

	return &SQLiteStore{db: db, name: name}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*core.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM table_snapshots WHERE name = ?`, s.name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("query snapshot", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, storageError("decode snapshot", err)
	}
	return &snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return storageError("encode snapshot", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO table_snapshots (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.name, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageError("upsert snapshot", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
