// Package store persists table snapshots.
//
// A Store holds exactly one snapshot per table name. Backends are chosen by
// config.StorageConfig.Driver: a JSON file (optionally compressed), a SQLite
// database, or PostgreSQL. The engine never blocks on a Store directly; the
// Persister owns the write path.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
)

// Store loads and saves the durable part of a table.
type Store interface {
	// Load returns the saved snapshot, or nil when nothing has been saved yet.
	Load(ctx context.Context) (*core.Snapshot, error)

	// Save replaces the saved snapshot.
	Save(ctx context.Context, snap core.Snapshot) error

	Close() error
}

// Open builds the Store selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverFile:
		return NewFileStore(cfg.Path), nil
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.Path, cfg.Name)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.URL, cfg.Name, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// storageError tags err with core.ErrStorage so the web layer maps it to STO001.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStorage, op, err)
}
