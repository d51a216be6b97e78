package store

// postgres.go stores snapshots as jsonb in PostgreSQL through a pgx pool.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/datatable/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS table_snapshots (
	name       text PRIMARY KEY,
	data       jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresStore keeps snapshots in table_snapshots, one row per table name.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the snapshot table exists.
func NewPostgresStore(ctx context.Context, databaseURL, name string, maxConns int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, storageError("parse database url", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, storageError("create pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageError("ping database", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, storageError("create postgres schema", err)
	}

	return &PostgresStore{pool: pool, name: name}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*core.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM table_snapshots WHERE name = $1`, s.name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("query snapshot", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, storageError("decode snapshot", err)
	}
	return &snap, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return storageError("encode snapshot", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO table_snapshots (name, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		s.name, data,
	)
	if err != nil {
		return storageError("upsert snapshot", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
