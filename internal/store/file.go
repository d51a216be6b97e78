package store

// file.go stores the snapshot as a JSON document on local disk.
//
// Writes go to a temporary file in the same directory which is synced and
// renamed over the target, so a crash mid-save leaves the previous snapshot
// intact.

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/JonMunkholm/datatable/internal/core"
)

// FileStore keeps one snapshot in a JSON file. A .gz, .zst or .xz suffix
// compresses the file.
type FileStore struct {
	path        string
	compression Compression
	mu          sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, compression: CompressionFromPath(path)}
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load decodes the snapshot file. A missing file is not an error.
func (s *FileStore) Load(ctx context.Context) (*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("open snapshot", err)
	}
	defer f.Close()

	r, cleanup, err := s.compression.NewReader(f)
	if err != nil {
		return nil, storageError("decompress snapshot", err)
	}
	defer cleanup() //nolint:errcheck // read side

	var snap core.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, storageError("decode snapshot", err)
	}
	return &snap, nil
}

// Save atomically replaces the snapshot file.
func (s *FileStore) Save(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError("create snapshot dir", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return storageError("create temp file", err)
	}
	tmpName := tmp.Name()

	if err := s.writeTo(tmp, snap); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageError("write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageError("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return storageError("replace snapshot", err)
	}
	return nil
}

func (s *FileStore) writeTo(f *os.File, snap core.Snapshot) error {
	w, err := s.compression.NewWriter(f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}
