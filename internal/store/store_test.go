package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
)

func sampleSnapshot() core.Snapshot {
	snap := core.DefaultSnapshot()
	snap.Columns = append(snap.Columns, core.Column{ID: "notes", Label: "Notes", Visible: false})
	snap.Rows = append(snap.Rows, core.Row{
		ID: "3",
		Fields: core.Fields{
			"name":  core.Text("Zoë Ålund"),
			"email": core.Text("zoe@example.com"),
			"age":   core.Number(41.5),
			"notes": core.Text("line one\nline, two"),
		},
	})
	return snap
}

// roundTrip saves snap to st and loads it back.
func roundTrip(t *testing.T, st Store, snap core.Snapshot) *core.Snapshot {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, snap))
	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestCompressionFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Compression
	}{
		{"table.json", CompressionNone},
		{"table.json.gz", CompressionGZ},
		{"TABLE.JSON.GZ", CompressionGZ},
		{"data/table.json.zst", CompressionZSTD},
		{"table.json.xz", CompressionXZ},
		{"table", CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, CompressionFromPath(tt.path))
		})
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"table.json", "table.json.gz", "table.json.zst", "table.json.xz"} {
		t.Run(name, func(t *testing.T) {
			st := NewFileStore(filepath.Join(t.TempDir(), "nested", name))
			want := sampleSnapshot()

			got := roundTrip(t, st, want)
			assert.Equal(t, want, *got)
			require.NoError(t, st.Close())
		})
	}
}

func TestFileStore_CompressedOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json.gz")
	st := NewFileStore(path)
	require.NoError(t, st.Save(context.Background(), sampleSnapshot()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2], "gzip magic")
}

func TestFileStore_MissingFile(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	got, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_Overwrite(t *testing.T) {
	dir := t.TempDir()
	st := NewFileStore(filepath.Join(dir, "table.json"))
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, sampleSnapshot()))
	require.NoError(t, st.Save(ctx, core.DefaultSnapshot()))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSnapshot(), *got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "table.json", entries[0].Name())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.Equal(t, "STO001", core.MapError(err).Code)
}

func TestFileStore_IgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	doc := `{"version":3,"columns":[{"id":"name","label":"Name","visible":true}],"rows":[{"id":"1","name":"Ann"}],"query":{"page":2}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "Ann", got.Rows[0].Fields.Get("name").String())
}

func TestFileStore_CancelledContext(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "table.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, st.Save(ctx, sampleSnapshot()), context.Canceled)
	_, err := st.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "table.db")

	st, err := NewSQLiteStore(ctx, path, "default")
	require.NoError(t, err)
	defer st.Close()

	t.Run("empty database", func(t *testing.T) {
		got, err := st.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trip", func(t *testing.T) {
		want := sampleSnapshot()
		assert.Equal(t, want, *roundTrip(t, st, want))
	})

	t.Run("upsert replaces", func(t *testing.T) {
		want := core.DefaultSnapshot()
		assert.Equal(t, want, *roundTrip(t, st, want))
	})

	t.Run("names are isolated", func(t *testing.T) {
		other, err := NewSQLiteStore(ctx, path, "other")
		require.NoError(t, err)
		defer other.Close()

		got, err := other.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "table.db")

	st, err := NewSQLiteStore(ctx, path, "default")
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, sampleSnapshot()))
	require.NoError(t, st.Close())

	reopened, err := NewSQLiteStore(ctx, path, "default")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), *got)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATATABLE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DATATABLE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	name := "test_" + strings.ReplaceAll(t.Name(), "/", "_")

	st, err := NewPostgresStore(ctx, url, name, 2)
	require.NoError(t, err)
	defer st.Close()

	want := sampleSnapshot()
	got := roundTrip(t, st, want)
	assert.Equal(t, want, *got)

	_, err = st.pool.Exec(ctx, `DELETE FROM table_snapshots WHERE name = $1`, name)
	require.NoError(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		st, err := Open(ctx, config.StorageConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "t.json")})
		require.NoError(t, err)
		defer st.Close()
		assert.IsType(t, &FileStore{}, st)
	})

	t.Run("sqlite", func(t *testing.T) {
		st, err := Open(ctx, config.StorageConfig{Driver: "SQLite", Path: filepath.Join(dir, "t.db"), Name: "default"})
		require.NoError(t, err)
		defer st.Close()
		assert.IsType(t, &SQLiteStore{}, st)
	})

	t.Run("postgres bad url", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Driver: config.DriverPostgres, URL: "::not a url::"})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Driver: "redis"})
		assert.ErrorContains(t, err, "unknown storage driver")
	})
}
