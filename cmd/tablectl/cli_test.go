package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/datatable/internal/core"
)

// run executes tablectl against the store at path and returns stdout.
func run(t *testing.T, path string, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--path", path, "--log-level", "error"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, path string, args ...string) string {
	t.Helper()
	out, err := run(t, path, "", args...)
	if err != nil {
		t.Fatalf("tablectl %v: %v\n%s", args, err, out)
	}
	return out
}

func storePath(t *testing.T) string {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "file")
	return filepath.Join(t.TempDir(), "table.json")
}

func TestView_SeedTable(t *testing.T) {
	path := storePath(t)

	out := mustRun(t, path, "view", "--sort", "age", "--dir", "desc")
	if !strings.Contains(out, "page 1 of 1, 2 matching rows") {
		t.Errorf("missing footer:\n%s", out)
	}
	if strings.Index(out, "Jane Smith") > strings.Index(out, "John Doe") {
		t.Errorf("rows not sorted by age desc:\n%s", out)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a read-only command should not write the store")
	}
}

func TestView_HugePageIsEmpty(t *testing.T) {
	path := storePath(t)

	out := mustRun(t, path, "view", "--page", "922337203685477581", "--format", "json")
	if !strings.Contains(out, `"rows": []`) || !strings.Contains(out, `"totalMatched": 2`) {
		t.Errorf("want an empty page over 2 matching rows:\n%s", out)
	}
}

func TestAddRow_UnreadableStoreIsLeftAlone(t *testing.T) {
	path := storePath(t)
	corrupt := []byte("not json")
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, path, "", "add-row", "name=Ada"); !errors.Is(err, core.ErrStorage) {
		t.Fatalf("add-row error = %v, want ErrStorage", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, corrupt) {
		t.Errorf("store rewritten to %q", got)
	}
}

func TestAddRow_PersistsAcrossRuns(t *testing.T) {
	path := storePath(t)

	id := strings.TrimSpace(mustRun(t, path, "add-row", "name=Ada Lovelace", "age=36", "unknown=x"))
	if id == "" {
		t.Fatal("add-row printed no id")
	}

	out := mustRun(t, path, "view", "--search", "lovelace", "--format", "json")
	if !strings.Contains(out, `"age": 36`) || !strings.Contains(out, id) {
		t.Errorf("added row not persisted with numeric age:\n%s", out)
	}
	if strings.Contains(out, "unknown") {
		t.Errorf("unknown column stored:\n%s", out)
	}
}

func TestUpdateAndDeleteRow(t *testing.T) {
	path := storePath(t)

	mustRun(t, path, "update-row", "1", "role=Lead")
	if out := mustRun(t, path, "view", "--search", "lead"); !strings.Contains(out, "John Doe") {
		t.Errorf("update not applied:\n%s", out)
	}

	mustRun(t, path, "delete-row", "2")
	if out := mustRun(t, path, "view"); strings.Contains(out, "Jane Smith") {
		t.Errorf("row 2 not deleted:\n%s", out)
	}

	_, err := run(t, path, "", "delete-row", "2")
	if !errors.Is(err, core.ErrRowNotFound) {
		t.Errorf("delete missing row: err = %v, want ErrRowNotFound", err)
	}
	if got := core.MapError(err).Code; got != "ROW001" {
		t.Errorf("code = %s, want ROW001", got)
	}
}

func TestColumns(t *testing.T) {
	path := storePath(t)

	if out := mustRun(t, path, "add-column", "Start Date"); strings.TrimSpace(out) != "start_date" {
		t.Errorf("add-column printed %q", out)
	}
	mustRun(t, path, "toggle-column", "email")

	out := mustRun(t, path, "columns")
	for _, want := range []string{"start_date", "Start Date", "email"} {
		if !strings.Contains(out, want) {
			t.Errorf("columns output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "false") {
		t.Errorf("hidden column not reported:\n%s", out)
	}

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"duplicate column", []string{"add-column", "start date"}, core.ErrDuplicateColumn},
		{"reserved column", []string{"add-column", "id"}, core.ErrInvalidColumn},
		{"toggle unknown", []string{"toggle-column", "nope"}, core.ErrColumnNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, path, "", tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestImportAndExport(t *testing.T) {
	path := storePath(t)

	out, err := run(t, path, "Name,Team\nAnn,Ops\n", "import", "-")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 1 rows, 1 new columns") {
		t.Errorf("import output = %q", out)
	}

	mustRun(t, path, "toggle-column", "email")
	mustRun(t, path, "toggle-column", "age")
	mustRun(t, path, "toggle-column", "role")

	got := mustRun(t, path, "export")
	want := "Name,Team\nJohn Doe,\nJane Smith,\nAnn,Ops\n"
	if got != want {
		t.Errorf("export = %q, want %q", got, want)
	}

	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	mustRun(t, path, "export", "--format", "xlsx", "--output", xlsx)
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Errorf("xlsx export not written: %v", err)
	}
}

func TestImport_EmptyFileLeavesTableUnchanged(t *testing.T) {
	path := storePath(t)

	_, err := run(t, path, "name,email\n", "import", "-")
	if !errors.Is(err, core.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed import should not save")
	}
}

func TestReset(t *testing.T) {
	path := storePath(t)
	mustRun(t, path, "delete-row", "1")

	if _, err := run(t, path, "", "reset"); err == nil {
		t.Fatal("reset without --yes should fail")
	}
	if out := mustRun(t, path, "reset", "--yes"); !strings.Contains(out, "2 rows") {
		t.Errorf("reset output = %q", out)
	}
	if out := mustRun(t, path, "view"); !strings.Contains(out, "John Doe") {
		t.Errorf("seed rows not restored:\n%s", out)
	}
}

func TestSQLiteDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")

	id := strings.TrimSpace(mustRun(t, path, "--driver", "sqlite", "add-row", "name=Grace"))
	out := mustRun(t, path, "--driver", "sqlite", "view", "--search", "grace")
	if !strings.Contains(out, id) {
		t.Errorf("row %s missing from sqlite store:\n%s", id, out)
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"name=Ann=Lee", " age =7", "note="})
	if err != nil {
		t.Fatal(err)
	}
	if got["name"] != "Ann=Lee" || got["age"] != "7" || got["note"] != "" {
		t.Errorf("got %v", got)
	}

	if _, err := parseAssignments([]string{"novalue"}); err == nil {
		t.Error("expected error for missing =")
	}
}
