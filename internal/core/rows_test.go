package core

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sequenceIDs returns a generator yielding ids in order, then "gen-N".
func sequenceIDs(ids ...string) IDGenerator {
	n := 0
	return func() string {
		n++
		if n <= len(ids) {
			return ids[n-1]
		}
		return fmt.Sprintf("gen-%d", n)
	}
}

func TestSchema_AddColumn(t *testing.T) {
	s := NewSchema(nil)

	if !s.AddColumn("name", "Name") {
		t.Fatal("first add should succeed")
	}
	if s.AddColumn("name", "Other") {
		t.Error("duplicate id should be rejected")
	}
	if s.AddColumn("", "Blank") {
		t.Error("empty id should be rejected")
	}

	want := []Column{{ID: "name", Label: "Name", Visible: true}}
	if diff := cmp.Diff(want, s.List()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestSchema_ToggleVisibility(t *testing.T) {
	s := NewSchema(DefaultSnapshot().Columns)

	if !s.ToggleVisibility("email") {
		t.Fatal("toggle of known column failed")
	}
	if c, _ := s.Get("email"); c.Visible {
		t.Error("email should be hidden")
	}
	if got := len(s.Visible()); got != 3 {
		t.Errorf("visible columns = %d, want 3", got)
	}

	s.ToggleVisibility("email")
	if c, _ := s.Get("email"); !c.Visible {
		t.Error("second toggle should restore visibility")
	}

	if s.ToggleVisibility("missing") {
		t.Error("unknown column toggle should report false")
	}
}

func TestSchema_ListIsACopy(t *testing.T) {
	s := NewSchema(DefaultSnapshot().Columns)
	cols := s.List()
	cols[0].Label = "changed"

	if c, _ := s.Get(cols[0].ID); c.Label == "changed" {
		t.Error("List must not expose internal state")
	}
}

func TestNewSchema_DropsDuplicates(t *testing.T) {
	s := NewSchema([]Column{
		{ID: "a", Label: "A", Visible: true},
		{ID: "a", Label: "A2", Visible: false},
		{ID: "b", Label: "B", Visible: false},
	})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if c, _ := s.Get("a"); c.Label != "A" {
		t.Errorf("kept %q, want first definition", c.Label)
	}
}

func TestRowStore_AddKeepsIDsUnique(t *testing.T) {
	tests := []struct {
		name    string
		initial []Row
		add     Row
		gen     IDGenerator
		wantID  string
		wantLen int
	}{
		{
			name:    "new id is kept",
			initial: []Row{{ID: "1"}},
			add:     Row{ID: "2"},
			gen:     sequenceIDs(),
			wantID:  "2",
			wantLen: 2,
		},
		{
			name:    "colliding id is replaced",
			initial: []Row{{ID: "1"}},
			add:     Row{ID: "1"},
			gen:     sequenceIDs("fresh"),
			wantID:  "fresh",
			wantLen: 2,
		},
		{
			name:    "generator collisions are retried",
			initial: []Row{{ID: "1"}, {ID: "2"}},
			add:     Row{ID: "1"},
			gen:     sequenceIDs("2", "1", "3"),
			wantID:  "3",
			wantLen: 3,
		},
		{
			name:    "empty id gets one",
			add:     Row{},
			gen:     sequenceIDs("x"),
			wantID:  "x",
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRowStore(tt.initial, tt.gen)
			got := s.Add(tt.add)

			if got.ID != tt.wantID {
				t.Errorf("stored id = %q, want %q", got.ID, tt.wantID)
			}
			if s.Len() != tt.wantLen {
				t.Errorf("Len = %d, want %d", s.Len(), tt.wantLen)
			}
			assertUniqueIDs(t, s.All())
		})
	}
}

func TestRowStore_CollisionDoesNotOverwrite(t *testing.T) {
	s := NewRowStore([]Row{{ID: "1", Fields: Fields{"name": Text("John Doe")}}}, sequenceIDs("new"))
	s.Add(Row{ID: "1", Fields: Fields{"name": Text("Intruder")}})

	got, ok := s.Get("1")
	if !ok {
		t.Fatal("original row missing")
	}
	if name := got.Fields.Get("name").String(); name != "John Doe" {
		t.Errorf("original row overwritten: name = %q", name)
	}
}

func TestRowStore_Update(t *testing.T) {
	s := NewRowStore(DefaultSnapshot().Rows, nil)

	if !s.Update("1", Fields{"role": Text("Lead")}) {
		t.Fatal("update of existing row failed")
	}
	got, _ := s.Get("1")
	want := Fields{
		"name":  Text("John Doe"),
		"email": Text("john@example.com"),
		"age":   Number(28),
		"role":  Text("Lead"),
	}
	if diff := cmp.Diff(want, got.Fields); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}

	if s.Update("missing", Fields{"role": Text("x")}) {
		t.Error("update of unknown row should report false")
	}
	if s.Len() != 2 {
		t.Errorf("unknown update changed row count to %d", s.Len())
	}
}

func TestRowStore_Delete(t *testing.T) {
	s := NewRowStore([]Row{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)

	if !s.Delete("b") {
		t.Fatal("delete of existing row failed")
	}
	if s.Delete("b") {
		t.Error("second delete should report false")
	}

	var ids []string
	for _, r := range s.All() {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
		t.Errorf("order after delete (-want +got):\n%s", diff)
	}
	if _, ok := s.Get("c"); !ok {
		t.Error("index not maintained after delete")
	}
}

func TestRowStore_Backfill(t *testing.T) {
	s := NewRowStore([]Row{
		{ID: "a", Fields: Fields{"dept": Text("Ops")}},
		{ID: "b"},
	}, nil)
	s.Backfill("dept")

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	if got := a.Fields.Get("dept").String(); got != "Ops" {
		t.Errorf("existing value replaced: %q", got)
	}
	if v, ok := b.Fields["dept"]; !ok || v.String() != "" {
		t.Errorf("missing value not backfilled: %#v, %v", v, ok)
	}
}

func TestRowStore_AllReturnsCopies(t *testing.T) {
	s := NewRowStore(DefaultSnapshot().Rows, nil)
	rows := s.All()
	rows[0].Fields["name"] = Text("changed")

	got, _ := s.Get(rows[0].ID)
	if got.Fields.Get("name").String() == "changed" {
		t.Error("All must return deep copies")
	}
}

func assertUniqueIDs(t *testing.T, rows []Row) {
	t.Helper()
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if seen[r.ID] {
			t.Errorf("duplicate row id %q", r.ID)
		}
		seen[r.ID] = true
	}
}
