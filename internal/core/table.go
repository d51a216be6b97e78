package core

// table.go is the Mutation API: the only way to change a table.
//
// Every mutation runs under one lock, so writers are serialized and readers
// never observe a half-applied change. After each effective mutation the new
// Snapshot is handed to subscribers in mutation order.

import (
	"strings"
	"sync"
)

// Table owns a schema and its rows.
type Table struct {
	mu     sync.RWMutex
	schema *Schema
	rows   *RowStore
	newID  IDGenerator

	// pubMu is taken before mu is released so snapshots reach subscribers
	// in the order the mutations happened.
	pubMu sync.Mutex

	subMu   sync.RWMutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithIDGenerator replaces the UUID generator used for new row ids.
func WithIDGenerator(gen IDGenerator) TableOption {
	return func(t *Table) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// NewTable builds a table from a saved snapshot. A nil snapshot, or one
// without columns, starts from DefaultSnapshot.
func NewTable(snap *Snapshot, opts ...TableOption) *Table {
	t := &Table{
		newID: NewRowID,
		subs:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(t)
	}

	var initial Snapshot
	if snap.Empty() {
		initial = DefaultSnapshot()
	} else {
		initial = snap.Clone()
	}
	t.load(initial)
	return t
}

func (t *Table) load(s Snapshot) {
	t.schema = NewSchema(s.Columns)
	t.rows = NewRowStore(s.Rows, t.newID)
}

// Subscribe registers fn to receive the snapshot after every mutation.
// fn runs on the mutating goroutine; it may read the table but must not
// mutate it. The returned func removes the subscription.
func (t *Table) Subscribe(fn func(Snapshot)) (cancel func()) {
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subMu.Lock()
			delete(t.subs, id)
			t.subMu.Unlock()
		})
	}
}

// commit publishes the current state. It must be called with t.mu held for
// writing and releases it.
func (t *Table) commit() {
	snap := t.snapshotLocked()
	t.pubMu.Lock()
	t.mu.Unlock()
	defer t.pubMu.Unlock()

	t.subMu.RLock()
	fns := make([]func(Snapshot), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subMu.RUnlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

// AddRow stores a new row under a generated id. Fields for unknown or
// reserved columns are dropped.
func (t *Table) AddRow(fields Fields) Row {
	t.mu.Lock()
	row := t.rows.Add(Row{ID: t.newID(), Fields: t.knownFields(fields)})
	t.commit()
	return row
}

// InsertRow stores row keeping its id unless that id is empty or taken, in
// which case a fresh one is generated.
func (t *Table) InsertRow(row Row) Row {
	t.mu.Lock()
	stored := t.rows.Add(Row{ID: row.ID, Fields: t.knownFields(row.Fields)})
	t.commit()
	return stored
}

// UpdateRow merges fields into the row with the given id. Keys not in
// fields keep their values. Returns false if the row does not exist.
func (t *Table) UpdateRow(id string, fields Fields) bool {
	t.mu.Lock()
	if !t.rows.Update(id, t.knownFields(fields)) {
		t.mu.Unlock()
		return false
	}
	t.commit()
	return true
}

// DeleteRow removes a row. Returns false if it does not exist.
func (t *Table) DeleteRow(id string) bool {
	t.mu.Lock()
	if !t.rows.Delete(id) {
		t.mu.Unlock()
		return false
	}
	t.commit()
	return true
}

// knownFields keeps only fields that belong to registered, non-reserved
// columns. Callers hold t.mu.
func (t *Table) knownFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if k == ReservedColumnID || !t.schema.Has(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// ParseRecord converts raw form input into typed fields.
//
// A column counts as numeric when any row already holds a number in it.
// For numeric columns, input that is a plain numeric literal becomes a
// number; everything else is kept as text. Unknown and reserved keys are
// dropped.
func (t *Table) ParseRecord(record map[string]string) Fields {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(Fields, len(record))
	for k, raw := range record {
		if k == ReservedColumnID || !t.schema.Has(k) {
			continue
		}
		if t.numericColumnLocked(k) {
			if f, ok := ParseNumber(raw); ok {
				out[k] = Number(f)
				continue
			}
		}
		out[k] = Text(raw)
	}
	return out
}

func (t *Table) numericColumnLocked(columnID string) bool {
	for _, r := range t.rows.rows {
		if v, ok := r.Fields[columnID]; ok && v.IsNumber() {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

// AddColumn registers a visible column and sets it to empty text on every
// existing row. Returns false if the id is taken, empty or reserved.
func (t *Table) AddColumn(id, label string) bool {
	t.mu.Lock()
	if !t.addColumnLocked(id, label) {
		t.mu.Unlock()
		return false
	}
	t.commit()
	return true
}

func (t *Table) addColumnLocked(id, label string) bool {
	if id == ReservedColumnID || !t.schema.AddColumn(id, label) {
		return false
	}
	t.rows.Backfill(id)
	return true
}

// ColumnIDFromLabel derives a column id from a display label: trimmed,
// lowercased, whitespace runs replaced by "_".
func ColumnIDFromLabel(label string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "_")
}

// AddColumnFromLabel adds a column named label, deriving its id with
// ColumnIDFromLabel. Blank labels and labels whose id is taken are rejected.
func (t *Table) AddColumnFromLabel(label string) (Column, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Column{}, false
	}
	col := Column{ID: ColumnIDFromLabel(label), Label: label, Visible: true}
	if !t.AddColumn(col.ID, col.Label) {
		return Column{}, false
	}
	return col, true
}

// ToggleColumnVisibility shows a hidden column or hides a visible one.
// Returns false if the column does not exist.
func (t *Table) ToggleColumnVisibility(id string) bool {
	t.mu.Lock()
	if !t.schema.ToggleVisibility(id) {
		t.mu.Unlock()
		return false
	}
	t.commit()
	return true
}

// ---------------------------------------------------------------------------
// Whole table
// ---------------------------------------------------------------------------

// ResetToDefault discards all columns and rows and restores the seed table.
func (t *Table) ResetToDefault() {
	t.mu.Lock()
	t.load(DefaultSnapshot())
	t.commit()
}

// ApplyImport adds the result's new columns, then stores every imported row
// under a freshly generated id. Failed results change nothing. Returns the
// number of rows added.
func (t *Table) ApplyImport(res ImportResult) int {
	if res.Error != "" || (len(res.Rows) == 0 && len(res.NewColumns) == 0) {
		return 0
	}

	t.mu.Lock()
	for _, c := range res.NewColumns {
		t.addColumnLocked(c.ID, c.Label)
	}
	for _, r := range res.Rows {
		t.rows.Add(Row{ID: t.newID(), Fields: t.knownFields(r.Fields)})
	}
	t.commit()
	return len(res.Rows)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Columns returns all columns in order.
func (t *Table) Columns() []Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema.List()
}

// VisibleColumns returns the visible columns in order.
func (t *Table) VisibleColumns() []Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema.Visible()
}

// Column returns one column.
func (t *Table) Column(id string) (Column, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema.Get(id)
}

// Rows returns every row in insertion order.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows.All()
}

// Row returns one row.
func (t *Table) Row(id string) (Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows.Get(id)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows.Len()
}

// Snapshot returns a deep copy of the durable state.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() Snapshot {
	return Snapshot{Columns: t.schema.List(), Rows: t.rows.All()}
}

// View derives the page described by q.
func (t *Table) View(q Query) View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return DeriveView(t.rows.rows, t.schema.columns, q)
}
