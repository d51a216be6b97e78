package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ReservedColumnID is the row identifier key. It is never an editable field,
// never added as a column and never removed.
const ReservedColumnID = "id"

// Column is a named, orderable, show/hide-able field definition.
type Column struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
}

// Fields maps column id to value. A missing key means the value is absent.
type Fields map[string]Value

// Clone returns a shallow copy of f (values are immutable).
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Get returns the value for a column, or empty text if absent.
func (f Fields) Get(columnID string) Value {
	return f[columnID]
}

// Row is one record, keyed by a unique id.
type Row struct {
	ID     string
	Fields Fields
}

// Clone returns a copy of r that shares nothing mutable with it.
func (r Row) Clone() Row {
	return Row{ID: r.ID, Fields: r.Fields.Clone()}
}

// MarshalJSON writes the flat shape {"id": "...", "<column>": value, ...}.
func (r Row) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		if k == ReservedColumnID {
			continue
		}
		flat[k] = v
	}
	flat[ReservedColumnID] = r.ID
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat shape. A non-string id is rendered as text
// and null values are dropped.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("row: %w", err)
	}

	row := Row{Fields: make(Fields, len(raw))}
	for k, msg := range raw {
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var v Value
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("row field %q: %w", k, err)
		}
		if k == ReservedColumnID {
			row.ID = v.String()
			continue
		}
		row.Fields[k] = v
	}

	*r = row
	return nil
}

// Snapshot is the durable state of a table: its schema and its rows.
// Query state is never part of a snapshot.
type Snapshot struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Columns: append([]Column(nil), s.Columns...),
		Rows:    make([]Row, len(s.Rows)),
	}
	for i, r := range s.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Empty reports whether the snapshot carries no schema.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Columns) == 0
}
