package core

import "github.com/google/uuid"

// IDGenerator produces candidate row ids.
type IDGenerator func() string

// NewRowID returns a random UUID string.
func NewRowID() string {
	return uuid.NewString()
}

// RowStore holds rows in insertion order with unique ids.
// RowStore is not safe for concurrent use; Table serializes access.
type RowStore struct {
	rows  []Row
	index map[string]int
	newID IDGenerator
}

// NewRowStore builds a store from rows. Colliding or empty ids are replaced
// with generated ones, exactly as Add does. A nil generator uses NewRowID.
func NewRowStore(rows []Row, gen IDGenerator) *RowStore {
	if gen == nil {
		gen = NewRowID
	}
	s := &RowStore{
		rows:  make([]Row, 0, len(rows)),
		index: make(map[string]int, len(rows)),
		newID: gen,
	}
	for _, r := range rows {
		s.Add(r)
	}
	return s
}

// Add appends row and returns the row as stored.
//
// If row.ID is empty or already taken, the row is stored under a freshly
// generated id instead. The existing row is never overwritten and no error
// is reported.
func (s *RowStore) Add(row Row) Row {
	row = row.Clone()
	if row.ID == "" || s.Has(row.ID) {
		row.ID = s.uniqueID()
	}
	s.index[row.ID] = len(s.rows)
	s.rows = append(s.rows, row)
	return row.Clone()
}

// uniqueID draws from the generator until it yields an unused id.
func (s *RowStore) uniqueID() string {
	for {
		id := s.newID()
		if id != "" && !s.Has(id) {
			return id
		}
	}
}

// Update shallow-merges partial into the row with the given id: keys present
// in partial replace existing values, other keys are kept.
// Returns false if the id is unknown.
func (s *RowStore) Update(id string, partial Fields) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	fields := s.rows[i].Fields
	if fields == nil {
		fields = make(Fields, len(partial))
	}
	for k, v := range partial {
		fields[k] = v
	}
	s.rows[i].Fields = fields
	return true
}

// Delete removes the row with the given id. Returns false if absent.
func (s *RowStore) Delete(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.rows); j++ {
		s.index[s.rows[j].ID] = j
	}
	return true
}

// Backfill sets columnID to empty text on every row that lacks it.
func (s *RowStore) Backfill(columnID string) {
	for i := range s.rows {
		if s.rows[i].Fields == nil {
			s.rows[i].Fields = make(Fields, 1)
		}
		if _, ok := s.rows[i].Fields[columnID]; !ok {
			s.rows[i].Fields[columnID] = Text("")
		}
	}
}

// Get returns a copy of the row with the given id.
func (s *RowStore) Get(id string) (Row, bool) {
	i, ok := s.index[id]
	if !ok {
		return Row{}, false
	}
	return s.rows[i].Clone(), true
}

// Has reports whether a row id is taken.
func (s *RowStore) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// All returns copies of every row in insertion order.
func (s *RowStore) All() []Row {
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of rows.
func (s *RowStore) Len() int {
	return len(s.rows)
}
