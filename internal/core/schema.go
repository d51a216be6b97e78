package core

// Schema is the ordered registry of columns.
// Column ids are unique; the order is the render and export order.
// Schema is not safe for concurrent use; Table serializes access.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a registry from cols, dropping later duplicates of an id.
func NewSchema(cols []Column) *Schema {
	s := &Schema{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		s.add(c)
	}
	return s
}

// AddColumn appends {id, label, visible} if id is not registered yet.
// Returns false, without error, when the id already exists or is empty.
func (s *Schema) AddColumn(id, label string) bool {
	return s.add(Column{ID: id, Label: label, Visible: true})
}

func (s *Schema) add(c Column) bool {
	if c.ID == "" {
		return false
	}
	if _, exists := s.index[c.ID]; exists {
		return false
	}
	s.index[c.ID] = len(s.columns)
	s.columns = append(s.columns, c)
	return true
}

// ToggleVisibility flips the visible flag of a column.
// Returns false if the id is unknown.
func (s *Schema) ToggleVisibility(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.columns[i].Visible = !s.columns[i].Visible
	return true
}

// Get returns the column with the given id.
func (s *Schema) Get(id string) (Column, bool) {
	i, ok := s.index[id]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Has reports whether a column id is registered.
func (s *Schema) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// List returns a copy of all columns in registry order.
func (s *Schema) List() []Column {
	return append([]Column(nil), s.columns...)
}

// Visible returns the visible columns in registry order.
func (s *Schema) Visible() []Column {
	return VisibleColumns(s.columns)
}

// Len returns the number of registered columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// VisibleColumns filters cols down to the visible ones, keeping order.
func VisibleColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}
