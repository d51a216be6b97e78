package core

// defaults.go holds the seed state a fresh table starts from and that
// ResetToDefault restores.

var defaultColumns = []Column{
	{ID: "name", Label: "Name", Visible: true},
	{ID: "email", Label: "Email", Visible: true},
	{ID: "age", Label: "Age", Visible: true},
	{ID: "role", Label: "Role", Visible: true},
}

var defaultRows = []Row{
	{ID: "1", Fields: Fields{
		"name":  Text("John Doe"),
		"email": Text("john@example.com"),
		"age":   Number(28),
		"role":  Text("Developer"),
	}},
	{ID: "2", Fields: Fields{
		"name":  Text("Jane Smith"),
		"email": Text("jane@example.com"),
		"age":   Number(32),
		"role":  Text("Designer"),
	}},
}

// DefaultSnapshot returns a fresh deep copy of the seed table.
// Callers may mutate the result freely.
func DefaultSnapshot() Snapshot {
	return Snapshot{Columns: defaultColumns, Rows: defaultRows}.Clone()
}
