// Package core provides the tabular state engine behind the data table editor.
//
// This package is the heart of the application, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Schema: the ordered list of columns (id, label, visibility).
//   - RowStore: rows in insertion order, each an id plus a sparse set of values.
//   - View pipeline: [DeriveView] filters, sorts and paginates rows for display.
//   - Table: the Mutation API. Every change goes through a [Table], which
//     serializes writers and publishes a [Snapshot] after each mutation.
//   - CSV transcoding: [ImportCSV] reconciles external headers with the
//     schema, [ExportCSV] writes the visible grid back out.
//
// # Table Lifecycle
//
// A table starts from a saved snapshot or from the built-in seed:
//
//	tbl := core.NewTable(snapshot) // nil snapshot seeds the defaults
//	tbl.Subscribe(func(s core.Snapshot) { persist(s) })
//
//	tbl.AddRow(core.Fields{"name": core.Text("Ada")})
//	view := tbl.View(core.Query{Search: "ada", PageSize: 10})
//
// # Query State
//
// A [Query] is transient session state and is never persisted. Changing the
// search text, sort column, sort order or page size must send the user back
// to the first page; [Query.WithSearch], [Query.ToggleSort] and
// [Query.WithPageSize] enforce that.
//
// # Error Handling
//
// Id collisions and references to unknown ids are absorbed: duplicate column
// adds and unknown ids are no-ops reported through a false return, colliding
// row ids are replaced with fresh ones. CSV import failures never panic; they
// resolve into [ImportResult.Error]. Technical errors are mapped to
// user-friendly messages using [MapError]:
//
//   - CSV001-CSV003: CSV content errors (empty, malformed, encoding)
//   - FILE001-FILE004: File errors (size, missing)
//   - IMP001: Import concurrency
//   - ROW001, COL001-COL003: Unknown rows and columns, duplicate or unusable columns
//   - STO001: Snapshot storage
package core
