package core

// view.go derives the visible page of a table from its rows and the current
// query. The pipeline is filter, then sort, then paginate:
//
//   - Filter keeps rows where any field value contains the search text
//     (case-insensitive substring). An empty search keeps every row.
//   - Sort orders by one column. Two numeric values compare as numbers,
//     anything else compares as lowercased text with a locale-aware collator.
//   - Paginate slices [page*pageSize, page*pageSize+pageSize).
//
// DeriveView never mutates its inputs.

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder is the direction of the active sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder reads "asc"/"desc" case-insensitively, defaulting to asc.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// PageSizes are the page sizes offered to the user.
var PageSizes = []int{5, 10, 25, 50}

// DefaultPageSize is the page size of a new session.
const DefaultPageSize = 10

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// Query is the transient view state of one session. It is never persisted.
//
// Page is 0-based. Any change to Search, SortColumn, SortOrder or PageSize
// must reset Page to 0; the With* and ToggleSort helpers do that.
type Query struct {
	Search     string
	SortColumn string
	SortOrder  SortOrder
	Page       int
	PageSize   int
}

// NewQuery returns the initial query: no search, no sort, first page.
func NewQuery() Query {
	return Query{SortOrder: SortAsc, PageSize: DefaultPageSize}
}

// WithSearch sets the search text and returns to the first page.
func (q Query) WithSearch(search string) Query {
	q.Search = search
	q.Page = 0
	return q
}

// WithPageSize sets the page size and returns to the first page.
func (q Query) WithPageSize(size int) Query {
	q.PageSize = size
	q.Page = 0
	return q
}

// WithPage moves to another page. Other state is unchanged.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q
}

// ToggleSort sorts by column. Selecting the current sort column flips the
// direction; selecting another column sorts by it ascending.
func (q Query) ToggleSort(column string) Query {
	if q.SortColumn == column {
		if q.SortOrder == SortDesc {
			q.SortOrder = SortAsc
		} else {
			q.SortOrder = SortDesc
		}
	} else {
		q.SortColumn = column
		q.SortOrder = SortAsc
	}
	q.Page = 0
	return q
}

// Normalize clamps a query into a usable shape: negative pages become 0,
// non-positive page sizes become DefaultPageSize, unknown orders become asc.
func (q Query) Normalize() Query {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.SortOrder != SortDesc {
		q.SortOrder = SortAsc
	}
	return q
}

// View is one rendered page of the table.
type View struct {
	Rows         []Row
	TotalMatched int // rows surviving the filter, across all pages
	Page         int
	PageSize     int
	TotalPages   int // at least 1
}

// DeriveView filters, sorts and paginates rows for display.
//
// The filter matches every field value a row carries, hidden columns included.
// The row id is not a field value and is never searched.
// A SortColumn missing from columns is ignored and rows keep insertion order.
// A page beyond the last one yields an empty Rows slice.
func DeriveView(rows []Row, columns []Column, q Query) View {
	q = q.Normalize()

	matched := filterRows(rows, q.Search)
	if q.SortColumn != "" && hasColumn(columns, q.SortColumn) {
		sortRows(matched, q.SortColumn, q.SortOrder)
	}

	v := View{
		Rows:         []Row{},
		TotalMatched: len(matched),
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   max(1, (len(matched)+q.PageSize-1)/q.PageSize),
	}

	// Compared before multiplying so huge page numbers cannot overflow.
	if len(matched) == 0 || q.Page > (len(matched)-1)/q.PageSize {
		return v
	}
	start := q.Page * q.PageSize
	end := min(start+q.PageSize, len(matched))
	for _, r := range matched[start:end] {
		v.Rows = append(v.Rows, r.Clone())
	}
	return v
}

// filterRows returns the rows matching search. The returned slice is new;
// its elements share Fields with the input and must not be mutated.
func filterRows(rows []Row, search string) []Row {
	needle := strings.ToLower(search)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if needle == "" || rowMatches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func hasColumn(cols []Column, id string) bool {
	return slices.ContainsFunc(cols, func(c Column) bool { return c.ID == id })
}

func rowMatches(r Row, needle string) bool {
	for _, v := range r.Fields {
		if strings.Contains(strings.ToLower(v.String()), needle) {
			return true
		}
	}
	return false
}

// sortRows stably sorts rows in place by one column.
func sortRows(rows []Row, column string, order SortOrder) {
	// Collators keep internal buffers and are not safe for concurrent use.
	col := collate.New(language.Und)
	slices.SortStableFunc(rows, func(a, b Row) int {
		c := compareValues(col, a.Fields.Get(column), b.Fields.Get(column))
		if order == SortDesc {
			return -c
		}
		return c
	})
}

// compareValues orders two field values. Numbers compare numerically when
// both sides are numeric; otherwise lowercased text is collated, so a number
// paired with text compares as text. A column mixing numbers with text that
// is not numeric therefore has no total order ("2" < "10" < "1a" < "2"), and
// the stable sort's result for such a column depends on the input order.
// All-numeric and all-text columns are unaffected.
func compareValues(col *collate.Collator, a, b Value) int {
	af, aNum := a.Float()
	bf, bNum := b.Float()
	if aNum && bNum {
		return cmp.Compare(af, bf)
	}
	return col.CompareString(strings.ToLower(a.String()), strings.ToLower(b.String()))
}
