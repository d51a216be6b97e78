// Package templates holds the templ components for the table page.
//
// Edit the .templ files and run `templ generate`; the *_templ.go files are
// generated and checked in.
package templates

import (
	"strconv"

	"github.com/JonMunkholm/datatable/internal/core"
)

// TableData is everything the table page needs.
type TableData struct {
	Columns    []core.Column // visible, in order
	AllColumns []core.Column
	View       core.View
	Query      core.Query

	// Encode turns a query into a URL query string for links.
	Encode func(core.Query) string
}

func (d TableData) href(q core.Query) string {
	if qs := d.Encode(q); qs != "" {
		return "/?" + qs
	}
	return "/"
}

// sortHref links a column header to the toggled sort.
func (d TableData) sortHref(columnID string) string {
	return d.href(d.Query.ToggleSort(columnID))
}

func (d TableData) pageHref(page int) string {
	return d.href(d.Query.WithPage(page))
}

// sortIndicator marks the active sort column and its direction.
func (d TableData) sortIndicator(columnID string) string {
	switch {
	case d.Query.SortColumn != columnID:
		return ""
	case d.Query.SortOrder == core.SortDesc:
		return " ▼"
	default:
		return " ▲"
	}
}

func (d TableData) hasPrev() bool {
	return d.View.Page > 0
}

func (d TableData) hasNext() bool {
	return d.View.Page < d.View.TotalPages-1
}

// pageLabel shows the 1-based page position.
func pageLabel(v core.View) string {
	page := strconv.Itoa(v.Page + 1)
	if v.Page >= v.TotalPages {
		page = "-"
	}
	return "Page " + page + " of " + strconv.Itoa(v.TotalPages) + " (" + strconv.Itoa(v.TotalMatched) + " rows)"
}
