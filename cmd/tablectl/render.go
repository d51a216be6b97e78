package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/datatable/internal/core"
)

// renderView prints rows as aligned columns followed by a page footer.
func renderView(w io.Writer, cols []core.Column, view core.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := make([]string, 0, len(cols)+1)
	header = append(header, "ID")
	for _, c := range cols {
		header = append(header, strings.ToUpper(c.Label))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range view.Rows {
		cells := make([]string, 0, len(cols)+1)
		cells = append(cells, r.ID)
		for _, c := range cols {
			cells = append(cells, cellText(r.Fields.Get(c.ID).String()))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "page %d of %d, %d matching rows\n", view.Page+1, view.TotalPages, view.TotalMatched)
	return err
}

func renderColumns(w io.Writer, cols []core.Column) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tVISIBLE")
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", c.ID, c.Label, c.Visible)
	}
	return tw.Flush()
}

// cellText keeps multi-line and tabbed values on one aligned line.
func cellText(s string) string {
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ").Replace(s)
}
