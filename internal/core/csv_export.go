package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// ExportFileName is the download name of a CSV export.
const ExportFileName = "table_export.csv"

// ExportCSV renders the visible grid as CSV text. See WriteCSV.
func ExportCSV(rows []Row, columns []Column) string {
	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail.
	_ = WriteCSV(&buf, rows, columns)
	return buf.String()
}

// WriteCSV writes visible columns in registry order: labels as the header,
// then one record per row with missing values left empty. Fields containing
// separators, quotes or newlines are quoted and quotes are doubled. Records
// end with "\n". Nothing is written when no column is visible.
func WriteCSV(w io.Writer, rows []Row, columns []Column) error {
	visible := VisibleColumns(columns)
	if len(visible) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	record := make([]string, len(visible))

	for i, c := range visible {
		record[i] = c.Label
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		for i, c := range visible {
			record[i] = r.Fields.Get(c.ID).String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
