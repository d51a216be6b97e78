package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXExportFileName is the download name of an Excel export.
const XLSXExportFileName = "table_export.xlsx"

// xlsxSheet names the single worksheet of an export.
const xlsxSheet = "Table"

// WriteXLSX writes the same grid as WriteCSV to an Excel workbook.
// Number values become numeric cells; everything else is a string cell.
// With no visible columns the workbook holds an empty sheet.
func WriteXLSX(w io.Writer, rows []Row, columns []Column) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	visible := VisibleColumns(columns)
	if len(visible) > 0 {
		header := make([]any, len(visible))
		for i, c := range visible {
			header[i] = c.Label
		}
		if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		for n, r := range rows {
			cells := make([]any, len(visible))
			for i, c := range visible {
				v := r.Fields.Get(c.ID)
				if num, ok := v.Float(); ok && v.IsNumber() {
					cells[i] = num
				} else {
					cells[i] = v.String()
				}
			}
			cell, err := excelize.CoordinatesToCellName(1, n+2)
			if err != nil {
				return fmt.Errorf("row %s: %w", r.ID, err)
			}
			if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
				return fmt.Errorf("write row %s: %w", r.ID, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
