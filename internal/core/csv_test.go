package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xuri/excelize/v2"
)

func TestImportCSV_ExtraColumn(t *testing.T) {
	input := "Name,Email,Extra\nAda,ada@example.com,yes\n"
	res := ImportCSV(strings.NewReader(input), DefaultSnapshot().Columns)

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}

	wantCols := []Column{{ID: "extra", Label: "Extra", Visible: true}}
	if diff := cmp.Diff(wantCols, res.NewColumns); diff != "" {
		t.Errorf("new columns (-want +got):\n%s", diff)
	}

	wantRows := []Row{{ID: "1", Fields: Fields{
		"name":  Text("Ada"),
		"email": Text("ada@example.com"),
		"extra": Text("yes"),
	}}}
	if diff := cmp.Diff(wantRows, res.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestImportCSV_Empty(t *testing.T) {
	for name, input := range map[string]string{
		"header only":    "Name,Email\n",
		"no input":       "",
		"BOM and header": "\ufeffName,Email",
	} {
		t.Run(name, func(t *testing.T) {
			res := ImportCSV(strings.NewReader(input), DefaultSnapshot().Columns)

			want := ImportResult{Rows: []Row{}, NewColumns: []Column{}, Error: "Empty CSV file"}
			if diff := cmp.Diff(want, res, cmpopts.IgnoreUnexported(ImportResult{})); diff != "" {
				t.Errorf("result (-want +got):\n%s", diff)
			}
			if !errors.Is(res.Err(), ErrEmptyInput) {
				t.Errorf("Err() = %v, want ErrEmptyInput", res.Err())
			}
		})
	}
}

func TestImportCSV_HeaderReconciliation(t *testing.T) {
	existing := []Column{
		{ID: "name", Label: "Name", Visible: true},
		{ID: "email", Label: "E-mail", Visible: false},
		{ID: "start_date", Label: "Joined", Visible: true},
	}
	input := " NAME ,e-mail,Start Date,start date,,id,Cost  Center\n" +
		"Ada,ada@x.io,2024-01-02,dup,blank,7,CC-1\n"

	res := ImportCSV(strings.NewReader(input), existing)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}

	// "start date" maps onto the existing start_date id without redefining it.
	wantCols := []Column{{ID: "cost_center", Label: "Cost  center", Visible: true}}
	if diff := cmp.Diff(wantCols, res.NewColumns); diff != "" {
		t.Errorf("new columns (-want +got):\n%s", diff)
	}

	want := Fields{
		"name":        Text("Ada"),
		"email":       Text("ada@x.io"),
		"start_date":  Text("dup"),
		"cost_center": Text("CC-1"),
	}
	if diff := cmp.Diff(want, res.Rows[0].Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}

func TestImportCSV_SkipsBlankRows(t *testing.T) {
	input := "Name,Role\nAda,Dev\n , \n\nBo,Ops\n,\n"
	res := ImportCSV(strings.NewReader(input), DefaultSnapshot().Columns)

	if diff := cmp.Diff([]string{"1", "2"}, rowIDs(res.Rows)); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if got := res.Rows[1].Fields.Get("name").String(); got != "Bo" {
		t.Errorf("second row name = %q, want Bo", got)
	}
}

func TestImportCSV_RaggedRecords(t *testing.T) {
	input := "Name,Role\nAda\nBo,Ops,extra\n"
	res := ImportCSV(strings.NewReader(input), DefaultSnapshot().Columns)

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if _, ok := res.Rows[0].Fields["role"]; ok {
		t.Error("short record should leave role absent")
	}
	if got := len(res.Rows[1].Fields); got != 2 {
		t.Errorf("long record fields = %d, want 2", got)
	}
}

func TestImportCSV_ParseError(t *testing.T) {
	res := ImportCSV(strings.NewReader("Name\n\"unterminated\n"), nil)

	if res.Error == "" {
		t.Fatal("expected an error")
	}
	var pe *ParseError
	if !errors.As(res.Err(), &pe) {
		t.Fatalf("Err() = %T, want *ParseError", res.Err())
	}
	if len(res.Rows) != 0 || len(res.NewColumns) != 0 {
		t.Error("failed import must not return rows or columns")
	}
	if !strings.Contains(res.Error, pe.Err.Error()) {
		t.Errorf("Error %q does not carry the parser message", res.Error)
	}
}

func TestImportCSV_SizeLimit(t *testing.T) {
	input := "Name\n" + strings.Repeat("Ada\n", 100)
	res := ImportCSVWithOptions(strings.NewReader(input), nil, ImportOptions{MaxBytes: 64})

	if !errors.Is(res.Err(), ErrFileTooLarge) {
		t.Errorf("Err() = %v, want ErrFileTooLarge", res.Err())
	}
}

func TestImportCSVAsync(t *testing.T) {
	ch := ImportCSVAsync(context.Background(), strings.NewReader("Name\nAda\n"), DefaultSnapshot().Columns, ImportOptions{})

	select {
	case res := <-ch:
		if res.Error != "" || len(res.Rows) != 1 {
			t.Errorf("unexpected result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("async import did not resolve")
	}

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after the result")
	}
}

func TestImportCSVAsync_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := <-ImportCSVAsync(ctx, strings.NewReader("Name\nAda\n"), nil, ImportOptions{})
	if !errors.Is(res.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", res.Err())
	}
}

func TestExportCSV(t *testing.T) {
	cols := []Column{
		{ID: "name", Label: "Name", Visible: true},
		{ID: "secret", Label: "Secret", Visible: false},
		{ID: "note", Label: "Note, long", Visible: true},
		{ID: "age", Label: "Age", Visible: true},
	}
	rows := []Row{
		{ID: "1", Fields: Fields{"name": Text("Ada"), "secret": Text("x"), "note": Text(`say "hi"`), "age": Number(36)}},
		{ID: "2", Fields: Fields{"name": Text("Bo\nLine")}},
	}

	got := ExportCSV(rows, cols)
	want := "Name,\"Note, long\",Age\n" +
		"Ada,\"say \"\"hi\"\"\",36\n" +
		"\"Bo\nLine\",,\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExportCSV_NoVisibleColumns(t *testing.T) {
	cols := []Column{{ID: "name", Label: "Name", Visible: false}}
	if got := ExportCSV(DefaultSnapshot().Rows, cols); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	snap := DefaultSnapshot()
	snap.Columns = append(snap.Columns, Column{ID: "notes", Label: "Notes", Visible: true})
	snap.Rows = append(snap.Rows,
		Row{ID: "3", Fields: Fields{"name": Text("Quote \"Q\" Person"), "notes": Text("a,b\nc"), "age": Number(4.5)}},
		Row{ID: "4", Fields: Fields{"name": Text("  padded  "), "role": Text("x")}},
	)
	snap.Columns[1].Visible = false // email

	text := ExportCSV(snap.Rows, snap.Columns)
	res := ImportCSV(strings.NewReader(text), snap.Columns)
	if res.Error != "" {
		t.Fatalf("import failed: %s", res.Error)
	}
	if len(res.NewColumns) != 0 {
		t.Errorf("round trip created columns: %+v", res.NewColumns)
	}
	if len(res.Rows) != len(snap.Rows) {
		t.Fatalf("rows = %d, want %d", len(res.Rows), len(snap.Rows))
	}

	for i, want := range snap.Rows {
		for _, c := range VisibleColumns(snap.Columns) {
			w := want.Fields.Get(c.ID).String()
			g := res.Rows[i].Fields.Get(c.ID).String()
			if w != g {
				t.Errorf("row %d column %s: got %q, want %q", i, c.ID, g, w)
			}
		}
		if _, ok := res.Rows[i].Fields["email"]; ok {
			t.Errorf("row %d: hidden column was exported", i)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, DefaultSnapshot().Rows, DefaultSnapshot().Columns); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	want := [][]string{
		{"Name", "Email", "Age", "Role"},
		{"John Doe", "john@example.com", "28", "Developer"},
		{"Jane Smith", "jane@example.com", "32", "Designer"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("sheet (-want +got):\n%s", diff)
	}

	typ, err := f.GetCellType(xlsxSheet, "C2")
	if err != nil {
		t.Fatalf("cell type: %v", err)
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		t.Errorf("age cell type = %v, want number", typ)
	}
}
