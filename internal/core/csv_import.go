package core

// csv_import.go turns an external CSV file into rows and columns for the table.
//
// The first record is the header. Headers are reconciled with the existing
// schema by normalized label (trimmed, lowercased):
//
//	existing label "Email"  + header " EMAIL "    -> column "email"
//	no match                + header "Start Date" -> new column "start_date",
//	                                                 label "Start date"
//
// Import never touches the table. The caller decides whether to apply the
// result (see Table.ApplyImport).

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyInput is reported when a file has no data records.
// The message is shown to users as is.
var ErrEmptyInput = errors.New("Empty CSV file") //nolint:staticcheck // user-facing text

// ParseError wraps a CSV syntax error.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "invalid csv: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ImportResult is the outcome of parsing a CSV file.
// On failure Rows and NewColumns are empty and Error holds the message.
type ImportResult struct {
	Rows       []Row    `json:"rows"`
	NewColumns []Column `json:"newColumns"`
	Error      string   `json:"error,omitempty"`

	err error
}

// Err returns the failure behind Error, or nil.
func (r ImportResult) Err() error {
	return r.err
}

// ImportOptions tunes ImportCSV. The zero value imposes no size limit.
type ImportOptions struct {
	MaxBytes int64
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ImportCSV parses r against the existing columns. It never panics and never
// returns an error directly: failures resolve into ImportResult.Error.
func ImportCSV(r io.Reader, existing []Column) ImportResult {
	return ImportCSVWithOptions(r, existing, ImportOptions{})
}

// ImportCSVWithOptions is ImportCSV with a size limit.
func ImportCSVWithOptions(r io.Reader, existing []Column, opts ImportOptions) ImportResult {
	res, err := parseImport(WrapForImport(r, opts.MaxBytes), existing)
	if err != nil {
		return failedImport(err)
	}
	return res
}

// ImportCSVAsync parses r on its own goroutine. The channel yields exactly one
// result and is then closed. Cancelling ctx stops reading and resolves the
// result with the context error.
func ImportCSVAsync(ctx context.Context, r io.Reader, existing []Column, opts ImportOptions) <-chan ImportResult {
	out := make(chan ImportResult, 1)
	cols := append([]Column(nil), existing...)
	go func() {
		defer close(out)
		out <- ImportCSVWithOptions(contextReader{ctx: ctx, reader: r}, cols, opts)
	}()
	return out
}

func failedImport(err error) ImportResult {
	return ImportResult{
		Rows:       []Row{},
		NewColumns: []Column{},
		Error:      err.Error(),
		err:        err,
	}
}

// parseImport does the work of ImportCSV.
func parseImport(r io.Reader, existing []Column) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return ImportResult{}, ErrEmptyInput
	}
	if err != nil {
		return ImportResult{}, readError(err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportResult{}, readError(err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return ImportResult{}, ErrEmptyInput
	}

	mapping, newCols := reconcileHeaders(header, existing)

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if blankRecord(rec) {
			continue
		}
		row := Row{ID: strconv.Itoa(len(rows) + 1), Fields: make(Fields, len(rec))}
		for i, val := range rec {
			if i >= len(mapping) || mapping[i] == "" {
				continue
			}
			row.Fields[mapping[i]] = Text(val)
		}
		rows = append(rows, row)
	}

	return ImportResult{Rows: rows, NewColumns: newCols}, nil
}

func readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Err: err}
	}
	return fmt.Errorf("read csv: %w", err)
}

// reconcileHeaders maps each header position to a column id ("" when the
// header is dropped) and lists the columns that must be created.
func reconcileHeaders(header []string, existing []Column) ([]string, []Column) {
	byLabel := make(map[string]string, len(existing))
	byID := make(map[string]bool, len(existing))
	for _, c := range existing {
		label := normalizeHeader(c.Label)
		if _, ok := byLabel[label]; !ok {
			byLabel[label] = c.ID
		}
		byID[c.ID] = true
	}

	mapping := make([]string, len(header))
	var newCols []Column
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if id, ok := byLabel[key]; ok {
			mapping[i] = id
			continue
		}

		id := whitespaceRun.ReplaceAllString(key, "_")
		if id == ReservedColumnID {
			continue
		}
		mapping[i] = id
		byLabel[key] = id
		if byID[id] {
			continue
		}
		byID[id] = true
		newCols = append(newCols, Column{ID: id, Label: capitalize(key), Visible: true})
	}
	return mapping, newCols
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// capitalize upper-cases the first character only.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
