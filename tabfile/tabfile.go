// Package tabfile reads delimited text and workbook files into one uniform
// header-plus-rows table, so ingest code never branches on what kind of file
// an upload turned out to be.
package tabfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pressops/sheetfile"
	"github.com/pressops/sheetfile/sheet"
)

// Config describes one read. The zero value reads comma-delimited text with
// a header row from the first worksheet. A Config is immutable input to
// Read; nothing in it is updated during parsing.
type Config struct {
	// Delimiter separates fields in text input. Zero means comma; tab,
	// pipe and space are the other supported separators.
	Delimiter rune

	// Headers marks the first row as a header row. When false the header
	// in the returned table is empty and every row is a data row.
	Headers bool

	// Sheet selects a worksheet by name in workbook input. Empty selects
	// by SheetIndex.
	Sheet string

	// SheetIndex selects a worksheet by zero-based index when Sheet is
	// empty.
	SheetIndex int

	// DateLayout formats date cells read from workbook input.
	DateLayout string
}

// Table is the uniform result of a read: the header row (empty without
// Headers) and the data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Columns returns the table width: the header width, or the width of the
// first row when there is no header.
func (t *Table) Columns() int {
	if len(t.Header) > 0 {
		return len(t.Header)
	}
	if len(t.Rows) > 0 {
		return len(t.Rows[0])
	}
	return 0
}

// ErrEmptyInput is returned when the input holds no rows at all.
var ErrEmptyInput = errors.New("tabfile: input contains no rows")

// RowWidthError is returned when a data row is wider than the header row.
type RowWidthError struct {
	Row     int // zero-based data row index
	Width   int
	Columns int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("tabfile: row %d has %d fields, wider than the %d-column header",
		e.Row, e.Width, e.Columns)
}

// ReadFile reads a file from disk, detecting the format from the file name.
func ReadFile(cfg Config, name string) (*Table, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(cfg, sheet.DetectFormat(name), f)
}

// Read parses r as the given format. CSV input honours the configured
// delimiter and quoted multi-line fields; workbook input is read through the
// matching adapter and the configured worksheet.
func Read(cfg Config, format sheet.Format, r io.Reader) (*Table, error) {
	switch format {
	case sheet.FormatCSV, sheet.FormatUnknown:
		return readDelimited(cfg, r)
	case sheet.FormatXLS, sheet.FormatXLSX:
		return readWorkbook(cfg, format, r)
	default:
		return nil, fmt.Errorf("tabfile: format %s is not tabular", format)
	}
}

func readDelimited(cfg Config, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	if cfg.Delimiter != 0 {
		cr.Comma = cfg.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabfile: reading delimited input: %w", err)
	}
	return buildTable(cfg, rows)
}

func readWorkbook(cfg Config, format sheet.Format, r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wb, err := sheetfile.Open(format, data, &sheet.Options{DateLayout: cfg.DateLayout})
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	var ws sheet.Worksheet
	if cfg.Sheet != "" {
		found, ok := wb.SheetByName(cfg.Sheet)
		if !ok {
			return nil, &sheet.ErrNoSheet{Name: cfg.Sheet}
		}
		ws = found
	} else {
		found, ok := wb.Sheet(cfg.SheetIndex)
		if !ok {
			return nil, fmt.Errorf("tabfile: workbook has no sheet at index %d", cfg.SheetIndex)
		}
		ws = found
	}

	rows := make([][]string, 0, ws.Rows())
	for i := 0; i < ws.Rows(); i++ {
		row, err := ws.Row(i, cfg.DateLayout)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return buildTable(cfg, rows)
}

// buildTable splits the header off and enforces that no data row is wider
// than it. Narrower rows pass through; trailing cells simply stay empty for
// the caller.
func buildTable(cfg Config, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	t := &Table{}
	if cfg.Headers {
		t.Header = rows[0]
		rows = rows[1:]
		for i, row := range rows {
			if len(row) > len(t.Header) {
				return nil, &RowWidthError{Row: i, Width: len(row), Columns: len(t.Header)}
			}
		}
	}
	t.Rows = rows
	return t, nil
}
