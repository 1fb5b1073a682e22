package sheet

import (
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxCellChars is the longest text a single cell may carry. Longer values are
// truncated on write and the truncation is recorded, not raised.
const MaxCellChars = 32767

// TruncateCell caps s at MaxCellChars characters. The cut lands on a rune
// boundary, never inside a multibyte sequence.
func TruncateCell(s string) (string, bool) {
	if utf8.RuneCountInString(s) <= MaxCellChars {
		return s, false
	}
	n := 0
	for i := range s {
		if n == MaxCellChars {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// Workbook is the format-agnostic facade over one spreadsheet file. A
// workbook is either opened from existing bytes (read mode) or created
// against an output stream (write/append mode).
//
// Sheet names are unique within a workbook; creating a sheet with a name that
// already exists replaces nothing and returns an error.
type Workbook interface {
	// NumSheets returns the number of worksheets in the workbook.
	NumSheets() int

	// SheetNames returns the worksheet names in workbook order.
	SheetNames() []string

	// Sheet returns the worksheet at the given zero-based index.
	Sheet(index int) (Worksheet, bool)

	// SheetByName returns the worksheet with the given name.
	SheetByName(name string) (Worksheet, bool)

	// CreateSheet appends a new worksheet holding the given rows. When the
	// workbook was created with Headers set, the column names form the first
	// row. Rows beyond the format's MaxRows are dropped and recorded.
	CreateSheet(columns []*Column, rows [][]any, name string) (Worksheet, error)

	// AppendToSheet adds rows to an existing worksheet without re-adding a
	// header row.
	AppendToSheet(columns []*Column, rows [][]any, name string) error

	// Write serialises the workbook to its output stream. Valid only for
	// workbooks obtained through Create.
	Write() error

	// Close releases underlying resources. Close does not flush; call Write
	// first when creating.
	Close() error

	// Corrections reports the silent corrections applied so far (dropped
	// rows, truncated or sanitised cells, per-cell fallbacks).
	Corrections() *Corrections
}

// Worksheet is the per-sheet row accessor. Row values are always returned as
// display strings: numeric, boolean and date cells are converted, using the
// supplied date layout for date cells.
type Worksheet interface {
	Name() string

	// Columns returns the number of columns, derived from the underlying
	// data on first access and cached.
	Columns() int

	// Rows returns the number of rows, derived lazily like Columns.
	Rows() int

	// Row returns the display strings of the row at the given zero-based
	// index. dateLayout is a time layout string applied to date cells.
	Row(index int, dateLayout string) ([]string, error)
}

// Options configures a workbook open or create call. The zero value is
// usable: headers off, default date layout, global logger.
type Options struct {
	// Headers causes CreateSheet to emit a bold header row built from the
	// column names before the data rows.
	Headers bool

	// DateLayout is the default layout for date cells when the caller does
	// not supply one per row access.
	DateLayout string

	// Logger receives correction and fallback messages. When nil the
	// package-global zerolog logger is used.
	Logger *zerolog.Logger
}

// Log returns the configured logger or the global one.
func (o *Options) Log() *zerolog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return &log.Logger
}

// DefaultDateLayout is used when neither the options nor the row access
// supply a layout.
const DefaultDateLayout = "2006-01-02 15:04:05"

// ErrSheetExists is returned by CreateSheet when the name is already taken.
type ErrSheetExists struct{ Name string }

func (e *ErrSheetExists) Error() string {
	return fmt.Sprintf("sheet: worksheet %q already exists", e.Name)
}

// ErrNoSheet is returned when a named worksheet cannot be found.
type ErrNoSheet struct{ Name string }

func (e *ErrNoSheet) Error() string {
	return fmt.Sprintf("sheet: no worksheet named %q", e.Name)
}
