// Package sheet holds the format-agnostic workbook model: format detection,
// the Workbook/Worksheet contracts implemented by the xls and xlsx adapters,
// per-column metadata and value conversion, and the correction report that
// write sessions accumulate.
package sheet

import (
	"path/filepath"
	"strings"
)

// Format identifies a file format recognised by this library. Spreadsheet
// formats can be opened and created; the remaining variants exist only so
// callers can classify uploads without sniffing extensions themselves.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLS
	FormatXLSX
	FormatImage
	FormatArchive
)

// String returns the canonical lower-case name of the format.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLS:
		return "xls"
	case FormatXLSX:
		return "xlsx"
	case FormatImage:
		return "image"
	case FormatArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Spreadsheet reports whether the format is one the workbook adapters can
// open or create.
func (f Format) Spreadsheet() bool {
	return f == FormatCSV || f == FormatXLS || f == FormatXLSX
}

// MaxRows returns the row limit of the format, or 0 when the format has no
// sheet model. Rows beyond the limit are dropped on write, not an error.
func (f Format) MaxRows() int {
	switch f {
	case FormatXLS:
		return 65535
	case FormatXLSX:
		return 200000
	default:
		return 0
	}
}

// DetectFormat maps a filename to its Format by extension. It is a pure
// function; open/create dispatch on the result rather than on suffix checks
// scattered through callers.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xls":
		return FormatXLS
	case ".xlsx":
		return FormatXLSX
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return FormatImage
	case ".zip", ".gz", ".tar", ".rar", ".7z":
		return FormatArchive
	default:
		return FormatUnknown
	}
}
