// Package sheetfile opens and creates spreadsheet workbooks behind one
// format-agnostic facade. The sheet package carries the shared vocabulary
// (worksheets, columns, corrections); the xls and xlsx packages implement it
// for the legacy binary format and for OOXML.
package sheetfile

import (
	"fmt"
	"io"

	"github.com/pressops/sheetfile/sheet"
	"github.com/pressops/sheetfile/xls"
	"github.com/pressops/sheetfile/xlsx"
)

// Open parses workbook bytes in the given format for reading.
func Open(format sheet.Format, data []byte, opts *sheet.Options) (sheet.Workbook, error) {
	switch format {
	case sheet.FormatXLS:
		return xls.Open(data, opts)
	case sheet.FormatXLSX:
		return xlsx.Open(data, opts)
	default:
		return nil, fmt.Errorf("sheetfile: no workbook reader for format %s", format)
	}
}

// OpenFile opens a workbook from disk, detecting the format from the file
// name.
func OpenFile(name string, opts *sheet.Options) (sheet.Workbook, error) {
	switch sheet.DetectFormat(name) {
	case sheet.FormatXLS:
		return xls.OpenFile(name, opts)
	case sheet.FormatXLSX:
		return xlsx.OpenFile(name, opts)
	default:
		return nil, fmt.Errorf("sheetfile: %s is not a spreadsheet workbook", name)
	}
}

// Create returns a writable workbook in the given format that serialises to
// out on Write. When existing is non-nil its content is loaded first so new
// sheets and rows extend it.
func Create(format sheet.Format, out io.Writer, existing []byte, opts *sheet.Options) (sheet.Workbook, error) {
	switch format {
	case sheet.FormatXLS:
		return xls.Create(out, existing, opts)
	case sheet.FormatXLSX:
		return xlsx.Create(out, existing, opts)
	default:
		return nil, fmt.Errorf("sheetfile: no workbook writer for format %s", format)
	}
}
