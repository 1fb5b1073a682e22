package sheet

import "testing"

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"report.csv", FormatCSV},
		{"report.txt", FormatCSV},
		{"report.tsv", FormatCSV},
		{"legacy.xls", FormatXLS},
		{"modern.xlsx", FormatXLSX},
		{"UPPER.XLSX", FormatXLSX},
		{"photo.jpg", FormatImage},
		{"scan.tiff", FormatImage},
		{"bundle.zip", FormatArchive},
		{"noext", FormatUnknown},
		{"trailing.xlsx.bak", FormatUnknown},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.filename); got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestFormatSpreadsheet(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatXLS, FormatXLSX} {
		if !f.Spreadsheet() {
			t.Errorf("%v.Spreadsheet() = false", f)
		}
	}
	for _, f := range []Format{FormatUnknown, FormatImage, FormatArchive} {
		if f.Spreadsheet() {
			t.Errorf("%v.Spreadsheet() = true", f)
		}
	}
}

func TestFormatMaxRows(t *testing.T) {
	if got := FormatXLS.MaxRows(); got != 65535 {
		t.Errorf("xls MaxRows = %d", got)
	}
	if got := FormatXLSX.MaxRows(); got != 200000 {
		t.Errorf("xlsx MaxRows = %d", got)
	}
	if got := FormatCSV.MaxRows(); got != 0 {
		t.Errorf("csv MaxRows = %d", got)
	}
}
