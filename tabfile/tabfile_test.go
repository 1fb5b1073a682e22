package tabfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pressops/sheetfile"
	"github.com/pressops/sheetfile/sheet"
)

func TestReadDelimited(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		input string
		want  Table
	}{
		{
			"comma with header",
			Config{Headers: true},
			"name,age\nalice,30\nbob,25\n",
			Table{Header: []string{"name", "age"}, Rows: [][]string{{"alice", "30"}, {"bob", "25"}}},
		},
		{
			"pipe delimited",
			Config{Delimiter: '|', Headers: true},
			"a|b\n1|2\n",
			Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}},
		},
		{
			"tab delimited",
			Config{Delimiter: '\t'},
			"x\ty\n1\t2\n",
			Table{Rows: [][]string{{"x", "y"}, {"1", "2"}}},
		},
		{
			"quoted field with embedded newline",
			Config{Headers: true},
			"name,notes\nalice,\"line one\nline two\"\n",
			Table{Header: []string{"name", "notes"}, Rows: [][]string{{"alice", "line one\nline two"}}},
		},
		{
			"narrow rows pass",
			Config{Headers: true},
			"a,b,c\n1,2\n",
			Table{Header: []string{"a", "b", "c"}, Rows: [][]string{{"1", "2"}}},
		},
	}
	for _, tt := range tests {
		got, err := Read(tt.cfg, sheet.FormatCSV, strings.NewReader(tt.input))
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if !tablesEqual(got, &tt.want) {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func tablesEqual(a, b *Table) bool {
	if len(a.Header) != len(b.Header) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Header {
		if a.Header[i] != b.Header[i] {
			return false
		}
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != len(b.Rows[i]) {
			return false
		}
		for j := range a.Rows[i] {
			if a.Rows[i][j] != b.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

func TestReadEmptyInput(t *testing.T) {
	_, err := Read(Config{}, sheet.FormatCSV, strings.NewReader(""))
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("got %v, want ErrEmptyInput", err)
	}
}

func TestReadWideRow(t *testing.T) {
	_, err := Read(Config{Headers: true}, sheet.FormatCSV, strings.NewReader("a,b\n1,2,3\n"))
	var we *RowWidthError
	if !errors.As(err, &we) {
		t.Fatalf("got %v, want RowWidthError", err)
	}
	if we.Row != 0 || we.Width != 3 || we.Columns != 2 {
		t.Fatalf("unexpected error detail: %+v", we)
	}
}

func TestReadNonTabularFormat(t *testing.T) {
	if _, err := Read(Config{}, sheet.FormatImage, strings.NewReader("x")); err == nil {
		t.Fatal("expected error for image format")
	}
}

func workbookBytes(t *testing.T, format sheet.Format, name string, rows [][]any) []byte {
	t.Helper()
	var buf bytes.Buffer
	wb, err := sheetfile.Create(format, &buf, nil, &sheet.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	cols := []*sheet.Column{sheet.NewColumn("name"), sheet.NewColumn("count")}
	if _, err := wb.CreateSheet(cols, rows, name); err != nil {
		t.Fatal(err)
	}
	if err := wb.Write(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	rows := [][]any{{"alpha", 3}, {"beta", 5}}
	for _, format := range []sheet.Format{sheet.FormatXLSX, sheet.FormatXLS} {
		data := workbookBytes(t, format, "Data", rows)
		got, err := Read(Config{Headers: true, Sheet: "Data"}, format, bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		want := Table{
			Header: []string{"name", "count"},
			Rows:   [][]string{{"alpha", "3"}, {"beta", "5"}},
		}
		if !tablesEqual(got, &want) {
			t.Fatalf("%s: got %+v, want %+v", format, got, want)
		}
	}
}

func TestReadWorkbookByIndex(t *testing.T) {
	data := workbookBytes(t, sheet.FormatXLSX, "Data", [][]any{{"x", 1}})
	got, err := Read(Config{Headers: true}, sheet.FormatXLSX, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got.Columns() != 2 || len(got.Rows) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestReadWorkbookMissingSheet(t *testing.T) {
	data := workbookBytes(t, sheet.FormatXLSX, "Data", [][]any{{"x", 1}})
	_, err := Read(Config{Sheet: "Absent"}, sheet.FormatXLSX, bytes.NewReader(data))
	var noSheet *sheet.ErrNoSheet
	if !errors.As(err, &noSheet) {
		t.Fatalf("got %v, want ErrNoSheet", err)
	}
	_, err = Read(Config{SheetIndex: 4}, sheet.FormatXLSX, bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for out-of-range sheet index")
	}
}
