package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pressops/sheetfile"
	"github.com/pressops/sheetfile/sheet"
)

func runCLI(args []string, stdin string) (string, string, int) {
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func records(t *testing.T, output string, delimiter rune) [][]string {
	t.Helper()
	reader := csv.NewReader(strings.NewReader(output))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	recs, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return recs
}

func TestRunStdinToStdout(t *testing.T) {
	out, errOut, code := runCLI([]string{"-"}, "name,age\nalice,30\n")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errOut)
	}
	recs := records(t, out, ',')
	if len(recs) != 2 || recs[0][0] != "name" || recs[1][1] != "30" {
		t.Fatalf("unexpected output: %v", recs)
	}
}

func TestRunDelimiterPipe(t *testing.T) {
	in := writeTemp(t, "in.csv", "a|b\n1|2\n")
	out, errOut, code := runCLI([]string{"-d", "|", in}, "")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errOut)
	}
	recs := records(t, out, '|')
	if len(recs) != 2 || recs[1][0] != "1" {
		t.Fatalf("unexpected output: %v", recs)
	}
}

func TestRunCSVToWorkbook(t *testing.T) {
	for _, ext := range []string{"xlsx", "xls"} {
		in := writeTemp(t, "in.csv", "name,count\nalpha,3\nbeta,5\n")
		outPath := filepath.Join(t.TempDir(), "out."+ext)
		_, errOut, code := runCLI([]string{"-outsheet", "Loaded", in, outPath}, "")
		if code != 0 {
			t.Fatalf("%s: exit code %d, stderr: %s", ext, code, errOut)
		}

		wb, err := sheetfile.OpenFile(outPath, nil)
		if err != nil {
			t.Fatalf("%s: open output: %v", ext, err)
		}
		ws, ok := wb.SheetByName("Loaded")
		if !ok {
			t.Fatalf("%s: missing output sheet", ext)
		}
		if ws.Rows() != 3 {
			t.Fatalf("%s: got %d rows, want 3", ext, ws.Rows())
		}
		row, err := ws.Row(1, "")
		if err != nil {
			t.Fatal(err)
		}
		if row[0] != "alpha" || row[1] != "3" {
			t.Fatalf("%s: unexpected row: %v", ext, row)
		}
		wb.Close()
	}
}

func TestRunWorkbookToCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.xlsx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	wb, err := sheetfile.Create(sheet.FormatXLSX, f, nil, &sheet.Options{Headers: true})
	if err != nil {
		t.Fatal(err)
	}
	cols := []*sheet.Column{sheet.NewColumn("name"), sheet.NewColumn("count")}
	if _, err := wb.CreateSheet(cols, [][]any{{"alpha", "3"}}, "Data"); err != nil {
		t.Fatal(err)
	}
	if err := wb.Write(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, errOut, code := runCLI([]string{"-n", "Data", path}, "")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errOut)
	}
	recs := records(t, out, ',')
	if len(recs) != 2 || recs[0][0] != "name" || recs[1][0] != "alpha" {
		t.Fatalf("unexpected output: %v", recs)
	}
}

func TestRunVersion(t *testing.T) {
	out, _, code := runCLI([]string{"-v"}, "")
	if code != 0 || !strings.Contains(out, version) {
		t.Fatalf("code %d, out %q", code, out)
	}
}

func TestRunNoArguments(t *testing.T) {
	_, errOut, code := runCLI(nil, "")
	if code != 2 {
		t.Fatalf("exit code %d, want 2", code)
	}
	if !strings.Contains(errOut, "Usage:") {
		t.Fatalf("usage not printed: %q", errOut)
	}
}

func TestRunConflictingSheetFlags(t *testing.T) {
	_, _, code := runCLI([]string{"-n", "Data", "-s", "2", "somefile.csv"}, "")
	if code != 2 {
		t.Fatalf("exit code %d, want 2", code)
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{",", ',', false},
		{"|", '|', false},
		{" ", ' ', false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{"\t", '\t', false},
		{";", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
