// Command sheetconv converts between the supported tabular formats: csv,
// xls and xlsx in, csv, xls and xlsx out. Environment defaults are read from
// the process environment and an optional .env file.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pressops/sheetfile"
	"github.com/pressops/sheetfile/sheet"
	"github.com/pressops/sheetfile/tabfile"
)

var version = "dev"

type options struct {
	sheetID    int
	sheetName  string
	delimiter  rune
	dateFormat string
	headers    bool
	outSheet   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("sheetconv", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := fs.Bool("v", false, "show version")
	fs.BoolVar(showVersion, "version", false, "show version")

	sheetID := fs.Int("s", 0, "sheet number to read")
	fs.IntVar(sheetID, "sheet", 0, "sheet number to read")

	sheetName := fs.String("n", "", "sheet name to read")
	fs.StringVar(sheetName, "sheetname", "", "sheet name to read")

	delimiterFlag := fs.String("d", envDefault("SHEETCONV_DELIMITER", ","), "delimiter for csv input and output")
	fs.StringVar(delimiterFlag, "delimiter", envDefault("SHEETCONV_DELIMITER", ","), "delimiter for csv input and output")

	dateFormat := fs.String("f", envDefault("SHEETCONV_DATE_FORMAT", sheet.DefaultDateLayout), "date format for date cells")
	fs.StringVar(dateFormat, "dateformat", envDefault("SHEETCONV_DATE_FORMAT", sheet.DefaultDateLayout), "date format for date cells")

	headers := fs.Bool("headers", true, "treat the first row as a header row")
	outSheet := fs.String("outsheet", "Sheet1", "worksheet name for workbook output")

	fs.Usage = func() {
		fmt.Fprint(stderr, usageText())
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	logger := newLogger(stderr)

	rest := fs.Args()
	if len(rest) < 1 {
		fs.Usage()
		return 2
	}
	if *sheetName != "" && *sheetID > 0 {
		fmt.Fprintln(stderr, "cannot combine --sheetname with --sheet")
		return 2
	}
	delimiter, err := parseDelimiter(*delimiterFlag)
	if err != nil {
		fmt.Fprintf(stderr, "invalid delimiter: %v\n", err)
		return 2
	}

	opts := options{
		sheetID:    *sheetID,
		sheetName:  *sheetName,
		delimiter:  delimiter,
		dateFormat: *dateFormat,
		headers:    *headers,
		outSheet:   *outSheet,
	}

	inputPath := rest[0]
	outputPath := ""
	if len(rest) > 1 {
		outputPath = rest[1]
	}

	if err := convert(inputPath, outputPath, opts, stdin, stdout, stderr, logger); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(stderr io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if v := os.Getenv("SHEETCONV_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case ",", "|", " ":
		return rune(s[0]), nil
	case "\t", `\t`, "tab":
		return '\t', nil
	}
	return 0, fmt.Errorf("%q is not a supported delimiter", s)
}

// convert reads the input table and writes it in the format the output path
// implies; no output path means csv on stdout.
func convert(inputPath, outputPath string, opts options, stdin io.Reader, stdout, stderr io.Writer, logger zerolog.Logger) error {
	cfg := tabfile.Config{
		Delimiter:  opts.delimiter,
		Headers:    opts.headers,
		Sheet:      opts.sheetName,
		SheetIndex: opts.sheetID,
		DateLayout: opts.dateFormat,
	}

	var table *tabfile.Table
	var err error
	if inputPath == "-" {
		table, err = tabfile.Read(cfg, sheet.FormatCSV, stdin)
	} else {
		table, err = tabfile.ReadFile(cfg, inputPath)
	}
	if err != nil {
		return err
	}

	outFormat := sheet.DetectFormat(outputPath)
	if outputPath == "" || outputPath == "-" {
		return writeCSV(stdout, table, opts.delimiter)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	switch outFormat {
	case sheet.FormatCSV:
		return writeCSV(out, table, opts.delimiter)
	case sheet.FormatXLS, sheet.FormatXLSX:
		return writeWorkbook(out, stderr, outFormat, table, opts, logger)
	default:
		return fmt.Errorf("cannot write format %s (%s)", outFormat, outputPath)
	}
}

func writeCSV(w io.Writer, table *tabfile.Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if len(table.Header) > 0 {
		if err := cw.Write(table.Header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeWorkbook(w io.Writer, stderr io.Writer, format sheet.Format, table *tabfile.Table, opts options, logger zerolog.Logger) error {
	wb, err := sheetfile.Create(format, w, nil, &sheet.Options{
		Headers:    len(table.Header) > 0,
		DateLayout: opts.dateFormat,
		Logger:     &logger,
	})
	if err != nil {
		return err
	}
	defer wb.Close()

	columns := make([]*sheet.Column, table.Columns())
	for i := range columns {
		name := ""
		if i < len(table.Header) {
			name = table.Header[i]
		}
		columns[i] = sheet.NewColumn(name)
	}
	rows := make([][]any, len(table.Rows))
	for i, row := range table.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		rows[i] = vals
	}
	if _, err := wb.CreateSheet(columns, rows, opts.outSheet); err != nil {
		return err
	}
	if err := wb.Write(); err != nil {
		return err
	}
	if corr := wb.Corrections(); corr.Any() {
		fmt.Fprintf(stderr, "corrections: %d rows dropped, %d cells truncated, %d cells sanitised, %d cells written as text\n",
			corr.RowsDropped, corr.TruncatedCells, corr.SanitisedCells, corr.FallbackCells)
	}
	return nil
}

func usageText() string {
	return `Usage:

 sheetconv [-v] [-s SHEETID] [-n SHEETNAME] [-d DELIMITER]
           [-f DATEFORMAT] [-headers] [-outsheet NAME]
           infile [outfile]

positional arguments:

  infile                input file (csv, xls or xlsx), '-' for csv on STDIN
  outfile               output file; the extension picks the format,
                        omitted or '-' writes csv to STDOUT

optional arguments:

  -v, --version         show program's version number and exit
  -s, --sheet SHEETID   sheet number to read from workbook input (default 0)
  -n, --sheetname NAME  sheet name to read from workbook input
  -d, --delimiter D     csv delimiter: ',' '|' ' ' or tab (default ,)
  -f, --dateformat F    date format for date cells
  -headers              treat the first input row as a header row (default true)
  -outsheet NAME        worksheet name for workbook output (default Sheet1)

environment:

  SHEETCONV_DELIMITER, SHEETCONV_DATE_FORMAT, SHEETCONV_LOG_LEVEL
  (a .env file in the working directory is loaded when present)
`
}
