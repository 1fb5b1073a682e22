package xls

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pressops/sheetfile/sheet"
)

// MaxRows is the largest number of rows written to one worksheet; the row
// index field of a BIFF8 cell record is 16 bits wide.
const MaxRows = 65535

// widthCap bounds the synthesised column width in characters.
const widthCap = 100

// dateFmtCode is the number format written for datetime cells.
const dateFmtCode = "yyyy-mm-dd hh:mm:ss"

// ErrReadOnly is returned when a sheet mutation is attempted on a workbook
// obtained through Open rather than Create.
var ErrReadOnly = errors.New("xls: workbook is read-only")

// Workbook is the legacy binary implementation of sheet.Workbook.
type Workbook struct {
	opts     *sheet.Options
	log      *zerolog.Logger
	corr     *sheet.Corrections
	out      io.Writer
	sheets   []*Worksheet
	styles   *styleTable
	datemode int
	writable bool
}

// Worksheet is one sheet of a binary workbook.
type Worksheet struct {
	wb     *Workbook
	name   string
	rows   [][]cell
	ncols  int
	widths []int
	hidden []bool
}

// Open parses a workbook from raw xls bytes for reading.
func Open(data []byte, opts *sheet.Options) (*Workbook, error) {
	wb := newWorkbook(opts)
	bk, err := parseFile(data)
	if err != nil {
		return nil, err
	}
	wb.adopt(bk, false)
	return wb, nil
}

// OpenFile opens an xls file from disk for reading.
func OpenFile(name string, opts *sheet.Options) (*Workbook, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Open(data, opts)
}

// Create returns a writable workbook that serialises to out on Write. When
// existing is non-nil its sheets are loaded first so AppendToSheet can
// extend them; their cells are restyled against the fresh style table.
func Create(out io.Writer, existing []byte, opts *sheet.Options) (*Workbook, error) {
	wb := newWorkbook(opts)
	wb.out = out
	wb.writable = true
	if existing != nil {
		bk, err := parseFile(existing)
		if err != nil {
			return nil, err
		}
		wb.adopt(bk, true)
	}
	return wb, nil
}

// parseFile unwraps the compound-document container when present; raw BIFF
// streams without a container are accepted too.
func parseFile(data []byte) (*book, error) {
	if len(data) == 0 {
		return nil, formatErrorf("file is empty")
	}
	mem := data
	if len(data) >= 8 && string(data[:8]) == string(compoundSignature) {
		doc, err := openCompDoc(data)
		if err != nil {
			return nil, err
		}
		mem, err = doc.stream("Workbook", "Book")
		if err != nil {
			return nil, err
		}
	}
	return parseStream(mem)
}

func newWorkbook(opts *sheet.Options) *Workbook {
	if opts == nil {
		opts = &sheet.Options{}
	}
	return &Workbook{
		opts:   opts,
		log:    opts.Log(),
		corr:   &sheet.Corrections{},
		styles: newStyleTable(),
	}
}

// adopt takes over the sheets of a parsed book. In write mode each cell is
// restyled against this workbook's style table, carrying over the bold flag
// and number format its XF held in the source file, and 1904-system date
// serials are shifted to the 1900 system the writer emits. In read mode the
// source date system is kept and applied when rows are rendered.
func (wb *Workbook) adopt(bk *book, restyle bool) {
	if !restyle {
		wb.datemode = bk.datemode
	}
	for i, name := range bk.sheetNames {
		ws := &Worksheet{wb: wb, name: name, rows: bk.cells[i]}
		for r, row := range ws.rows {
			if len(row) > ws.ncols {
				ws.ncols = len(row)
			}
			if !restyle {
				continue
			}
			for c := range row {
				if bk.datemode == 1 && row[c].kind == cellDate && row[c].num >= 1 {
					ws.rows[r][c].num += sheet.Date1904Delta
				}
				ws.rows[r][c].style = wb.restyle(bk, row[c])
				ws.trackWidth(c, cellWidth(row[c]))
			}
		}
		wb.sheets = append(wb.sheets, ws)
	}
}

func (wb *Workbook) restyle(bk *book, cl cell) int {
	key := writerXF{fontIdx: fontRegular}
	if cl.xf >= 0 && cl.xf < len(bk.xfs) {
		src := bk.xfs[cl.xf]
		if bk.fontBold[src.fontIdx] {
			key.fontIdx = fontBold
		}
		if code, ok := bk.formats[src.fmtKey]; ok {
			key.fmtKey = wb.styles.fmtKey(code)
		} else if src.fmtKey < customFmtBase {
			key.fmtKey = src.fmtKey
		}
	}
	return wb.styles.xf(key)
}

func cellWidth(cl cell) int {
	switch cl.kind {
	case cellString:
		return utf8.RuneCountInString(cl.str)
	case cellNumber:
		return len(cl.str)
	case cellDate:
		return len(dateFmtCode)
	case cellBool:
		return 5
	case cellError:
		return len(cl.str)
	}
	return 0
}

// NumSheets returns the number of worksheets.
func (wb *Workbook) NumSheets() int { return len(wb.sheets) }

// SheetNames returns the worksheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, ws := range wb.sheets {
		names[i] = ws.name
	}
	return names
}

// Sheet returns the worksheet at a zero-based index.
func (wb *Workbook) Sheet(index int) (sheet.Worksheet, bool) {
	if index < 0 || index >= len(wb.sheets) {
		return nil, false
	}
	return wb.sheets[index], true
}

// SheetByName returns the worksheet with the given name.
func (wb *Workbook) SheetByName(name string) (sheet.Worksheet, bool) {
	for _, ws := range wb.sheets {
		if ws.name == name {
			return ws, true
		}
	}
	return nil, false
}

// Corrections returns the correction report of this workbook.
func (wb *Workbook) Corrections() *sheet.Corrections { return wb.corr }

// CreateSheet appends a worksheet with the given rows, preceded by a header
// row built from the column names when the workbook was created with Headers.
func (wb *Workbook) CreateSheet(columns []*sheet.Column, rows [][]any, name string) (sheet.Worksheet, error) {
	if !wb.writable {
		return nil, ErrReadOnly
	}
	if _, ok := wb.SheetByName(name); ok {
		return nil, &sheet.ErrSheetExists{Name: name}
	}
	ws := &Worksheet{wb: wb, name: name}
	wb.sheets = append(wb.sheets, ws)
	if wb.opts.Headers {
		ws.appendHeader(columns)
	}
	ws.appendRows(columns, rows)
	return ws, nil
}

// AppendToSheet adds rows to an existing worksheet without re-adding a
// header row.
func (wb *Workbook) AppendToSheet(columns []*sheet.Column, rows [][]any, name string) error {
	if !wb.writable {
		return ErrReadOnly
	}
	for _, ws := range wb.sheets {
		if ws.name == name {
			ws.appendRows(columns, rows)
			return nil
		}
	}
	return &sheet.ErrNoSheet{Name: name}
}

// Write serialises the workbook into its compound-document container.
func (wb *Workbook) Write() error {
	if !wb.writable {
		return ErrReadOnly
	}
	return writeCompDoc(wb.out, serialize(wb.styles, wb.sheets))
}

// Close releases workbook resources. Close does not flush; call Write first
// on created workbooks.
func (wb *Workbook) Close() error {
	wb.sheets = nil
	return nil
}

// Name returns the worksheet name.
func (ws *Worksheet) Name() string { return ws.name }

// Columns returns the width of the widest row.
func (ws *Worksheet) Columns() int { return ws.ncols }

// Rows returns the number of rows.
func (ws *Worksheet) Rows() int { return len(ws.rows) }

// Row returns the display strings of the row at index. Date cells format
// with dateLayout; cells holding only a time of day render as a bare clock.
func (ws *Worksheet) Row(index int, dateLayout string) ([]string, error) {
	if index < 0 || index >= len(ws.rows) {
		return nil, fmt.Errorf("xls: row %d out of range in sheet %q", index, ws.name)
	}
	if dateLayout == "" {
		dateLayout = ws.wb.opts.DateLayout
	}
	if dateLayout == "" {
		dateLayout = sheet.DefaultDateLayout
	}
	out := make([]string, ws.ncols)
	for i, c := range ws.rows[index] {
		out[i] = renderCell(c, dateLayout, ws.wb.datemode)
	}
	return out, nil
}

func renderCell(c cell, dateLayout string, datemode int) string {
	switch c.kind {
	case cellString, cellError:
		return c.str
	case cellNumber:
		return c.str
	case cellBool:
		return strconv.FormatBool(c.b)
	case cellDate:
		t := sheet.TimeFromSerialMode(c.num, datemode)
		if c.num < 1 {
			return t.Format("15:04:05")
		}
		return t.Format(dateLayout)
	}
	return ""
}

func (ws *Worksheet) appendHeader(columns []*sheet.Column) {
	row := len(ws.rows)
	ws.growRows(row + 1)
	style := ws.wb.styles.xf(writerXF{fontIdx: fontBold})
	for i, col := range columns {
		ws.setCell(row, i, cell{kind: cellString, str: col.Name, style: style})
		ws.trackWidth(i, utf8.RuneCountInString(col.Name))
	}
	ws.noteColumns(columns)
}

func (ws *Worksheet) appendRows(columns []*sheet.Column, rows [][]any) {
	ws.noteColumns(columns)
	room := MaxRows - len(ws.rows)
	if room < 0 {
		room = 0
	}
	if len(rows) > room {
		dropped := len(rows) - room
		ws.wb.corr.RowsDropped += dropped
		ws.wb.log.Warn().
			Str("sheet", ws.name).
			Int("dropped", dropped).
			Int("limit", MaxRows).
			Msg("row limit reached; excess rows dropped")
		rows = rows[:room]
	}
	for _, row := range rows {
		r := len(ws.rows)
		ws.growRows(r + 1)
		for i, v := range row {
			var col *sheet.Column
			if i < len(columns) {
				col = columns[i]
			}
			ws.setCell(r, i, ws.buildCell(v, col, i))
		}
	}
}

func (ws *Worksheet) noteColumns(columns []*sheet.Column) {
	for i, col := range columns {
		if col == nil || col.Display {
			continue
		}
		for len(ws.hidden) <= i {
			ws.hidden = append(ws.hidden, false)
		}
		ws.hidden[i] = true
	}
}

// buildCell converts one runtime value into a binary cell. Values that fail
// to parse for their declared type fall back to a text cell; the fallback is
// counted and logged.
func (ws *Worksheet) buildCell(v any, col *sheet.Column, colIdx int) cell {
	if v == nil {
		if col != nil && col.NullValue != "" {
			return ws.textCell(col.NullValue, col, colIdx)
		}
		return cell{kind: cellBlank}
	}
	if col == nil {
		return ws.untypedCell(v, colIdx)
	}
	switch col.Type {
	case sheet.TypeNumber, sheet.TypeInteger, sheet.TypeDecimal:
		f, ok := numValue(v)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		return ws.numericCell(f, ws.numberFmt(col), col, colIdx)
	case sheet.TypeBoolean:
		b, ok := boolValue(v)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		ws.trackWidth(colIdx, 5)
		return cell{kind: cellBool, b: b, style: ws.columnStyle(col, 0)}
	case sheet.TypeDateTime:
		serial, ok := ws.serialValue(v, col)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		ws.trackWidth(colIdx, len(dateFmtCode))
		fmtKey := ws.wb.styles.fmtKey(dateFmtCode)
		return cell{kind: cellDate, num: serial, style: ws.columnStyle(col, fmtKey)}
	case sheet.TypeSeconds:
		f, ok := secondsValue(v)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		ws.trackWidth(colIdx, 8)
		fmtKey := ws.wb.styles.fmtKey("[h]:mm:ss")
		return cell{kind: cellDate, num: f / 86400, style: ws.columnStyle(col, fmtKey)}
	default:
		return ws.textCell(col.Value(v, ws.wb.opts.DateLayout), col, colIdx)
	}
}

func (ws *Worksheet) untypedCell(v any, colIdx int) cell {
	switch x := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return ws.numericCell(f, 0, nil, colIdx)
		}
		return ws.textCell(x, nil, colIdx)
	case bool:
		ws.trackWidth(colIdx, 5)
		return cell{kind: cellBool, b: x, style: ws.wb.styles.xf(writerXF{})}
	case time.Time:
		ws.trackWidth(colIdx, len(dateFmtCode))
		fmtKey := ws.wb.styles.fmtKey(dateFmtCode)
		return cell{kind: cellDate, num: sheet.SerialFromTime(x), style: ws.wb.styles.xf(writerXF{fmtKey: fmtKey})}
	default:
		if f, ok := numValue(v); ok {
			return ws.numericCell(f, 0, nil, colIdx)
		}
		return ws.textCell(fmt.Sprint(v), nil, colIdx)
	}
}

// textCell applies the cell length cap and builds a shared-string cell.
func (ws *Worksheet) textCell(s string, col *sheet.Column, colIdx int) cell {
	if trimmed, cut := sheet.TruncateCell(s); cut {
		s = trimmed
		ws.wb.corr.TruncatedCells++
		ws.wb.log.Warn().Int("limit", sheet.MaxCellChars).Msg("cell text truncated")
	}
	ws.trackWidth(colIdx, utf8.RuneCountInString(s))
	return cell{kind: cellString, str: s, style: ws.columnStyle(col, 0)}
}

func (ws *Worksheet) numericCell(f float64, fmtKey int, col *sheet.Column, colIdx int) cell {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	ws.trackWidth(colIdx, len(s))
	return cell{kind: cellNumber, num: f, str: s, style: ws.columnStyle(col, fmtKey)}
}

func (ws *Worksheet) fallbackCell(v any, col *sheet.Column, colIdx int) cell {
	ws.wb.corr.FallbackCells++
	ws.wb.log.Error().
		Str("sheet", ws.name).
		Str("column", col.Name).
		Interface("value", v).
		Msg("value not writable as column type; stored as text")
	return ws.textCell(col.Value(v, ws.wb.opts.DateLayout), col, colIdx)
}

// styleHandle is what columnStyle caches on a Column: the resolved XF index
// together with the style table that issued it. A column definition reused
// across workbooks re-resolves instead of replaying a stale index.
type styleHandle struct {
	owner *styleTable
	index int
}

// columnStyle resolves the style for a data cell, caching the resolved XF
// index on the column.
func (ws *Worksheet) columnStyle(col *sheet.Column, fmtKey int) int {
	if col == nil {
		return ws.wb.styles.xf(writerXF{fmtKey: fmtKey})
	}
	if cached, ok := col.CachedStyle().(styleHandle); ok && cached.owner == ws.wb.styles {
		return cached.index
	}
	idx := ws.wb.styles.xf(writerXF{fmtKey: fmtKey, align: col.Align, wrap: col.Wrap})
	col.CacheStyle(styleHandle{owner: ws.wb.styles, index: idx})
	return idx
}

func (ws *Worksheet) numberFmt(col *sheet.Column) int {
	code := col.Format
	if code == "" {
		switch col.Type {
		case sheet.TypeInteger:
			code = "0"
		case sheet.TypeDecimal:
			code = "0.00"
		default:
			return 0
		}
	}
	return ws.wb.styles.fmtKey(code)
}

func (ws *Worksheet) serialValue(v any, col *sheet.Column) (float64, bool) {
	switch x := v.(type) {
	case time.Time:
		return sheet.SerialFromTime(x), true
	case string:
		layouts := []string{col.InputFormat, col.Format, ws.wb.opts.DateLayout, sheet.DefaultDateLayout}
		for _, layout := range layouts {
			if layout == "" {
				continue
			}
			if t, err := time.Parse(layout, x); err == nil {
				return sheet.SerialFromTime(t), true
			}
		}
		return 0, false
	default:
		if f, ok := numValue(v); ok {
			return f, true
		}
		return 0, false
	}
}

func numValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func boolValue(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(x)
		return b, err == nil
	}
	return false, false
}

func secondsValue(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		t, err := time.Parse("15:04:05", s)
		if err != nil {
			return 0, false
		}
		return float64(t.Hour()*3600 + t.Minute()*60 + t.Second()), true
	}
	return numValue(v)
}

func (ws *Worksheet) growRows(n int) {
	for len(ws.rows) < n {
		ws.rows = append(ws.rows, nil)
	}
}

func (ws *Worksheet) setCell(row, col int, c cell) {
	for len(ws.rows[row]) <= col {
		ws.rows[row] = append(ws.rows[row], cell{})
	}
	ws.rows[row][col] = c
	if col+1 > ws.ncols {
		ws.ncols = col + 1
	}
}

func (ws *Worksheet) trackWidth(col, width int) {
	for len(ws.widths) <= col {
		ws.widths = append(ws.widths, 0)
	}
	if width > ws.widths[col] {
		ws.widths[col] = width
	}
}
