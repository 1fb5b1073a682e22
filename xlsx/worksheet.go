package xlsx

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/pressops/sheetfile/sheet"
)

// widthCap bounds the synthesised column width; content wider than the cap
// gets wrapped text instead of an ever-growing column.
const widthCap = 100

// formulaWidth is the nominal width charged for formula cells, whose display
// width is unknowable before calculation.
const formulaWidth = 10

type cellKind int

const (
	cellBlank cellKind = iota
	cellString
	cellNumber
	cellBool
	cellDate
	cellFormula
)

// cell is the in-memory form of one worksheet cell. str carries the shared
// string for string cells, the raw numeric text for numbers and the encoded
// formula text for formula cells.
type cell struct {
	kind  cellKind
	num   float64
	str   string
	b     bool
	style int
	f     *formula
}

// Worksheet is one sheet of an xlsx Workbook. Sheets read from a package are
// materialized when the workbook opens, so a corrupt part fails the open
// rather than reading as an empty sheet.
type Worksheet struct {
	wb       *Workbook
	name     string
	raw      []byte
	parsed   bool
	writable bool
	rows     [][]cell
	ncols    int
	widths   []int
	hidden   []bool
}

// Name returns the worksheet name.
func (ws *Worksheet) Name() string { return ws.name }

// Columns returns the width of the widest row.
func (ws *Worksheet) Columns() int {
	if err := ws.materialize(); err != nil {
		return 0
	}
	return ws.ncols
}

// Rows returns the number of rows.
func (ws *Worksheet) Rows() int {
	if err := ws.materialize(); err != nil {
		return 0
	}
	return len(ws.rows)
}

// Row returns the display strings of the row at index. Date cells format with
// dateLayout; cells holding only a time of day render as a bare clock.
func (ws *Worksheet) Row(index int, dateLayout string) ([]string, error) {
	if err := ws.materialize(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(ws.rows) {
		return nil, fmt.Errorf("xlsx: row %d out of range in sheet %q", index, ws.name)
	}
	if dateLayout == "" {
		dateLayout = ws.wb.opts.DateLayout
	}
	if dateLayout == "" {
		dateLayout = sheet.DefaultDateLayout
	}
	out := make([]string, ws.ncols)
	for i, c := range ws.rows[index] {
		out[i] = ws.render(c, dateLayout)
	}
	return out, nil
}

func (ws *Worksheet) render(c cell, dateLayout string) string {
	switch c.kind {
	case cellString:
		return c.str
	case cellNumber:
		return c.str
	case cellBool:
		return strconv.FormatBool(c.b)
	case cellDate:
		t := sheet.TimeFromSerial(c.num)
		if c.num < 1 {
			return t.Format("15:04:05")
		}
		return t.Format(dateLayout)
	case cellFormula:
		return c.str
	}
	return ""
}

// materialize unmarshals the raw worksheet part into the cell grid. Writable
// sheets are born materialized.
func (ws *Worksheet) materialize() error {
	if ws.parsed {
		return nil
	}
	var x xmlWorksheet
	if err := xml.Unmarshal(ws.raw, &x); err != nil {
		return fmt.Errorf("xlsx: bad worksheet part for %q: %w", ws.name, err)
	}
	rowIdx := -1
	for _, xr := range x.SheetData.Rows {
		if xr.R > 0 {
			rowIdx = xr.R - 1
		} else {
			rowIdx++
		}
		ws.growRows(rowIdx + 1)
		colIdx := -1
		for _, xc := range xr.Cells {
			if xc.R != "" {
				if _, col, err := parseRef(xc.R); err == nil {
					colIdx = col
				} else {
					colIdx++
				}
			} else {
				colIdx++
			}
			c := ws.wb.parseCell(&xc)
			if c.kind == cellBlank {
				continue
			}
			ws.setCell(rowIdx, colIdx, c)
		}
	}
	ws.raw = nil
	ws.parsed = true
	return nil
}

// parseCell dispatches on the cell type attribute: shared string, boolean,
// inline string, formula string, or numeric. Numeric cells styled with a date
// number format become date cells.
func (wb *Workbook) parseCell(xc *xmlC) cell {
	if xc.F != nil {
		f := formulaFromXML(xc.F)
		return cell{kind: cellFormula, str: f.encode(), style: xc.S, f: &f}
	}
	switch xc.T {
	case "s":
		i, err := strconv.Atoi(xc.V)
		if err != nil {
			return cell{kind: cellBlank}
		}
		return cell{kind: cellString, str: wb.sst.get(i), style: xc.S}
	case "b":
		return cell{kind: cellBool, b: xc.V == "1", style: xc.S}
	case "str":
		return cell{kind: cellString, str: xc.V, style: xc.S}
	case "inlineStr":
		if xc.IS == nil {
			return cell{kind: cellBlank}
		}
		return cell{kind: cellString, str: xc.IS.Value, style: xc.S}
	default:
		if xc.V == "" {
			return cell{kind: cellBlank, style: xc.S}
		}
		num, err := strconv.ParseFloat(xc.V, 64)
		if err != nil {
			return cell{kind: cellString, str: xc.V, style: xc.S}
		}
		if wb.styles.isDateXf(xc.S) {
			return cell{kind: cellDate, num: num, style: xc.S}
		}
		return cell{kind: cellNumber, num: num, str: xc.V, style: xc.S}
	}
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

// appendHeader writes the bold header row from the column names.
func (ws *Worksheet) appendHeader(columns []*sheet.Column) {
	row := len(ws.rows)
	ws.growRows(row + 1)
	style := ws.wb.styles.xf(xfKey{fontID: fontBold})
	for i, col := range columns {
		idx := ws.wb.internString(col.Name)
		ws.setCell(row, i, cell{kind: cellString, str: ws.wb.sst.get(idx), style: style})
		ws.trackWidth(i, utf8.RuneCountInString(col.Name))
	}
	ws.noteColumns(columns)
}

// appendRows writes data rows up to the sheet row limit; overflow is dropped,
// counted and logged, never raised.
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
			ws.setCell(r, i, ws.buildCell(v, col))
		}
	}
}

// noteColumns records column visibility for the cols block.
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

// buildCell converts one runtime value into a cell according to the column
// type. Values that fail to parse for their declared type fall back to a
// plain text cell carrying the display string; the fallback is counted and
// logged with the offending value.
func (ws *Worksheet) buildCell(v any, col *sheet.Column) cell {
	colIdx := ws.pendingCol()
	if v == nil {
		if col != nil && col.NullValue != "" {
			return ws.stringCell(col.NullValue, col, colIdx)
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
		return ws.numberCell(f, ws.numberFmt(col), col, colIdx)
	case sheet.TypeBoolean:
		b, ok := boolValue(v)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		ws.trackWidth(colIdx, 5)
		return cell{kind: cellBool, b: b, style: ws.columnStyle(col, 0, false)}
	case sheet.TypeDateTime:
		serial, ok := ws.serialValue(v, col)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		ws.trackWidth(colIdx, len(sheet.DefaultDateLayout))
		fmtID := ws.wb.styles.numFmtID(dateFmtCode)
		return cell{kind: cellDate, num: serial, style: ws.columnStyle(col, fmtID, false)}
	case sheet.TypeSeconds:
		f, ok := secondsValue(v)
		if !ok {
			return ws.fallbackCell(v, col, colIdx)
		}
		ws.trackWidth(colIdx, 8)
		fmtID := ws.wb.styles.numFmtID(builtinNumFmts[46])
		return cell{kind: cellDate, num: f / 86400, style: ws.columnStyle(col, fmtID, false)}
	default:
		if s, ok := v.(string); ok && isFormula(s) {
			return ws.formulaCell(s, col, colIdx)
		}
		return ws.stringCell(col.Value(v, ws.wb.opts.DateLayout), col, colIdx)
	}
}

// untypedCell infers the cell kind from the Go type when no column metadata
// is available.
func (ws *Worksheet) untypedCell(v any, colIdx int) cell {
	switch x := v.(type) {
	case string:
		if isFormula(x) {
			return ws.formulaCell(x, nil, colIdx)
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return ws.numberCell(f, 0, nil, colIdx)
		}
		return ws.stringCell(x, nil, colIdx)
	case bool:
		ws.trackWidth(colIdx, 5)
		return cell{kind: cellBool, b: x}
	case time.Time:
		ws.trackWidth(colIdx, len(sheet.DefaultDateLayout))
		fmtID := ws.wb.styles.numFmtID(dateFmtCode)
		return cell{kind: cellDate, num: sheet.SerialFromTime(x), style: ws.wb.styles.xf(xfKey{numFmtID: fmtID})}
	default:
		if f, ok := numValue(v); ok {
			return ws.numberCell(f, 0, nil, colIdx)
		}
		return ws.stringCell(fmt.Sprint(v), nil, colIdx)
	}
}

// dateFmtCode is the number format written for datetime cells. It mirrors
// DefaultDateLayout so reads and writes agree on the display form.
const dateFmtCode = "yyyy-mm-dd hh:mm:ss"

func (ws *Worksheet) stringCell(s string, col *sheet.Column, colIdx int) cell {
	idx := ws.wb.internString(s)
	stored := ws.wb.sst.get(idx)
	width := utf8.RuneCountInString(stored)
	ws.trackWidth(colIdx, width)
	wrap := width > widthCap
	return cell{kind: cellString, str: stored, style: ws.columnStyle(col, 0, wrap)}
}

func (ws *Worksheet) numberCell(f float64, fmtID int, col *sheet.Column, colIdx int) cell {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	ws.trackWidth(colIdx, len(s))
	return cell{kind: cellNumber, num: f, str: s, style: ws.columnStyle(col, fmtID, false)}
}

func (ws *Worksheet) formulaCell(s string, col *sheet.Column, colIdx int) cell {
	f, err := parseFormula(s)
	if err != nil {
		return ws.fallbackCell(s, col, colIdx)
	}
	ws.trackWidth(colIdx, formulaWidth)
	return cell{kind: cellFormula, str: f.encode(), style: ws.columnStyle(col, 0, false), f: &f}
}

// fallbackCell stores the display string of a value that could not be written
// as its column type.
func (ws *Worksheet) fallbackCell(v any, col *sheet.Column, colIdx int) cell {
	ws.wb.corr.FallbackCells++
	ev := ws.wb.log.Error().Str("sheet", ws.name).Interface("value", v)
	if col != nil {
		ev = ev.Str("column", col.Name)
	}
	ev.Msg("value not writable as column type; stored as text")
	s := fmt.Sprint(v)
	if col != nil {
		s = col.Value(v, ws.wb.opts.DateLayout)
	}
	idx := ws.wb.internString(s)
	return cell{kind: cellString, str: ws.wb.sst.get(idx), style: ws.columnStyle(col, 0, false)}
}

// styleHandle is what columnStyle caches on a Column: the resolved Xf index
// together with the registry that issued it. A column definition reused
// across workbooks re-resolves instead of replaying a stale index.
type styleHandle struct {
	owner *styleRegistry
	index int
}

// columnStyle resolves the style for a data cell, caching the resolved index
// on the column so every row after the first is a map-free lookup. Wrap-forced
// cells bypass the cache; the registry still deduplicates them.
func (ws *Worksheet) columnStyle(col *sheet.Column, fmtID int, wrapForced bool) int {
	if col == nil {
		if wrapForced {
			return ws.wb.styles.xf(xfKey{numFmtID: fmtID, wrap: true})
		}
		return ws.wb.styles.xf(xfKey{numFmtID: fmtID})
	}
	key := xfKey{numFmtID: fmtID, align: col.Align, wrap: col.Wrap || wrapForced}
	if !wrapForced {
		if cached, ok := col.CachedStyle().(styleHandle); ok && cached.owner == ws.wb.styles {
			return cached.index
		}
	}
	idx := ws.wb.styles.xf(key)
	if !wrapForced {
		col.CacheStyle(styleHandle{owner: ws.wb.styles, index: idx})
	}
	return idx
}

// numberFmt resolves the number format of a numeric column: an explicit
// format code wins, otherwise the type default.
func (ws *Worksheet) numberFmt(col *sheet.Column) int {
	code := col.Format
	if code == "" {
		switch col.Type {
		case sheet.TypeInteger:
			code = builtinNumFmts[1]
		case sheet.TypeDecimal:
			code = builtinNumFmts[2]
		default:
			return 0
		}
	}
	return ws.wb.styles.numFmtID(code)
}

// pendingCol is the column index the next setCell call will land in, used for
// width accounting before the cell exists.
func (ws *Worksheet) pendingCol() int {
	if len(ws.rows) == 0 {
		return 0
	}
	return len(ws.rows[len(ws.rows)-1])
}

func (ws *Worksheet) trackWidth(col, width int) {
	for len(ws.widths) <= col {
		ws.widths = append(ws.widths, 0)
	}
	if width > ws.widths[col] {
		ws.widths[col] = width
	}
}

// serialValue converts a datetime value to an Excel serial. Strings parse
// with the column's input format, then its display format, then the workbook
// default layout.
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

// secondsValue reads a duration as raw seconds or as an h:mm:ss clock string.
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

// xml renders the worksheet part: dimension, column widths and the cell grid.
func (ws *Worksheet) xml() *xmlWorksheet {
	x := &xmlWorksheet{Dimension: &xmlDimension{Ref: "A1"}}
	if len(ws.rows) > 0 && ws.ncols > 0 {
		x.Dimension.Ref = rangeRef(0, 0, len(ws.rows)-1, ws.ncols-1)
	}
	x.Cols = ws.colsXML()
	for r, row := range ws.rows {
		xr := xmlRow{R: r + 1}
		for c, cl := range row {
			if xc, ok := ws.cellXML(cl, r, c); ok {
				xr.Cells = append(xr.Cells, xc)
			}
		}
		x.SheetData.Rows = append(x.SheetData.Rows, xr)
	}
	return x
}

func (ws *Worksheet) colsXML() *xmlCols {
	var cols []xmlCol
	for i := 0; i < ws.ncols; i++ {
		w := 0
		if i < len(ws.widths) {
			w = ws.widths[i]
		}
		hidden := i < len(ws.hidden) && ws.hidden[i]
		if w == 0 && !hidden {
			continue
		}
		if w > widthCap {
			w = widthCap
		}
		cols = append(cols, xmlCol{
			Min: i + 1, Max: i + 1,
			Width:       float64(w + 1),
			CustomWidth: 1,
			Hidden:      hidden,
		})
	}
	if cols == nil {
		return nil
	}
	return &xmlCols{Cols: cols}
}

func (ws *Worksheet) cellXML(c cell, row, col int) (xmlC, bool) {
	xc := xmlC{R: cellRef(row, col), S: c.style}
	switch c.kind {
	case cellBlank:
		if c.style == 0 {
			return xc, false
		}
	case cellString:
		xc.T = "s"
		xc.V = strconv.Itoa(ws.wb.sst.add(c.str))
	case cellNumber, cellDate:
		xc.V = strconv.FormatFloat(c.num, 'f', -1, 64)
	case cellBool:
		xc.T = "b"
		if c.b {
			xc.V = "1"
		} else {
			xc.V = "0"
		}
	case cellFormula:
		xc.F = c.f.xml()
	}
	return xc, true
}
