package xlsx

import "github.com/pressops/sheetfile/sheet"

// Builtin number formats are identified by fixed IDs below 164; IDs from
// customFmtBase up are workbook-defined. The map covers the builtins Excel
// itself documents; gaps in the ID space are reserved.
const customFmtBase = 164

var builtinNumFmts = map[int]string{
	0:  "general",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00e+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm am/pm",
	19: "h:mm:ss am/pm",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[red](#,##0.00)",
	41: `_(* #,##0_);_(* \(#,##0\);_(* "-"_);_(@_)`,
	42: `_("$"* #,##0_);_("$* \(#,##0\);_("$"* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* \(#,##0.00\);_(* "-"??_);_(@_)`,
	44: `_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0e+0",
	49: "@",
}

const (
	fontRegular = 0
	fontBold    = 1
)

// xfKey is the semantic identity of a cell style record. Two cells wanting
// the same font, number format, alignment and wrap setting share one Xf.
type xfKey struct {
	fontID   int
	numFmtID int
	align    sheet.Alignment
	wrap     bool
}

// styleRegistry owns the deduplicated Xf list and the number-format code
// cache of one workbook. All state is per-instance; nothing leaks across
// workbooks.
type styleRegistry struct {
	xfs     []xfKey
	byKey   map[xfKey]int
	codes   map[int]string // numFmtId -> format code
	ids     map[string]int // format code -> numFmtId
	nextFmt int
}

func newStyleRegistry() *styleRegistry {
	r := &styleRegistry{
		byKey:   make(map[xfKey]int),
		codes:   make(map[int]string, len(builtinNumFmts)),
		ids:     make(map[string]int, len(builtinNumFmts)),
		nextFmt: customFmtBase,
	}
	for id, code := range builtinNumFmts {
		r.codes[id] = code
		r.ids[code] = id
	}
	// Xf 0 is the default style every untyped cell references.
	r.xf(xfKey{fontID: fontRegular, numFmtID: 0})
	return r
}

// load seeds the registry from an existing stylesheet so appended cells keep
// deduplicating against the styles already in the file.
func (r *styleRegistry) load(ss *xmlStyleSheet) {
	if ss.NumFmts != nil {
		for _, nf := range ss.NumFmts.NumFmts {
			r.codes[nf.NumFmtID] = nf.FormatCode
			if _, ok := r.ids[nf.FormatCode]; !ok {
				r.ids[nf.FormatCode] = nf.NumFmtID
			}
			if nf.NumFmtID >= r.nextFmt {
				r.nextFmt = nf.NumFmtID + 1
			}
		}
	}
	if ss.CellXfs == nil {
		return
	}
	// The writer emits exactly two fonts, so foreign font references restyle
	// onto them; only boldness survives.
	bold := make(map[int]bool)
	if ss.Fonts != nil {
		for i, f := range ss.Fonts.Fonts {
			bold[i] = f.Bold != nil
		}
	}
	r.xfs = r.xfs[:0]
	r.byKey = make(map[xfKey]int)
	for _, xf := range ss.CellXfs.Xfs {
		key := xfKey{fontID: fontRegular, numFmtID: xf.NumFmtID}
		if bold[xf.FontID] {
			key.fontID = fontBold
		}
		if xf.Alignment != nil {
			key.wrap = xf.Alignment.WrapText
			switch xf.Alignment.Horizontal {
			case "left":
				key.align = sheet.AlignLeft
			case "center":
				key.align = sheet.AlignCentre
			case "right":
				key.align = sheet.AlignRight
			}
		}
		i := len(r.xfs)
		r.xfs = append(r.xfs, key)
		if _, ok := r.byKey[key]; !ok {
			r.byKey[key] = i
		}
	}
}

// numFmtID resolves a format code to an ID, registering a new custom entry
// (from ID 164) on a true miss.
func (r *styleRegistry) numFmtID(code string) int {
	if code == "" {
		return 0
	}
	if id, ok := r.ids[code]; ok {
		return id
	}
	id := r.nextFmt
	r.nextFmt++
	r.codes[id] = code
	r.ids[code] = id
	return id
}

// code returns the format code behind a numFmtId, empty when unknown.
func (r *styleRegistry) code(id int) string { return r.codes[id] }

// xf resolves a style key to its Xf index, creating a record only on a true
// miss. Identical keys always yield the same index.
func (r *styleRegistry) xf(key xfKey) int {
	if i, ok := r.byKey[key]; ok {
		return i
	}
	i := len(r.xfs)
	r.xfs = append(r.xfs, key)
	r.byKey[key] = i
	return i
}

// isDateXf reports whether the Xf at the given index carries a date or time
// number format, deciding how numeric cells read back.
func (r *styleRegistry) isDateXf(index int) bool {
	if index < 0 || index >= len(r.xfs) {
		return false
	}
	id := r.xfs[index].numFmtID
	if sheet.IsDateFormatID(id) {
		return true
	}
	if id < customFmtBase {
		return false
	}
	return sheet.IsDateFormatCode(r.codes[id])
}

// xml renders the registry as a stylesheet part: two fonts (regular and
// bold), the mandatory none/gray125 fills, one empty border, the custom
// number formats and the deduplicated cellXfs.
func (r *styleRegistry) xml() *xmlStyleSheet {
	ss := &xmlStyleSheet{
		Fonts: &xmlFonts{Count: 2, Fonts: []xmlFont{
			{Sz: xmlValAttr{Val: "11"}, Name: xmlValAttr{Val: "Calibri"}, Family: xmlValAttr{Val: "2"}},
			{Bold: &struct{}{}, Sz: xmlValAttr{Val: "11"}, Name: xmlValAttr{Val: "Calibri"}, Family: xmlValAttr{Val: "2"}},
		}},
		Fills: &xmlFills{Count: 2, Fills: []xmlFill{
			{PatternFill: xmlPatternFill{PatternType: "none"}},
			{PatternFill: xmlPatternFill{PatternType: "gray125"}},
		}},
		Borders: &xmlBorders{Count: 1, Borders: []xmlBorder{{}}},
		CellXfs: &xmlCellXfs{Count: len(r.xfs)},
	}
	var customs []xmlNumFmt
	for id := customFmtBase; id < r.nextFmt; id++ {
		if code, ok := r.codes[id]; ok {
			customs = append(customs, xmlNumFmt{NumFmtID: id, FormatCode: code})
		}
	}
	if len(customs) > 0 {
		ss.NumFmts = &xmlNumFmts{Count: len(customs), NumFmts: customs}
	}
	for _, key := range r.xfs {
		xf := xmlXf{NumFmtID: key.numFmtID, FontID: key.fontID}
		if key.numFmtID != 0 {
			xf.ApplyNumberFormat = 1
		}
		if key.fontID != 0 {
			xf.ApplyFont = 1
		}
		if key.align != sheet.AlignGeneral || key.wrap {
			xf.ApplyAlignment = 1
			xf.Alignment = &xmlAlignment{Horizontal: key.align.Name(), WrapText: key.wrap}
		}
		ss.CellXfs.Xfs = append(ss.CellXfs.Xfs, xf)
	}
	return ss
}
