// Package xlsx reads and writes OOXML workbooks by assembling the package
// parts directly: workbook, worksheet, stylesheet and shared-string XML inside
// a zip container. Unlike the legacy binary format, OOXML makes every
// cross-reference explicit (cell -> style index -> number-format ID -> format
// code; cell -> shared-string index), so the adapter keeps per-workbook
// registries that intern strings and deduplicate style records while rows are
// written.
package xlsx

import "encoding/xml"

const (
	nsMain          = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsPkgRels       = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsDocRels       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	relTypeSheet    = nsDocRels + "/worksheet"
	relTypeStyles   = nsDocRels + "/styles"
	relTypeStrings  = nsDocRels + "/sharedStrings"
	relTypeDocument = nsDocRels + "/officeDocument"

	ctWorkbook  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ctWorksheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ctStyles    = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	ctStrings   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	ctRels      = "application/vnd.openxmlformats-package.relationships+xml"
	ctXML       = "application/xml"
)

// The part structs map only the elements this adapter touches; unmapped
// elements in files written by other producers are skipped by encoding/xml.

type xmlTypes struct {
	XMLName   xml.Name      `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []xmlDefault  `xml:"Default"`
	Overrides []xmlOverride `xml:"Override"`
}

type xmlDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlRelationships struct {
	XMLName       xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Relationships []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type xmlWorkbook struct {
	XMLName xml.Name   `xml:"http://schemas.openxmlformats.org/spreadsheetml/2006/main workbook"`
	Sheets  []xmlSheet `xml:"sheets>sheet"`
}

type xmlSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type xmlSST struct {
	XMLName     xml.Name `xml:"http://schemas.openxmlformats.org/spreadsheetml/2006/main sst"`
	Count       int      `xml:"count,attr"`
	UniqueCount int      `xml:"uniqueCount,attr"`
	SI          []xmlSI  `xml:"si"`
}

// xmlSI carries a shared-string entry. Rich-text runs collapse to their
// concatenated text on read; writes always emit a plain t element.
type xmlSI struct {
	T *xmlText `xml:"t"`
	R []xmlRun `xml:"r"`
}

type xmlRun struct {
	T xmlText `xml:"t"`
}

type xmlText struct {
	Space string `xml:"http://www.w3.org/XML/1998/namespace space,attr,omitempty"`
	Value string `xml:",chardata"`
}

func (si *xmlSI) text() string {
	if si.T != nil {
		return si.T.Value
	}
	var s string
	for _, r := range si.R {
		s += r.T.Value
	}
	return s
}

type xmlStyleSheet struct {
	XMLName xml.Name    `xml:"http://schemas.openxmlformats.org/spreadsheetml/2006/main styleSheet"`
	NumFmts *xmlNumFmts `xml:"numFmts"`
	Fonts   *xmlFonts   `xml:"fonts"`
	Fills   *xmlFills   `xml:"fills"`
	Borders *xmlBorders `xml:"borders"`
	CellXfs *xmlCellXfs `xml:"cellXfs"`
}

type xmlNumFmts struct {
	Count   int         `xml:"count,attr"`
	NumFmts []xmlNumFmt `xml:"numFmt"`
}

type xmlNumFmt struct {
	NumFmtID   int    `xml:"numFmtId,attr"`
	FormatCode string `xml:"formatCode,attr"`
}

type xmlFonts struct {
	Count int       `xml:"count,attr"`
	Fonts []xmlFont `xml:"font"`
}

type xmlFont struct {
	Bold   *struct{}  `xml:"b"`
	Sz     xmlValAttr `xml:"sz"`
	Name   xmlValAttr `xml:"name"`
	Family xmlValAttr `xml:"family"`
}

type xmlValAttr struct {
	Val string `xml:"val,attr"`
}

type xmlFills struct {
	Count int       `xml:"count,attr"`
	Fills []xmlFill `xml:"fill"`
}

type xmlFill struct {
	PatternFill xmlPatternFill `xml:"patternFill"`
}

type xmlPatternFill struct {
	PatternType string `xml:"patternType,attr"`
}

type xmlBorders struct {
	Count   int         `xml:"count,attr"`
	Borders []xmlBorder `xml:"border"`
}

type xmlBorder struct {
	Left   struct{} `xml:"left"`
	Right  struct{} `xml:"right"`
	Top    struct{} `xml:"top"`
	Bottom struct{} `xml:"bottom"`
}

type xmlCellXfs struct {
	Count int     `xml:"count,attr"`
	Xfs   []xmlXf `xml:"xf"`
}

type xmlXf struct {
	NumFmtID          int           `xml:"numFmtId,attr"`
	FontID            int           `xml:"fontId,attr"`
	FillID            int           `xml:"fillId,attr"`
	BorderID          int           `xml:"borderId,attr"`
	XfID              int           `xml:"xfId,attr"`
	ApplyNumberFormat int           `xml:"applyNumberFormat,attr,omitempty"`
	ApplyFont         int           `xml:"applyFont,attr,omitempty"`
	ApplyAlignment    int           `xml:"applyAlignment,attr,omitempty"`
	Alignment         *xmlAlignment `xml:"alignment"`
}

type xmlAlignment struct {
	Horizontal string `xml:"horizontal,attr,omitempty"`
	WrapText   bool   `xml:"wrapText,attr,omitempty"`
}

type xmlWorksheet struct {
	XMLName   xml.Name      `xml:"http://schemas.openxmlformats.org/spreadsheetml/2006/main worksheet"`
	Dimension *xmlDimension `xml:"dimension"`
	Cols      *xmlCols      `xml:"cols"`
	SheetData xmlSheetData  `xml:"sheetData"`
}

type xmlDimension struct {
	Ref string `xml:"ref,attr"`
}

type xmlCols struct {
	Cols []xmlCol `xml:"col"`
}

type xmlCol struct {
	Min         int     `xml:"min,attr"`
	Max         int     `xml:"max,attr"`
	Width       float64 `xml:"width,attr"`
	CustomWidth int     `xml:"customWidth,attr,omitempty"`
	Hidden      bool    `xml:"hidden,attr,omitempty"`
}

type xmlSheetData struct {
	Rows []xmlRow `xml:"row"`
}

type xmlRow struct {
	R     int      `xml:"r,attr,omitempty"`
	Cells []xmlC   `xml:"c"`
}

type xmlC struct {
	R  string   `xml:"r,attr,omitempty"`
	S  int      `xml:"s,attr,omitempty"`
	T  string   `xml:"t,attr,omitempty"`
	F  *xmlF    `xml:"f,omitempty"`
	V  string   `xml:"v,omitempty"`
	IS *xmlText `xml:"is>t,omitempty"`
}

type xmlF struct {
	Content string `xml:",chardata"`
	T       string `xml:"t,attr,omitempty"`
	Ref     string `xml:"ref,attr,omitempty"`
	Si      *int   `xml:"si,attr,omitempty"`
}
