package xlsx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pressops/sheetfile/sheet"
)

// MaxRows is the largest number of rows written to one worksheet. Rows
// beyond the limit are dropped and recorded, not raised.
const MaxRows = 200000

// ErrReadOnly is returned when a sheet mutation is attempted on a workbook
// obtained through Open rather than Create.
var ErrReadOnly = errors.New("xlsx: workbook is read-only")

// Workbook is the OOXML implementation of sheet.Workbook. All caches -
// shared strings, style records, number-format codes - are owned by the
// workbook instance and live exactly as long as it does.
type Workbook struct {
	opts     *sheet.Options
	log      *zerolog.Logger
	corr     *sheet.Corrections
	out      io.Writer
	sheets   []*Worksheet
	sst      *stringTable
	styles   *styleRegistry
	writable bool
}

// Open parses a workbook from raw xlsx bytes for reading. Every worksheet
// part is unmarshalled here; a corrupt part is a structural error, not an
// empty sheet.
func Open(data []byte, opts *sheet.Options) (*Workbook, error) {
	wb := newWorkbook(opts)
	if err := wb.parse(data); err != nil {
		return nil, err
	}
	for _, ws := range wb.sheets {
		if err := ws.materialize(); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

// OpenFile opens an xlsx file from disk for reading.
func OpenFile(name string, opts *sheet.Options) (*Workbook, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return Open(data, opts)
}

// Create returns a writable workbook that serialises to out on Write. When
// existing is non-nil its sheets, shared strings and styles are loaded first,
// so new cells deduplicate against the content already in the file and
// AppendToSheet can extend its sheets.
func Create(out io.Writer, existing []byte, opts *sheet.Options) (*Workbook, error) {
	wb := newWorkbook(opts)
	wb.out = out
	wb.writable = true
	if existing != nil {
		if err := wb.parse(existing); err != nil {
			return nil, err
		}
		for _, ws := range wb.sheets {
			if err := ws.materialize(); err != nil {
				return nil, err
			}
		}
	}
	return wb, nil
}

func newWorkbook(opts *sheet.Options) *Workbook {
	if opts == nil {
		opts = &sheet.Options{}
	}
	return &Workbook{
		opts:   opts,
		log:    opts.Log(),
		corr:   &sheet.Corrections{},
		sst:    newStringTable(),
		styles: newStyleRegistry(),
	}
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
	ws := &Worksheet{wb: wb, name: name, parsed: true, writable: true}
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

// Close releases workbook resources. Close does not flush; call Write first
// on created workbooks.
func (wb *Workbook) Close() error {
	wb.sheets = nil
	return nil
}

// parse loads the package parts out of the zip container. Worksheet XML is
// kept raw here; Open and Create materialize the sheets once the shared
// strings and styles are in place.
func (wb *Workbook) parse(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("xlsx: not a valid package: %w", err)
	}
	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		parts[strings.TrimPrefix(f.Name, "/")] = b
	}

	wbXML, ok := parts["xl/workbook.xml"]
	if !ok {
		return errors.New("xlsx: missing xl/workbook.xml")
	}
	var book xmlWorkbook
	if err := xml.Unmarshal(wbXML, &book); err != nil {
		return fmt.Errorf("xlsx: bad workbook part: %w", err)
	}

	targets := make(map[string]string)
	if relXML, ok := parts["xl/_rels/workbook.xml.rels"]; ok {
		var rels xmlRelationships
		if err := xml.Unmarshal(relXML, &rels); err != nil {
			return fmt.Errorf("xlsx: bad workbook relationships: %w", err)
		}
		for _, rel := range rels.Relationships {
			targets[rel.ID] = resolveTarget(rel.Target)
		}
	}

	if sstXML, ok := parts["xl/sharedStrings.xml"]; ok {
		var sst xmlSST
		if err := xml.Unmarshal(sstXML, &sst); err != nil {
			return fmt.Errorf("xlsx: bad shared strings part: %w", err)
		}
		wb.sst.load(&sst)
	}
	if styleXML, ok := parts["xl/styles.xml"]; ok {
		var ss xmlStyleSheet
		if err := xml.Unmarshal(styleXML, &ss); err != nil {
			return fmt.Errorf("xlsx: bad stylesheet part: %w", err)
		}
		wb.styles.load(&ss)
	}

	for i, sh := range book.Sheets {
		target := targets[sh.RID]
		if target == "" {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		raw, ok := parts[target]
		if !ok {
			return fmt.Errorf("xlsx: worksheet part %s not found", target)
		}
		wb.sheets = append(wb.sheets, &Worksheet{wb: wb, name: sh.Name, raw: raw})
	}
	return nil
}

// resolveTarget normalises a relationship target to a package path.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean("xl/" + target)
}

// Write serialises the workbook package to its output stream.
func (wb *Workbook) Write() error {
	if !wb.writable {
		return ErrReadOnly
	}
	zw := zip.NewWriter(wb.out)

	types := xmlTypes{
		Defaults: []xmlDefault{
			{Extension: "rels", ContentType: ctRels},
			{Extension: "xml", ContentType: ctXML},
		},
		Overrides: []xmlOverride{
			{PartName: "/xl/workbook.xml", ContentType: ctWorkbook},
			{PartName: "/xl/styles.xml", ContentType: ctStyles},
			{PartName: "/xl/sharedStrings.xml", ContentType: ctStrings},
		},
	}
	book := xmlWorkbook{}
	bookRels := xmlRelationships{}
	for i := range wb.sheets {
		part := fmt.Sprintf("sheet%d.xml", i+1)
		rid := fmt.Sprintf("rId%d", i+1)
		types.Overrides = append(types.Overrides, xmlOverride{
			PartName:    "/xl/worksheets/" + part,
			ContentType: ctWorksheet,
		})
		book.Sheets = append(book.Sheets, xmlSheet{Name: wb.sheets[i].name, SheetID: i + 1, RID: rid})
		bookRels.Relationships = append(bookRels.Relationships, xmlRelationship{
			ID: rid, Type: relTypeSheet, Target: "worksheets/" + part,
		})
	}
	n := len(wb.sheets)
	bookRels.Relationships = append(bookRels.Relationships,
		xmlRelationship{ID: fmt.Sprintf("rId%d", n+1), Type: relTypeStyles, Target: "styles.xml"},
		xmlRelationship{ID: fmt.Sprintf("rId%d", n+2), Type: relTypeStrings, Target: "sharedStrings.xml"},
	)
	rootRels := xmlRelationships{Relationships: []xmlRelationship{
		{ID: "rId1", Type: relTypeDocument, Target: "xl/workbook.xml"},
	}}

	if err := writePart(zw, "[Content_Types].xml", &types); err != nil {
		return err
	}
	if err := writePart(zw, "_rels/.rels", &rootRels); err != nil {
		return err
	}
	if err := writePart(zw, "xl/workbook.xml", &book); err != nil {
		return err
	}
	if err := writePart(zw, "xl/_rels/workbook.xml.rels", &bookRels); err != nil {
		return err
	}
	if err := writePart(zw, "xl/styles.xml", wb.styles.xml()); err != nil {
		return err
	}
	if err := writePart(zw, "xl/sharedStrings.xml", wb.sst.xml()); err != nil {
		return err
	}
	for i, ws := range wb.sheets {
		part := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		if err := ws.materialize(); err != nil {
			return err
		}
		if err := writePart(zw, part, ws.xml()); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writePart(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("xlsx: encoding %s: %w", name, err)
	}
	return enc.Close()
}

// internString applies the cell text corrections (length cap, illegal XML
// characters) and interns the result in the shared-string pool.
func (wb *Workbook) internString(s string) int {
	if trimmed, cut := sheet.TruncateCell(s); cut {
		s = trimmed
		wb.corr.TruncatedCells++
		wb.log.Warn().Int("limit", sheet.MaxCellChars).Msg("cell text truncated")
	}
	clean, changed := sanitizeXML(s)
	if changed {
		wb.corr.SanitisedCells++
		wb.log.Warn().Msg("cell text contained characters illegal in XML; stripped")
	}
	return wb.sst.add(clean)
}
