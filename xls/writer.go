package xls

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pressops/sheetfile/sheet"
)

// styleTable owns the deduplicated cell XFs, the number-format codes and the
// shared string pool of one workbook being written. Cell XFs start at index
// 15; indices 0-14 are the mandatory style XFs.
type styleTable struct {
	xfs     []writerXF
	byKey   map[writerXF]int
	fmtKeys map[string]int
	customs []string // custom format codes, keys from customFmtBase up
	nextFmt int
	sst     []string
	sstIdx  map[string]int
}

type writerXF struct {
	fontIdx int
	fmtKey  int
	align   sheet.Alignment
	wrap    bool
}

// The fifth FONT record is referenced as font 5; index 4 is skipped by the
// file format.
const (
	fontRegular = 0
	fontBold    = 5
)

const (
	styleXFCount = 15
	customFmtBase = 164
)

// builtinFmtKeys maps the format codes this adapter writes to their builtin
// keys, so common formats never allocate a FORMAT record.
var builtinFmtKeys = map[string]int{
	"general":             0,
	"0":                   1,
	"0.00":                2,
	"#,##0":               3,
	"#,##0.00":            4,
	"mm-dd-yy":            14,
	"h:mm:ss":             21,
	"m/d/yy h:mm":         22,
	"[h]:mm:ss": 46,
	"@":         49,
}

func newStyleTable() *styleTable {
	t := &styleTable{
		byKey:   make(map[writerXF]int),
		fmtKeys: make(map[string]int),
		nextFmt: customFmtBase,
		sstIdx:  make(map[string]int),
	}
	for code, key := range builtinFmtKeys {
		t.fmtKeys[code] = key
	}
	// Default cell XF at index 15.
	t.xf(writerXF{fontIdx: fontRegular})
	return t
}

// fmtKey resolves a number-format code, allocating a custom FORMAT record on
// a true miss.
func (t *styleTable) fmtKey(code string) int {
	if code == "" {
		return 0
	}
	if key, ok := t.fmtKeys[code]; ok {
		return key
	}
	key := t.nextFmt
	t.nextFmt++
	t.fmtKeys[code] = key
	t.customs = append(t.customs, code)
	return key
}

// xf resolves a cell style to its absolute XF index, deduplicating on the
// full key.
func (t *styleTable) xf(key writerXF) int {
	if i, ok := t.byKey[key]; ok {
		return i
	}
	i := styleXFCount + len(t.xfs)
	t.xfs = append(t.xfs, key)
	t.byKey[key] = i
	return i
}

// addString interns a shared string and returns its table index.
func (t *styleTable) addString(s string) int {
	if i, ok := t.sstIdx[s]; ok {
		return i
	}
	i := len(t.sst)
	t.sst = append(t.sst, s)
	t.sstIdx[s] = i
	return i
}

// writeRecord appends one BIFF record.
func writeRecord(buf *bytes.Buffer, code int, data []byte) {
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(code))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(data)))
	buf.Write(hdr[:])
	buf.Write(data)
}

// serialize renders the workbook stream: globals followed by one substream
// per sheet, with the BOUNDSHEET offsets patched once the substream
// positions are known. Substreams render first so their cells intern into
// the shared string table before it is written.
func serialize(t *styleTable, sheets []*Worksheet) []byte {
	subs := make([][]byte, len(sheets))
	for i, ws := range sheets {
		subs[i] = serializeSheet(t, ws)
	}

	var buf bytes.Buffer

	writeRecord(&buf, recBOF, bofData(streamGlobals))
	writeRecord(&buf, recCodepage, le16(1200))
	writeRecord(&buf, recWindow1, window1Data())
	writeRecord(&buf, recDatemode, le16(0))

	for i := 0; i < 5; i++ {
		writeRecord(&buf, recFont, fontData(i == 4))
	}
	for i, code := range t.customs {
		data := le16(uint16(customFmtBase + i))
		data = append(data, encodeString(code, 2)...)
		writeRecord(&buf, recFormat, data)
	}
	for i := 0; i < styleXFCount; i++ {
		writeRecord(&buf, recXF, xfData(writerXF{}, true))
	}
	for _, key := range t.xfs {
		writeRecord(&buf, recXF, xfData(key, false))
	}

	// BOUNDSHEET offsets are not known yet; remember where to patch them.
	patchAt := make([]int, len(sheets))
	for i, ws := range sheets {
		patchAt[i] = buf.Len() + 4
		data := make([]byte, 6)
		data[5] = 0x00 // worksheet
		data = append(data, encodeString(ws.name, 1)...)
		writeRecord(&buf, recBoundsheet, data)
	}

	writeSST(&buf, t.sst)
	writeRecord(&buf, recEOF, nil)

	stream := buf.Bytes()
	for i := range sheets {
		binary.LittleEndian.PutUint32(stream[patchAt[i]:], uint32(len(stream)))
		stream = append(stream, subs[i]...)
	}
	return stream
}

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func bofData(streamType uint16) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint16(data, 0x0600) // BIFF8
	binary.LittleEndian.PutUint16(data[2:], streamType)
	binary.LittleEndian.PutUint16(data[4:], 0x0DBB) // build
	binary.LittleEndian.PutUint16(data[6:], 0x07CC) // build year
	binary.LittleEndian.PutUint32(data[12:], 0x0006)
	return data
}

func window1Data() []byte {
	data := make([]byte, 18)
	binary.LittleEndian.PutUint16(data, 0x0168)
	binary.LittleEndian.PutUint16(data[2:], 0x001E)
	binary.LittleEndian.PutUint16(data[4:], 0x3A5C)
	binary.LittleEndian.PutUint16(data[6:], 0x23C2)
	binary.LittleEndian.PutUint16(data[8:], 0x0038) // visible, tabs shown
	binary.LittleEndian.PutUint16(data[14:], 1)     // selected sheets
	binary.LittleEndian.PutUint16(data[16:], 0x0258)
	return data
}

func fontData(bold bool) []byte {
	data := make([]byte, 14)
	binary.LittleEndian.PutUint16(data, 200) // 10pt
	options, weight := uint16(0), uint16(400)
	if bold {
		options, weight = 0x0001, 700
	}
	binary.LittleEndian.PutUint16(data[2:], options)
	binary.LittleEndian.PutUint16(data[4:], 0x7FFF) // automatic colour
	binary.LittleEndian.PutUint16(data[6:], weight)
	return append(data, encodeString("Arial", 1)...)
}

func xfData(key writerXF, style bool) []byte {
	data := make([]byte, 20)
	binary.LittleEndian.PutUint16(data, uint16(key.fontIdx))
	binary.LittleEndian.PutUint16(data[2:], uint16(key.fmtKey))
	if style {
		binary.LittleEndian.PutUint16(data[4:], 0xFFF5)
	} else {
		binary.LittleEndian.PutUint16(data[4:], 0x0001) // locked cell XF
	}
	align := byte(0x20) // vertical bottom
	switch key.align {
	case sheet.AlignLeft:
		align |= 0x01
	case sheet.AlignCentre:
		align |= 0x02
	case sheet.AlignRight:
		align |= 0x03
	}
	if key.wrap {
		align |= 0x08
	}
	data[6] = align
	if !style {
		data[9] = 0xFC // all attribute groups taken from this XF
	}
	return data
}

// writeSST emits the shared string table, spilling into CONTINUE records
// when a string would cross the record size limit. Continuations restate the
// compression flag before the remaining characters.
func writeSST(buf *bytes.Buffer, sst []string) {
	total := make([]byte, 8)
	binary.LittleEndian.PutUint32(total, uint32(len(sst)))
	binary.LittleEndian.PutUint32(total[4:], uint32(len(sst)))

	records := [][]byte{total}
	cur := records[0]
	flush := func(flags byte, restate bool) {
		records[len(records)-1] = cur
		if restate {
			cur = []byte{flags}
		} else {
			cur = nil
		}
		records = append(records, cur)
	}
	for _, s := range sst {
		encoded := encodeString(s, 2)
		flags := encoded[2]
		if len(cur)+3 > maxRecordData {
			flush(0, false)
		}
		cur = append(cur, encoded[:3]...)
		body := encoded[3:]
		charSize := 1
		if flags&0x01 != 0 {
			charSize = 2
		}
		for len(body) > 0 {
			room := maxRecordData - len(cur)
			room -= room % charSize
			if room <= 0 {
				flush(flags, true)
				continue
			}
			n := room
			if n > len(body) {
				n = len(body)
			}
			cur = append(cur, body[:n]...)
			body = body[n:]
		}
	}
	records[len(records)-1] = cur

	writeRecord(buf, recSST, records[0])
	for _, rec := range records[1:] {
		writeRecord(buf, recContinue, rec)
	}
}

// serializeSheet renders one worksheet substream.
func serializeSheet(t *styleTable, ws *Worksheet) []byte {
	var buf bytes.Buffer
	writeRecord(&buf, recBOF, bofData(streamWorksheet))

	dim := make([]byte, 14)
	binary.LittleEndian.PutUint32(dim[4:], uint32(len(ws.rows)))
	binary.LittleEndian.PutUint16(dim[10:], uint16(ws.ncols))
	writeRecord(&buf, recDimension, dim)

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
		ci := make([]byte, 12)
		binary.LittleEndian.PutUint16(ci, uint16(i))
		binary.LittleEndian.PutUint16(ci[2:], uint16(i))
		binary.LittleEndian.PutUint16(ci[4:], uint16((w+1)*256))
		binary.LittleEndian.PutUint16(ci[6:], styleXFCount)
		if hidden {
			ci[8] = 0x01
		}
		writeRecord(&buf, recColinfo, ci)
	}

	for r, row := range ws.rows {
		for c, cl := range row {
			writeCellRecord(&buf, t, r, c, cl)
		}
	}
	writeRecord(&buf, recWindow2, window2Data())
	writeRecord(&buf, recEOF, nil)
	return buf.Bytes()
}

func window2Data() []byte {
	data := make([]byte, 18)
	binary.LittleEndian.PutUint16(data, 0x06B6) // grid, headers, default pane
	binary.LittleEndian.PutUint16(data[6:], 0x0040)
	return data
}

func writeCellRecord(buf *bytes.Buffer, t *styleTable, row, col int, cl cell) {
	hdr := func(extra int) []byte {
		data := make([]byte, 6, 6+extra)
		binary.LittleEndian.PutUint16(data, uint16(row))
		binary.LittleEndian.PutUint16(data[2:], uint16(col))
		binary.LittleEndian.PutUint16(data[4:], uint16(cellStyle(cl)))
		return data
	}
	switch cl.kind {
	case cellString:
		data := hdr(4)
		data = binary.LittleEndian.AppendUint32(data, uint32(t.addString(cl.str)))
		writeRecord(buf, recLabelSST, data)
	case cellNumber, cellDate:
		data := hdr(8)
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(cl.num))
		writeRecord(buf, recNumber, data)
	case cellBool:
		data := hdr(2)
		v := byte(0)
		if cl.b {
			v = 1
		}
		data = append(data, v, 0)
		writeRecord(buf, recBoolErr, data)
	case cellError:
		data := hdr(2)
		data = append(data, errorCodeFor(cl.str), 1)
		writeRecord(buf, recBoolErr, data)
	}
}

func cellStyle(cl cell) int {
	if cl.style >= styleXFCount {
		return cl.style
	}
	return styleXFCount
}
