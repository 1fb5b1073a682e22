package xls

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/pressops/sheetfile/sheet"
)

// book is the parsed form of one workbook stream: the globals section
// (fonts, formats, XFs, shared strings, sheet directory) plus the cell grid
// of every worksheet substream.
type book struct {
	mem      []byte
	pos      int
	datemode int

	fontBold   map[int]bool
	formats    map[int]string
	xfs        []xfRecord
	sst        []string
	sheetNames []string
	sheetPosns []int
	cells      [][][]cell
}

type xfRecord struct {
	fontIdx int
	fmtKey  int
}

type cellKind int

const (
	cellBlank cellKind = iota
	cellString
	cellNumber
	cellBool
	cellDate
	cellError
)

type cell struct {
	kind  cellKind
	num   float64
	str   string
	b     bool
	xf    int
	style int // writer-side XF index
}

// parseStream reads a complete BIFF8 workbook stream.
func parseStream(mem []byte) (*book, error) {
	b := &book{
		mem:      mem,
		fontBold: make(map[int]bool),
		formats:  make(map[int]string),
	}
	if err := b.parseGlobals(); err != nil {
		return nil, err
	}
	for i := range b.sheetNames {
		grid, err := b.parseSheet(b.sheetPosns[i])
		if err != nil {
			return nil, err
		}
		b.cells = append(b.cells, grid)
	}
	return b, nil
}

func (b *book) record() (code int, data []byte, ok bool) {
	if b.pos+4 > len(b.mem) {
		return 0, nil, false
	}
	code = int(binary.LittleEndian.Uint16(b.mem[b.pos:]))
	length := int(binary.LittleEndian.Uint16(b.mem[b.pos+2:]))
	b.pos += 4
	if b.pos+length > len(b.mem) {
		return code, nil, false
	}
	data = b.mem[b.pos : b.pos+length]
	b.pos += length
	return code, data, true
}

// peekCode returns the opcode of the next record without consuming it.
func (b *book) peekCode() int {
	if b.pos+2 > len(b.mem) {
		return -1
	}
	return int(binary.LittleEndian.Uint16(b.mem[b.pos:]))
}

func (b *book) parseGlobals() error {
	code, data, ok := b.record()
	if !ok || code != recBOF {
		return formatErrorf("expected BOF record at start of workbook stream")
	}
	if len(data) < 4 {
		return formatErrorf("short BOF record")
	}
	if v := binary.LittleEndian.Uint16(data); v != 0x0600 {
		return formatErrorf("unsupported BIFF version 0x%04x; only BIFF8 is handled", v)
	}
	if st := binary.LittleEndian.Uint16(data[2:]); st != streamGlobals {
		return formatErrorf("workbook stream does not start with a globals section")
	}
	fontCount := 0
	for {
		code, data, ok := b.record()
		if !ok {
			return formatErrorf("unterminated globals section")
		}
		switch code {
		case recEOF:
			return nil
		case recDatemode:
			if len(data) >= 2 && binary.LittleEndian.Uint16(data) == 1 {
				b.datemode = 1
			}
		case recFont:
			b.handleFont(data, fontCount)
			fontCount++
		case recFormat:
			if err := b.handleFormat(data); err != nil {
				return err
			}
		case recXF:
			b.handleXF(data)
		case recBoundsheet:
			if err := b.handleBoundsheet(data); err != nil {
				return err
			}
		case recSST:
			if err := b.handleSST(data); err != nil {
				return err
			}
		}
	}
}

// handleFont records the bold flag. Font index 4 does not exist in the file
// format: the fifth FONT record is font 5.
func (b *book) handleFont(data []byte, ordinal int) {
	if len(data) < 4 {
		return
	}
	idx := ordinal
	if idx >= 4 {
		idx++
	}
	options := binary.LittleEndian.Uint16(data[2:])
	weight := 0
	if len(data) >= 8 {
		weight = int(binary.LittleEndian.Uint16(data[6:]))
	}
	b.fontBold[idx] = options&0x0001 != 0 || weight >= 700
}

func (b *book) handleFormat(data []byte) error {
	if len(data) < 2 {
		return formatErrorf("short FORMAT record")
	}
	key := int(binary.LittleEndian.Uint16(data))
	code, _, err := decodeString(data[2:], 2)
	if err != nil {
		return err
	}
	b.formats[key] = code
	return nil
}

func (b *book) handleXF(data []byte) {
	if len(data) < 4 {
		return
	}
	b.xfs = append(b.xfs, xfRecord{
		fontIdx: int(binary.LittleEndian.Uint16(data)),
		fmtKey:  int(binary.LittleEndian.Uint16(data[2:])),
	})
}

func (b *book) handleBoundsheet(data []byte) error {
	if len(data) < 6 {
		return formatErrorf("short BOUNDSHEET record")
	}
	offset := int(int32(binary.LittleEndian.Uint32(data)))
	sheetType := data[5]
	name, _, err := decodeString(data[6:], 1)
	if err != nil {
		return err
	}
	if sheetType != 0x00 {
		return nil // chart or macro sheet
	}
	b.sheetNames = append(b.sheetNames, name)
	b.sheetPosns = append(b.sheetPosns, offset)
	return nil
}

// handleSST reads the shared string table together with its CONTINUE
// records. Character data may cross a record boundary; each continuation
// restates the compression flag for the characters that follow.
func (b *book) handleSST(data []byte) error {
	blocks := [][]byte{data}
	for b.peekCode() == recContinue {
		_, cont, ok := b.record()
		if !ok {
			return formatErrorf("truncated SST continuation")
		}
		blocks = append(blocks, cont)
	}
	if len(data) < 8 {
		return formatErrorf("short SST record")
	}
	unique := int(binary.LittleEndian.Uint32(data[4:]))
	r := &sstReader{blocks: blocks, pos: 8}
	for i := 0; i < unique; i++ {
		s, err := r.readString()
		if err != nil {
			return err
		}
		b.sst = append(b.sst, s)
	}
	return nil
}

type sstReader struct {
	blocks [][]byte
	bi     int
	pos    int
}

func (r *sstReader) avail() int {
	if r.bi >= len(r.blocks) {
		return 0
	}
	return len(r.blocks[r.bi]) - r.pos
}

// advance moves to the next continuation block and returns its leading
// compression flag.
func (r *sstReader) advance() (byte, error) {
	r.bi++
	if r.bi >= len(r.blocks) || len(r.blocks[r.bi]) == 0 {
		return 0, formatErrorf("SST ends inside a string")
	}
	flags := r.blocks[r.bi][0]
	r.pos = 1
	return flags, nil
}

func (r *sstReader) bytes(n int) ([]byte, error) {
	if r.avail() < n {
		return nil, formatErrorf("truncated SST string")
	}
	out := r.blocks[r.bi][r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *sstReader) readString() (string, error) {
	if r.avail() < 3 {
		if _, err := r.advance(); err != nil {
			return "", err
		}
		r.pos = 0 // a fresh string restarts with its own header
	}
	hdr, err := r.bytes(3)
	if err != nil {
		return "", err
	}
	nchars := int(binary.LittleEndian.Uint16(hdr))
	flags := hdr[2]
	runs, ext := 0, 0
	if flags&0x08 != 0 {
		bs, err := r.bytes(2)
		if err != nil {
			return "", err
		}
		runs = int(binary.LittleEndian.Uint16(bs))
	}
	if flags&0x04 != 0 {
		bs, err := r.bytes(4)
		if err != nil {
			return "", err
		}
		ext = int(binary.LittleEndian.Uint32(bs))
	}

	var out []rune
	wide := flags&0x01 != 0
	remaining := nchars
	for remaining > 0 {
		if r.avail() == 0 {
			f, err := r.advance()
			if err != nil {
				return "", err
			}
			wide = f&0x01 != 0
		}
		charSize := 1
		if wide {
			charSize = 2
		}
		take := r.avail() / charSize
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			return "", formatErrorf("SST string split mid-character")
		}
		chunk, err := r.bytes(take * charSize)
		if err != nil {
			return "", err
		}
		if wide {
			out = append(out, []rune(decodeUTF16(chunk))...)
		} else {
			out = append(out, []rune(decodeLatin1(chunk))...)
		}
		remaining -= take
	}

	skip := runs*4 + ext
	for skip > 0 {
		if r.avail() == 0 {
			if _, err := r.advance(); err != nil {
				return "", err
			}
			r.pos = 0 // trailing run data has no compression flag
		}
		n := r.avail()
		if n > skip {
			n = skip
		}
		if _, err := r.bytes(n); err != nil {
			return "", err
		}
		skip -= n
	}
	return string(out), nil
}

// parseSheet reads one worksheet substream into a dense cell grid.
func (b *book) parseSheet(posn int) ([][]cell, error) {
	if posn < 0 || posn+4 > len(b.mem) {
		return nil, formatErrorf("worksheet offset %d out of bounds", posn)
	}
	b.pos = posn
	code, data, ok := b.record()
	if !ok || code != recBOF {
		return nil, formatErrorf("expected worksheet BOF at offset %d", posn)
	}
	if len(data) >= 4 {
		if st := binary.LittleEndian.Uint16(data[2:]); st != streamWorksheet {
			return nil, formatErrorf("substream at offset %d is not a worksheet", posn)
		}
	}

	var grid [][]cell
	var pendingString *cell
	put := func(row, col int, c cell) {
		for len(grid) <= row {
			grid = append(grid, nil)
		}
		for len(grid[row]) <= col {
			grid[row] = append(grid[row], cell{})
		}
		grid[row][col] = c
	}
	for {
		code, data, ok := b.record()
		if !ok {
			return nil, formatErrorf("unterminated worksheet substream")
		}
		if code != recString {
			pendingString = nil
		}
		switch code {
		case recEOF:
			return grid, nil
		case recLabelSST:
			if len(data) < 10 {
				continue
			}
			row, col, xf := cellHeader(data)
			idx := int(binary.LittleEndian.Uint32(data[6:]))
			s := ""
			if idx >= 0 && idx < len(b.sst) {
				s = b.sst[idx]
			}
			put(row, col, cell{kind: cellString, str: s, xf: xf})
		case recLabel, recRString:
			if len(data) < 8 {
				continue
			}
			row, col, xf := cellHeader(data)
			s, _, err := decodeString(data[6:], 2)
			if err != nil {
				return nil, err
			}
			put(row, col, cell{kind: cellString, str: s, xf: xf})
		case recNumber:
			if len(data) < 14 {
				continue
			}
			row, col, xf := cellHeader(data)
			f := math.Float64frombits(binary.LittleEndian.Uint64(data[6:]))
			put(row, col, b.numberCell(f, xf))
		case recRK:
			if len(data) < 10 {
				continue
			}
			row, col, xf := cellHeader(data)
			f := decodeRK(binary.LittleEndian.Uint32(data[6:]))
			put(row, col, b.numberCell(f, xf))
		case recMulRK:
			if len(data) < 12 {
				continue
			}
			row := int(binary.LittleEndian.Uint16(data))
			colFirst := int(binary.LittleEndian.Uint16(data[2:]))
			n := (len(data) - 6) / 6
			for i := 0; i < n; i++ {
				xf := int(binary.LittleEndian.Uint16(data[4+i*6:]))
				f := decodeRK(binary.LittleEndian.Uint32(data[6+i*6:]))
				put(row, colFirst+i, b.numberCell(f, xf))
			}
		case recBoolErr:
			if len(data) < 8 {
				continue
			}
			row, col, xf := cellHeader(data)
			if data[7] == 0 {
				put(row, col, cell{kind: cellBool, b: data[6] != 0, xf: xf})
			} else {
				put(row, col, cell{kind: cellError, str: errorText[data[6]], xf: xf})
			}
		case recFormula:
			if len(data) < 16 {
				continue
			}
			row, col, xf := cellHeader(data)
			result := data[6:14]
			if binary.LittleEndian.Uint16(result[6:]) == 0xFFFF {
				switch result[0] {
				case 0: // string result arrives in the next STRING record
					c := cell{kind: cellString, xf: xf}
					put(row, col, c)
					pendingString = &grid[row][col]
				case 1:
					put(row, col, cell{kind: cellBool, b: result[2] != 0, xf: xf})
				case 2:
					put(row, col, cell{kind: cellError, str: errorText[result[2]], xf: xf})
				default:
					put(row, col, cell{kind: cellBlank, xf: xf})
				}
			} else {
				f := math.Float64frombits(binary.LittleEndian.Uint64(result))
				put(row, col, b.numberCell(f, xf))
			}
		case recString:
			if pendingString != nil {
				s, _, err := decodeString(data, 2)
				if err != nil {
					return nil, err
				}
				pendingString.str = s
				pendingString = nil
			}
		}
	}
}

func cellHeader(data []byte) (row, col, xf int) {
	row = int(binary.LittleEndian.Uint16(data))
	col = int(binary.LittleEndian.Uint16(data[2:]))
	xf = int(binary.LittleEndian.Uint16(data[4:]))
	return
}

// numberCell classifies a numeric cell as a date when its XF carries a date
// number format.
func (b *book) numberCell(f float64, xf int) cell {
	if b.isDateXF(xf) {
		return cell{kind: cellDate, num: f, xf: xf}
	}
	return cell{kind: cellNumber, num: f, str: strconv.FormatFloat(f, 'f', -1, 64), xf: xf}
}

func (b *book) isDateXF(xf int) bool {
	if xf < 0 || xf >= len(b.xfs) {
		return false
	}
	key := b.xfs[xf].fmtKey
	if code, ok := b.formats[key]; ok {
		return sheet.IsDateFormatCode(code)
	}
	return sheet.IsDateFormatID(key)
}
