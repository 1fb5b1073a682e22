// Package xls reads and writes legacy BIFF8 workbooks inside their OLE2
// compound-document container. The binary format is record-oriented: a
// workbook globals stream (fonts, formats, XFs, the shared string table and
// the sheet directory) followed by one substream per worksheet.
package xls

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// Record opcodes used by this package. BIFF8 only; older variants of the
// same records carry different opcodes and are not handled.
const (
	recBOF        = 0x0809
	recEOF        = 0x000A
	recCodepage   = 0x0042
	recDatemode   = 0x0022
	recWindow1    = 0x003D
	recWindow2    = 0x023E
	recFont       = 0x0031
	recFormat     = 0x041E
	recXF         = 0x00E0
	recStyle      = 0x0293
	recBoundsheet = 0x0085
	recSST        = 0x00FC
	recContinue   = 0x003C
	recDimension  = 0x0200
	recColinfo    = 0x007D
	recLabel      = 0x0204
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recRK         = 0x027E
	recMulRK      = 0x00BD
	recBoolErr    = 0x0205
	recFormula    = 0x0006
	recString     = 0x0207
	recBlank      = 0x0201
	recMulBlank   = 0x00BE
	recRString    = 0x00D6
)

// Stream types carried in the BOF record.
const (
	streamGlobals   = 0x0005
	streamWorksheet = 0x0010
)

// maxRecordData is the largest data payload one BIFF record may carry;
// longer content spills into CONTINUE records.
const maxRecordData = 8224

// errorCodeFor maps error display text back to its BIFF code; unrecognised
// text writes as #N/A.
func errorCodeFor(s string) byte {
	for code, text := range errorText {
		if text == s {
			return code
		}
	}
	return 0x2A
}

// errorText maps BIFF error codes to their display form.
var errorText = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

// FormatError is returned when a workbook stream cannot be parsed.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string { return e.Message }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Message: "xls: " + fmt.Sprintf(format, args...)}
}

// decodeRK expands a 30-bit RK value to a float. Bit 0 requests division by
// 100, bit 1 selects integer encoding over a truncated IEEE double.
func decodeRK(rk uint32) float64 {
	var f float64
	if rk&0x02 != 0 {
		f = float64(int32(rk) >> 2)
	} else {
		f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		f /= 100
	}
	return f
}

// decodeString reads a BIFF8 unicode string whose character count is lenSize
// bytes wide (1 for sheet names, 2 elsewhere). It returns the string and the
// number of bytes consumed.
func decodeString(data []byte, lenSize int) (string, int, error) {
	if len(data) < lenSize+1 {
		return "", 0, formatErrorf("truncated string header")
	}
	var nchars int
	if lenSize == 1 {
		nchars = int(data[0])
	} else {
		nchars = int(binary.LittleEndian.Uint16(data))
	}
	pos := lenSize
	flags := data[pos]
	pos++

	// Rich-text run count and extension size precede the character data;
	// their payloads trail it and are skipped.
	runs, ext := 0, 0
	if flags&0x08 != 0 {
		if len(data) < pos+2 {
			return "", 0, formatErrorf("truncated rich string header")
		}
		runs = int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
	}
	if flags&0x04 != 0 {
		if len(data) < pos+4 {
			return "", 0, formatErrorf("truncated extended string header")
		}
		ext = int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
	}

	var s string
	if flags&0x01 != 0 {
		n := nchars * 2
		if len(data) < pos+n {
			return "", 0, formatErrorf("truncated UTF-16 string")
		}
		s = decodeUTF16(data[pos : pos+n])
		pos += n
	} else {
		if len(data) < pos+nchars {
			return "", 0, formatErrorf("truncated compressed string")
		}
		s = decodeLatin1(data[pos : pos+nchars])
		pos += nchars
	}
	pos += runs*4 + ext
	if pos > len(data) {
		pos = len(data)
	}
	return s, pos, nil
}

func decodeUTF16(b []byte) string {
	words := make([]uint16, len(b)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(words))
}

func decodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// encodeString renders a BIFF8 unicode string, compressed to single bytes
// when every rune fits Latin-1.
func encodeString(s string, lenSize int) []byte {
	runes := []rune(s)
	compressed := true
	for _, r := range runes {
		if r > 0xFF {
			compressed = false
			break
		}
	}
	var out []byte
	if lenSize == 1 {
		if len(runes) > 255 {
			runes = runes[:255]
		}
		out = append(out, byte(len(runes)))
	} else {
		units := utf16.Encode(runes)
		out = binary.LittleEndian.AppendUint16(out, uint16(len(units)))
	}
	if compressed {
		out = append(out, 0x00)
		for _, r := range runes {
			out = append(out, byte(r))
		}
	} else {
		out = append(out, 0x01)
		for _, u := range utf16.Encode(runes) {
			out = binary.LittleEndian.AppendUint16(out, u)
		}
	}
	return out
}
