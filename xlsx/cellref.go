package xlsx

import (
	"fmt"
	"strconv"
	"strings"
)

// Column references follow the spreadsheet convention A..Z, AA..AZ and so on:
// a bijective base-26 numbering where A is worth 1 in every position. The
// same recurrence is used for writing references and for parsing them back,
// so multi-letter columns round-trip (index 27 <-> "AB").

// ColumnName returns the letter form of a zero-based column index.
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var name []byte
	for {
		name = append([]byte{byte('A' + index%26)}, name...)
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return string(name)
}

// ColumnIndex returns the zero-based index of a column letter form, or -1
// when the letters are not a valid reference.
func ColumnIndex(name string) int {
	if name == "" {
		return -1
	}
	col := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return -1
		}
		col = col*26 + int(c-'A'+1)
	}
	return col - 1
}

// cellRef renders a zero-based (row, col) pair as an A1-style reference.
func cellRef(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row+1)
}

// parseRef splits an A1-style reference into zero-based row and column.
func parseRef(ref string) (row, col int, err error) {
	i := 0
	for i < len(ref) && !(ref[i] >= '0' && ref[i] <= '9') {
		i++
	}
	col = ColumnIndex(ref[:i])
	if col < 0 {
		return 0, 0, fmt.Errorf("xlsx: bad cell reference %q", ref)
	}
	n, err := strconv.Atoi(ref[i:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("xlsx: bad cell reference %q", ref)
	}
	return n - 1, col, nil
}

// rangeRef renders a zero-based rectangle as an A1:B2-style range.
func rangeRef(r1, c1, r2, c2 int) string {
	return cellRef(r1, c1) + ":" + cellRef(r2, c2)
}

// validRange reports whether s looks like an A1:B2-style range.
func validRange(s string) bool {
	first, rest, ok := strings.Cut(s, ":")
	if !ok {
		return false
	}
	if _, _, err := parseRef(first); err != nil {
		return false
	}
	_, _, err := parseRef(rest)
	return err == nil
}
