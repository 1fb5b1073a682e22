package xlsx

import "strings"

// stringTable is the per-workbook shared-string pool. Within one write
// session the same string value always maps to the same index; the reverse
// index is built lazily from entries loaded out of an existing workbook so
// appends keep deduplicating against them.
type stringTable struct {
	list  []string
	index map[string]int
}

func newStringTable() *stringTable {
	return &stringTable{index: make(map[string]int)}
}

// load seeds the pool from an existing sharedStrings part.
func (st *stringTable) load(sst *xmlSST) {
	for _, si := range sst.SI {
		s := si.text()
		if _, ok := st.index[s]; !ok {
			st.index[s] = len(st.list)
		}
		st.list = append(st.list, s)
	}
}

// add interns a string and returns its table index.
func (st *stringTable) add(s string) int {
	if i, ok := st.index[s]; ok {
		return i
	}
	i := len(st.list)
	st.list = append(st.list, s)
	st.index[s] = i
	return i
}

// get returns the string at a table index, empty when out of range.
func (st *stringTable) get(i int) string {
	if i < 0 || i >= len(st.list) {
		return ""
	}
	return st.list[i]
}

func (st *stringTable) xml() *xmlSST {
	sst := &xmlSST{Count: len(st.list), UniqueCount: len(st.list)}
	for _, s := range st.list {
		t := &xmlText{Value: s}
		if strings.TrimSpace(s) != s {
			t.Space = "preserve"
		}
		sst.SI = append(sst.SI, xmlSI{T: t})
	}
	return sst
}

// sanitizeXML strips characters that cannot appear in XML 1.0 text. It
// returns the cleaned string and whether anything was removed.
func sanitizeXML(s string) (string, bool) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return -1
		case r >= 0xD800 && r <= 0xDFFF:
			return -1
		case r == 0xFFFE || r == 0xFFFF:
			return -1
		}
		return r
	}, s)
	return clean, len(clean) != len(s)
}
