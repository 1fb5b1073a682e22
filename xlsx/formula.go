package xlsx

import (
	"fmt"
	"strconv"
	"strings"
)

// Formula cells travel through the string API in a small encoded syntax:
//
//	=SUM(A1:A5)          plain formula
//	=[3]                 reference to shared formula 3 defined elsewhere
//	=[3|A1:A5|SUM(A1)]   definition of shared formula 3 over a cell range
//
// The encoding survives a round trip: reading a formula cell reproduces the
// same text that wrote it.

type formulaKind int

const (
	formulaPlain formulaKind = iota
	formulaSharedRef
	formulaSharedDef
)

type formula struct {
	kind  formulaKind
	index int
	ref   string
	expr  string
}

// isFormula reports whether an input value is formula-encoded.
func isFormula(s string) bool { return strings.HasPrefix(s, "=") }

// parseFormula decodes the mini-syntax. The leading '=' must be present.
func parseFormula(s string) (formula, error) {
	body := strings.TrimPrefix(s, "=")
	if !strings.HasPrefix(body, "[") || !strings.HasSuffix(body, "]") {
		return formula{kind: formulaPlain, expr: body}, nil
	}
	inner := body[1 : len(body)-1]
	parts := strings.SplitN(inner, "|", 3)
	index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || index < 0 {
		return formula{}, fmt.Errorf("xlsx: bad shared formula index in %q", s)
	}
	switch len(parts) {
	case 1:
		return formula{kind: formulaSharedRef, index: index}, nil
	case 3:
		if !validRange(parts[1]) {
			return formula{}, fmt.Errorf("xlsx: bad shared formula range in %q", s)
		}
		return formula{kind: formulaSharedDef, index: index, ref: parts[1], expr: parts[2]}, nil
	default:
		return formula{}, fmt.Errorf("xlsx: bad shared formula encoding %q", s)
	}
}

// encode renders the formula back into the mini-syntax.
func (f formula) encode() string {
	switch f.kind {
	case formulaSharedRef:
		return fmt.Sprintf("=[%d]", f.index)
	case formulaSharedDef:
		return fmt.Sprintf("=[%d|%s|%s]", f.index, f.ref, f.expr)
	default:
		return "=" + f.expr
	}
}

// xml builds the worksheet formula element.
func (f formula) xml() *xmlF {
	switch f.kind {
	case formulaSharedRef:
		si := f.index
		return &xmlF{T: "shared", Si: &si}
	case formulaSharedDef:
		si := f.index
		return &xmlF{T: "shared", Si: &si, Ref: f.ref, Content: f.expr}
	default:
		return &xmlF{Content: f.expr}
	}
}

// formulaFromXML reconstructs the mini-syntax form of a parsed formula
// element.
func formulaFromXML(x *xmlF) formula {
	if x.T == "shared" && x.Si != nil {
		if x.Content == "" {
			return formula{kind: formulaSharedRef, index: *x.Si}
		}
		return formula{kind: formulaSharedDef, index: *x.Si, ref: x.Ref, expr: x.Content}
	}
	return formula{kind: formulaPlain, expr: x.Content}
}
