package sheet

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateCell(t *testing.T) {
	if s, cut := TruncateCell("short"); cut || s != "short" {
		t.Fatalf("short string altered: (%q, %v)", s, cut)
	}
	if _, cut := TruncateCell(strings.Repeat("a", MaxCellChars)); cut {
		t.Fatal("string at the limit was cut")
	}
	got, cut := TruncateCell(strings.Repeat("é", MaxCellChars+2))
	if !cut {
		t.Fatal("oversized string was not cut")
	}
	if !utf8.ValidString(got) {
		t.Fatal("cut landed inside a rune")
	}
	if n := utf8.RuneCountInString(got); n != MaxCellChars {
		t.Fatalf("got %d characters, want %d", n, MaxCellChars)
	}
}
