package xlsx

import "testing"

func TestColumnName(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		if got := ColumnName(tt.index); got != tt.want {
			t.Errorf("ColumnName(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"A", 0},
		{"Z", 25},
		{"AA", 26},
		{"AB", 27},
		{"ab", 27},
		{"ZZ", 701},
		{"AAA", 702},
		{"", -1},
		{"A1", -1},
	}
	for _, tt := range tests {
		if got := ColumnIndex(tt.name); got != tt.want {
			t.Errorf("ColumnIndex(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

// Writing a reference and parsing it back must agree for every index; the
// multi-letter boundary cases are where the two sides historically diverged.
func TestColumnNameIndexRoundTrip(t *testing.T) {
	for i := 0; i < 2000; i++ {
		if got := ColumnIndex(ColumnName(i)); got != i {
			t.Fatalf("ColumnIndex(ColumnName(%d)) = %d", i, got)
		}
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref     string
		row     int
		col     int
		wantErr bool
	}{
		{"A1", 0, 0, false},
		{"B3", 2, 1, false},
		{"AB10", 9, 27, false},
		{"ZZ100", 99, 701, false},
		{"1A", 0, 0, true},
		{"A0", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		row, col, err := parseRef(tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRef(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			continue
		}
		if err == nil && (row != tt.row || col != tt.col) {
			t.Errorf("parseRef(%q) = (%d, %d), want (%d, %d)", tt.ref, row, col, tt.row, tt.col)
		}
	}
}

func TestValidRange(t *testing.T) {
	for _, ok := range []string{"A1:B2", "AB10:AB20"} {
		if !validRange(ok) {
			t.Errorf("validRange(%q) = false", ok)
		}
	}
	for _, bad := range []string{"A1", "A1:", ":B2", "A1:B", "1:2"} {
		if validRange(bad) {
			t.Errorf("validRange(%q) = true", bad)
		}
	}
}
