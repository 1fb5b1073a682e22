package xls

import (
	"math"
	"strings"
	"testing"
)

func TestDecodeRK(t *testing.T) {
	float30 := func(f float64) uint32 {
		return uint32(math.Float64bits(f)>>32) & 0xFFFFFFFC
	}
	tests := []struct {
		name string
		rk   uint32
		want float64
	}{
		{"integer", uint32(100<<2) | 0x02, 100},
		{"negative integer", 0xFFFFFFEE, -5}, // int32(-5)<<2 with the integer flag
		{"integer div 100", uint32(12345<<2) | 0x03, 123.45},
		{"float", float30(1.5), 1.5},
		{"negative float", float30(-2.75), -2.75},
		{"float div 100", float30(360) | 0x01, 3.6},
		{"zero", 0x02, 0},
	}
	for _, tt := range tests {
		if got := decodeRK(tt.rk); got != tt.want {
			t.Errorf("%s: decodeRK(%#x) = %v, want %v", tt.name, tt.rk, got, tt.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		lenSize int
	}{
		{"ascii short len", "Sheet1", 1},
		{"ascii long len", "hello world", 2},
		{"latin1", "café au lait", 2},
		{"wide", "日本語のシート", 2},
		{"wide short len", "données…", 1},
		{"empty", "", 2},
	}
	for _, tt := range tests {
		enc := encodeString(tt.s, tt.lenSize)
		got, n, err := decodeString(enc, tt.lenSize)
		if err != nil {
			t.Errorf("%s: decode error: %v", tt.name, err)
			continue
		}
		if got != tt.s {
			t.Errorf("%s: round trip gave %q, want %q", tt.name, got, tt.s)
		}
		if n != len(enc) {
			t.Errorf("%s: consumed %d of %d bytes", tt.name, n, len(enc))
		}
	}
}

// Sheet names carry a single length byte, so they cap at 255 characters.
func TestEncodeStringShortLenCap(t *testing.T) {
	long := strings.Repeat("x", 300)
	enc := encodeString(long, 1)
	got, _, err := decodeString(enc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 255 {
		t.Fatalf("got %d characters, want 255", len(got))
	}
}

func TestDecodeStringTruncated(t *testing.T) {
	enc := encodeString("hello", 2)
	for _, cut := range []int{0, 1, 2, 4} {
		if _, _, err := decodeString(enc[:cut], 2); err == nil {
			t.Errorf("decodeString with %d bytes: expected error", cut)
		}
	}
}

func TestErrorText(t *testing.T) {
	if errorText[0x07] != "#DIV/0!" {
		t.Errorf("errorText[0x07] = %q", errorText[0x07])
	}
	if errorText[0x2A] != "#N/A" {
		t.Errorf("errorText[0x2A] = %q", errorText[0x2A])
	}
}
