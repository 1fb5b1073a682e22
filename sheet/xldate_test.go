package sheet

import (
	"testing"
	"time"
)

func TestSerialFromTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want float64
	}{
		{time.Date(2005, 2, 23, 0, 0, 0, 0, time.UTC), 38406},
		{time.Date(1988, 5, 3, 0, 0, 0, 0, time.UTC), 32266},
		{time.Date(1907, 7, 3, 0, 0, 0, 0, time.UTC), 2741},
		{time.Date(2005, 2, 23, 12, 0, 0, 0, time.UTC), 38406.5},
		// Values inside the epoch day stay bare fractions: time-only cells.
		{time.Date(1970, 1, 1, 6, 0, 0, 0, time.UTC), 0.25},
	}
	for _, tt := range tests {
		got := SerialFromTime(tt.in)
		if got != tt.want {
			t.Errorf("SerialFromTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeFromSerial(t *testing.T) {
	tests := []struct {
		serial float64
		want   time.Time
	}{
		{38406, time.Date(2005, 2, 23, 0, 0, 0, 0, time.UTC)},
		{2741, time.Date(1907, 7, 3, 0, 0, 0, 0, time.UTC)},
		{38406.5, time.Date(2005, 2, 23, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := TimeFromSerial(tt.serial)
		if !got.Equal(tt.want) {
			t.Errorf("TimeFromSerial(%v) = %v, want %v", tt.serial, got, tt.want)
		}
	}
}

func TestTimeFromSerialMode(t *testing.T) {
	want := time.Date(2005, 2, 23, 0, 0, 0, 0, time.UTC)
	if got := TimeFromSerialMode(38406, 0); !got.Equal(want) {
		t.Errorf("1900 system: got %v, want %v", got, want)
	}
	// The same calendar date is 1462 days smaller in the 1904 system.
	if got := TimeFromSerialMode(38406-Date1904Delta, 1); !got.Equal(want) {
		t.Errorf("1904 system: got %v, want %v", got, want)
	}
	// Time-only serials carry no epoch and are unaffected by the system.
	if got := TimeFromSerialMode(0.5, 1); got.Hour() != 12 {
		t.Errorf("time-only serial in 1904 system: got %v", got)
	}
}

func TestSerialRoundTrip(t *testing.T) {
	times := []time.Time{
		time.Date(2020, 6, 15, 13, 45, 30, 0, time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC),
	}
	for _, in := range times {
		out := TimeFromSerial(SerialFromTime(in))
		if !out.Equal(in) {
			t.Errorf("round trip of %v gave %v", in, out)
		}
	}
}

// Time-only serials lose a millisecond to floating-point truncation; the
// clock conversion adds it back.
func TestClockFromFraction(t *testing.T) {
	tests := []struct {
		frac float64
		want time.Duration
	}{
		{0.273611, 6*time.Hour + 33*time.Minute + 59*time.Second + 991*time.Millisecond},
		{0.5, 12*time.Hour + time.Millisecond},
		{0.741123, 17*time.Hour + 47*time.Minute + 13*time.Second + 28*time.Millisecond},
	}
	for _, tt := range tests {
		got := ClockFromFraction(tt.frac)
		if got != tt.want {
			t.Errorf("ClockFromFraction(%v) = %v, want %v", tt.frac, got, tt.want)
		}
	}
}

func TestIsDateFormatID(t *testing.T) {
	for _, id := range []int{14, 15, 22, 45, 46, 47, 58} {
		if !IsDateFormatID(id) {
			t.Errorf("IsDateFormatID(%d) = false, want true", id)
		}
	}
	for _, id := range []int{0, 1, 2, 9, 49, 164} {
		if IsDateFormatID(id) {
			t.Errorf("IsDateFormatID(%d) = true, want false", id)
		}
	}
}

func TestIsDateFormatCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"m/d/yy h:mm", true},
		{"[h]:mm:ss", true},
		{"hh:mm:ss AM/PM", true},
		{"General", false},
		{"0.00", false},
		{"#,##0", false},
		{"@", false},
		{"0.00E+00", false},
		{`"Year "yyyy`, true},
		{`"mm total" 0.00`, false},
		{"[red]0.00", false},
	}
	for _, tt := range tests {
		if got := IsDateFormatCode(tt.code); got != tt.want {
			t.Errorf("IsDateFormatCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
