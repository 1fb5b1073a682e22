package sheet

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Excel stores dates as serial day counts from its 1900 epoch, with the day
// fraction carrying the time of day. The serial for any real date is offset
// from the Unix epoch by 25569 days, which also absorbs Excel's historical
// treatment of 1900 as a leap year. Serials below 1 are time-only values.

const (
	millisPerDay   = 86400000
	unixEpochDelta = 25569
)

// SerialFromMillis converts epoch milliseconds (already adjusted to the wall
// clock the cell should show) to an Excel serial value. Values representing
// less than one day are written as bare day fractions, i.e. time-only cells.
func SerialFromMillis(ms int64) float64 {
	days := float64(ms) / millisPerDay
	if days > 1 {
		days += unixEpochDelta
	}
	return days
}

// SerialFromTime converts a time to an Excel serial value preserving the wall
// clock of t's location.
func SerialFromTime(t time.Time) float64 {
	_, offset := t.Zone()
	return SerialFromMillis(t.UnixMilli() + int64(offset)*1000)
}

// Date1904Delta is the day offset between the 1904 and 1900 date systems.
const Date1904Delta = 1462

// TimeFromSerialMode converts a serial in the given date system (0 for 1900,
// 1 for 1904) back to a UTC time. Time-only serials carry no epoch and pass
// through unchanged.
func TimeFromSerialMode(serial float64, datemode int) time.Time {
	if datemode == 1 && serial >= 1 {
		serial += Date1904Delta
	}
	return TimeFromSerial(serial)
}

// TimeFromSerial converts an Excel serial value back to a UTC time. Serials
// below 1 map onto the zero date with only the clock set.
func TimeFromSerial(serial float64) time.Time {
	if serial < 1 {
		return time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Add(ClockFromFraction(serial))
	}
	ms := int64(math.Round((serial - unixEpochDelta) * millisPerDay))
	return time.UnixMilli(ms).UTC()
}

// ClockFromFraction recomputes a time-only cell from its day fraction. The
// legacy binary reader loses a millisecond to rounding on such cells, so one
// is added back here.
func ClockFromFraction(frac float64) time.Duration {
	ms := int64(frac*millisPerDay) + 1
	return time.Duration(ms) * time.Millisecond
}

// dateFormatIDs is the set of builtin number-format IDs Excel renders as
// dates or times.
var dateFormatIDs = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true,
	21: true, 22: true, 27: true, 30: true, 36: true, 45: true, 46: true,
	47: true, 50: true, 57: true, 58: true,
}

// IsDateFormatID reports whether the builtin number-format ID renders as a
// date or time.
func IsDateFormatID(id int) bool { return dateFormatIDs[id] }

var (
	bracketedRe    = regexp.MustCompile(`\[.*?\]`)
	nonDateFormats = map[string]bool{
		"0.00E+00": true,
		"##0.0E+0": true,
		"General":  true,
		"GENERAL":  true,
		"general":  true,
		"@":        true,
	}
)

// IsDateFormatCode decides heuristically whether a custom number-format code
// renders as a date. Quoted text, escapes and bracketed sections are ignored;
// a code is a date format when it contains date letters and no digit
// placeholders.
func IsDateFormatCode(code string) bool {
	state := 0
	var reduced strings.Builder
	for _, c := range code {
		switch state {
		case 0:
			switch {
			case c == '"':
				state = 1
			case c == '\\' || c == '_' || c == '*':
				state = 2
			case strings.ContainsRune("$-+/():. ", c):
				// skip
			default:
				reduced.WriteRune(c)
			}
		case 1:
			if c == '"' {
				state = 0
			}
		case 2:
			state = 0
		}
	}
	r := bracketedRe.ReplaceAllString(reduced.String(), "")
	if nonDateFormats[r] {
		return false
	}
	dates, nums := 0, 0
	for _, c := range r {
		switch c {
		case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
			dates++
		case '0', '#', '?':
			nums++
		}
	}
	return dates > 0 && nums == 0
}
