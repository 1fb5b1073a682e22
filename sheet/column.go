package sheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the display type of a logical spreadsheet column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeNumber
	TypeBoolean
	TypeDateTime
	TypeInteger
	TypeDecimal
	TypeSeconds
)

// ParseColumnType maps an attribute value to a ColumnType.
func ParseColumnType(s string) (ColumnType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString, true
	case "number":
		return TypeNumber, true
	case "boolean":
		return TypeBoolean, true
	case "datetime":
		return TypeDateTime, true
	case "integer":
		return TypeInteger, true
	case "decimal":
		return TypeDecimal, true
	case "seconds":
		return TypeSeconds, true
	}
	return TypeString, false
}

// Alignment is the horizontal alignment of a column's cells.
type Alignment int

const (
	AlignGeneral Alignment = iota
	AlignLeft
	AlignCentre
	AlignRight
)

// Name returns the OOXML name of the alignment, empty for general.
func (a Alignment) Name() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCentre:
		return "center"
	case AlignRight:
		return "right"
	default:
		return ""
	}
}

// Column carries the metadata of one logical spreadsheet column. A Column is
// constructed once per column, configured through SetAttributes, and reused
// across every row of a write pass; adapters stash their resolved style in it
// so thousands of rows share a single style lookup.
type Column struct {
	// Name is the column header text.
	Name string

	// Type is the display type driving cell construction on write.
	Type ColumnType

	// Format is the display format: a time layout for datetime columns, a
	// number format code for numeric ones.
	Format string

	// InputType/InputFormat describe how raw string values should be parsed
	// before reformatting. Conversion only runs when an input type was set.
	InputType   ColumnType
	InputFormat string

	// OutputType/OutputFormat describe the reformatting target. For
	// string-to-string conversion OutputFormat is a regex replacement
	// template applied with Regex.
	OutputType   ColumnType
	OutputFormat string

	// Regex, with OutputFormat as the template, reformats string values by
	// group substitution.
	Regex string

	// NullValue substitutes for nil or empty values.
	NullValue string

	// Align is the horizontal cell alignment.
	Align Alignment

	// Wrap requests wrapped text for the column.
	Wrap bool

	// Display marks the column visible; a false value hides the written
	// column (the cells are still emitted).
	Display bool

	hasInput bool
	re       *regexp.Regexp
	style    any
}

// NewColumn returns a visible string column with the given header name.
func NewColumn(name string) *Column {
	return &Column{Name: name, Display: true}
}

// CacheStyle stores an adapter-resolved style handle on the column.
func (c *Column) CacheStyle(style any) { c.style = style }

// CachedStyle returns the handle stored by CacheStyle, or nil.
func (c *Column) CachedStyle() any { return c.style }

// SetAttributes parses a delimited list of key=value pairs into the column.
// Pairs are colon-delimited, or semicolon-delimited when any value itself
// contains a colon (time formats such as 15:04). Recognised keys are type,
// format, inputtype, inputformat, outputtype, outputformat, regex, nullvalue,
// align, wrap and display; unknown keys are ignored. Parsing the same string
// twice yields the same attributes.
func (c *Column) SetAttributes(raw string) {
	if raw == "" {
		return
	}
	sep := ":"
	if strings.Contains(raw, ";") {
		sep = ";"
	}
	for _, pair := range strings.Split(raw, sep) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "type":
			if t, ok := ParseColumnType(value); ok {
				c.Type = t
			}
		case "format":
			c.Format = value
		case "inputtype":
			if t, ok := ParseColumnType(value); ok {
				c.InputType = t
				c.hasInput = true
			}
		case "inputformat":
			c.InputFormat = value
		case "outputtype":
			if t, ok := ParseColumnType(value); ok {
				c.OutputType = t
			}
		case "outputformat":
			c.OutputFormat = value
		case "regex":
			c.Regex = value
			c.re = nil
		case "nullvalue":
			c.NullValue = value
		case "align":
			switch strings.ToLower(value) {
			case "left":
				c.Align = AlignLeft
			case "centre", "center":
				c.Align = AlignCentre
			case "right":
				c.Align = AlignRight
			}
		case "wrap":
			c.Wrap = parseFlag(value)
		case "display":
			c.Display = parseFlag(value)
		}
	}
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

// Value converts a typed runtime value to its display string. dateLayout is
// used for time values when the column declares no format of its own. String
// values run through Convert when an input type was configured.
func (c *Column) Value(v any, dateLayout string) string {
	if v == nil {
		return c.NullValue
	}
	switch x := v.(type) {
	case time.Time:
		return x.Format(c.dateLayout(dateLayout))
	case bool:
		return strconv.FormatBool(x)
	case int:
		return c.formatNumber(float64(x))
	case int64:
		return c.formatNumber(float64(x))
	case float32:
		return c.formatNumber(float64(x))
	case float64:
		return c.formatNumber(x)
	case string:
		if x == "" {
			return c.NullValue
		}
		if c.hasInput {
			return c.Convert(x, dateLayout)
		}
		return x
	default:
		return fmt.Sprint(v)
	}
}

// Convert parses a raw string per the input type, then reformats it per the
// output type. Failed parses return the raw string unchanged; conversion is a
// best-effort pass, never an error.
func (c *Column) Convert(raw string, dateLayout string) string {
	switch c.InputType {
	case TypeDateTime:
		layout := c.InputFormat
		if layout == "" {
			layout = c.dateLayout(dateLayout)
		}
		t, err := time.Parse(layout, raw)
		if err != nil {
			return raw
		}
		return c.formatConverted(float64(t.UnixMilli()), t)
	case TypeNumber, TypeInteger, TypeDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return raw
		}
		return c.formatConverted(f, time.UnixMilli(int64(f)))
	case TypeSeconds:
		secs, ok := parseClock(raw)
		if !ok {
			return raw
		}
		return c.formatConverted(float64(secs), time.Time{})
	case TypeString:
		if c.Regex == "" {
			return raw
		}
		if c.re == nil {
			re, err := regexp.Compile(c.Regex)
			if err != nil {
				return raw
			}
			c.re = re
		}
		return c.re.ReplaceAllString(raw, c.OutputFormat)
	default:
		return raw
	}
}

// formatConverted renders the canonical numeric value per the output type.
func (c *Column) formatConverted(canonical float64, t time.Time) string {
	switch c.OutputType {
	case TypeDateTime:
		layout := c.OutputFormat
		if layout == "" {
			layout = DefaultDateLayout
		}
		return t.Format(layout)
	case TypeSeconds:
		return formatClock(int64(canonical))
	case TypeInteger:
		return strconv.FormatInt(int64(canonical), 10)
	case TypeDecimal:
		if strings.HasPrefix(c.OutputFormat, "%") {
			return fmt.Sprintf(c.OutputFormat, canonical)
		}
		return strconv.FormatFloat(canonical, 'f', 2, 64)
	default:
		return strconv.FormatFloat(canonical, 'f', -1, 64)
	}
}

func (c *Column) formatNumber(f float64) string {
	switch c.Type {
	case TypeInteger:
		return strconv.FormatInt(int64(f), 10)
	case TypeDecimal:
		if strings.HasPrefix(c.Format, "%") {
			return fmt.Sprintf(c.Format, f)
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	case TypeSeconds:
		return formatClock(int64(f))
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

func (c *Column) dateLayout(fallback string) string {
	if c.Format != "" && (c.Type == TypeDateTime || c.hasInput) {
		return c.Format
	}
	if fallback != "" {
		return fallback
	}
	return DefaultDateLayout
}

// parseClock reads h:mm:ss or mm:ss into a second count.
func parseClock(s string) (int64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total int64
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// formatClock renders a second count as h:mm:ss.
func formatClock(secs int64) string {
	neg := ""
	if secs < 0 {
		neg = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%d:%02d:%02d", neg, secs/3600, (secs/60)%60, secs%60)
}
