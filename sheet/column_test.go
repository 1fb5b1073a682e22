package sheet

import (
	"testing"
	"time"
)

func TestSetAttributes(t *testing.T) {
	tests := []struct {
		raw  string
		want Column
	}{
		{
			"type=number:format=0.00",
			Column{Type: TypeNumber, Format: "0.00", Display: true},
		},
		{
			"type=datetime;format=2006-01-02 15:04;align=right",
			Column{Type: TypeDateTime, Format: "2006-01-02 15:04", Align: AlignRight, Display: true},
		},
		{
			"type=string:wrap=true:display=false:nullvalue=n/a",
			Column{Type: TypeString, Wrap: true, Display: false, NullValue: "n/a"},
		},
		{
			"align=centre:bogus=ignored",
			Column{Align: AlignCentre, Display: true},
		},
		{
			"",
			Column{Display: true},
		},
	}
	for _, tt := range tests {
		col := NewColumn("x")
		col.SetAttributes(tt.raw)
		got := Column{
			Type: col.Type, Format: col.Format, Align: col.Align,
			Wrap: col.Wrap, Display: col.Display, NullValue: col.NullValue,
		}
		if got != tt.want {
			t.Errorf("SetAttributes(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

// Parsing the same attribute string twice must leave the column unchanged.
func TestSetAttributesIdempotent(t *testing.T) {
	raw := "type=decimal:format=%.3f:align=right:wrap=yes:regex=(\\d+)-(\\d+):outputformat=$2/$1"
	a := NewColumn("x")
	a.SetAttributes(raw)
	b := NewColumn("x")
	b.SetAttributes(raw)
	b.SetAttributes(raw)
	if a.Type != b.Type || a.Format != b.Format || a.Align != b.Align ||
		a.Wrap != b.Wrap || a.Regex != b.Regex || a.OutputFormat != b.OutputFormat {
		t.Errorf("second parse changed the column: %+v vs %+v", a, b)
	}
}

func TestColumnValue(t *testing.T) {
	tests := []struct {
		name  string
		attrs string
		in    any
		want  string
	}{
		{"nil uses nullvalue", "nullvalue=-", nil, "-"},
		{"empty string uses nullvalue", "nullvalue=-", "", "-"},
		{"plain string", "", "hello", "hello"},
		{"bool", "", true, "true"},
		{"int", "", 42, "42"},
		{"float", "", 3.5, "3.5"},
		{"integer type truncates", "type=integer", 3.9, "3"},
		{"decimal type two places", "type=decimal", 3.5, "3.50"},
		{"decimal custom verb", "type=decimal:format=%.3f", 2.0, "2.000"},
		{"seconds renders clock", "type=seconds", 3661, "1:01:01"},
	}
	for _, tt := range tests {
		col := NewColumn("x")
		col.SetAttributes(tt.attrs)
		if got := col.Value(tt.in, ""); got != tt.want {
			t.Errorf("%s: Value(%v) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestColumnValueTime(t *testing.T) {
	in := time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)
	col := NewColumn("when")
	if got := col.Value(in, ""); got != "2021-03-14 09:26:53" {
		t.Errorf("default layout: got %q", got)
	}
	col.SetAttributes("type=datetime:format=02/01/2006")
	if got := col.Value(in, ""); got != "14/03/2021" {
		t.Errorf("column layout: got %q", got)
	}
}

func TestColumnConvert(t *testing.T) {
	tests := []struct {
		name  string
		attrs string
		in    string
		want  string
	}{
		{
			"datetime reformat",
			"inputtype=datetime:inputformat=02/01/2006:outputtype=datetime:outputformat=2006-01-02",
			"14/03/2021",
			"2021-03-14",
		},
		{
			"unparseable passes through",
			"inputtype=datetime:inputformat=02/01/2006:outputtype=datetime",
			"not a date",
			"not a date",
		},
		{
			"number to integer",
			"inputtype=number:outputtype=integer",
			"12.7",
			"12",
		},
		{
			"clock to seconds to clock",
			"inputtype=seconds:outputtype=seconds",
			"90:15",
			"1:30:15",
		},
		{
			"regex substitution",
			`inputtype=string;regex=(\d+)-(\d+);outputformat=$2/$1`,
			"12-34",
			"34/12",
		},
	}
	for _, tt := range tests {
		col := NewColumn("x")
		col.SetAttributes(tt.attrs)
		if got := col.Convert(tt.in, ""); got != tt.want {
			t.Errorf("%s: Convert(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		in   string
		want ColumnType
		ok   bool
	}{
		{"string", TypeString, true},
		{"Number", TypeNumber, true},
		{" DATETIME ", TypeDateTime, true},
		{"seconds", TypeSeconds, true},
		{"widget", TypeString, false},
	}
	for _, tt := range tests {
		got, ok := ParseColumnType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseColumnType(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
