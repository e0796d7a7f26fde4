package timestamps

import (
	"testing"
	"time"
)

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
		want  string // YYYY-MM-DD HH:MM:SS in UTC location
	}{
		{"empty", "", false, ""},
		{"whitespace", "   ", false, ""},
		{"one digit", "7", false, ""},
		{"three digits", "123", false, ""},
		{"padded short number", " 12 ", false, ""},
		{"bare year", "2024", true, "2024-01-01 00:00:00"},
		{"year month", "2024-03", true, "2024-03-01 00:00:00"},
		{"dotted short below 30", "15.06.24", true, "2024-06-15 00:00:00"},
		{"dotted short 30 and above", "01.02.85", true, "1985-02-01 00:00:00"},
		{"day first slash", "10/01/2024", true, "2024-01-10 00:00:00"},
		{"day first dash", "10-01-2024", true, "2024-01-10 00:00:00"},
		{"single digits read month first", "1/2/2024", true, "2024-01-02 00:00:00"},
		{"mixed widths read month first", "3/15/2024", true, "2024-03-15 00:00:00"},
		{"single digit month first invalid", "13/2/2024", false, ""},
		{"day first with minutes", "10/01/2024 13:45", true, "2024-01-10 13:45:00"},
		{"day first with seconds", "10/01/2024 13:45:09", true, "2024-01-10 13:45:09"},
		{"iso day", "2024-01-10", true, "2024-01-10 00:00:00"},
		{"iso day slash", "2024/01/10", true, "2024-01-10 00:00:00"},
		{"rfc3339", "2024-01-10T08:30:00Z", true, "2024-01-10 08:30:00"},
		{"iso local time", "2024-01-10 08:30:00", true, "2024-01-10 08:30:00"},
		{"month name", "Jan 10, 2024", true, "2024-01-10 00:00:00"},
		{"invalid calendar day", "31/02/2024", false, ""},
		{"invalid month", "2024-13", false, ""},
		{"long number", "123456", false, ""},
		{"id with prefix", "A-12", false, ""},
		{"free text", "not a date", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFlexibleDateIn(tt.input, time.UTC)
			if ok != tt.ok {
				t.Fatalf("ParseFlexibleDateIn(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if s := got.Format("2006-01-02 15:04:05"); s != tt.want {
				t.Errorf("ParseFlexibleDateIn(%q) = %s, want %s", tt.input, s, tt.want)
			}
		})
	}
}

func TestToISODateString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024", "2024-01-01"},
		{"2024-03", "2024-03-01"},
		{"15.06.24", "2024-06-15"},
		{"10/01/2024 13:45", "2024-01-10"},
		{"2024/01/10", "2024-01-10"},
		{"12", "12"},
		{"hello", "hello"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ToISODateString(tt.input); got != tt.want {
			t.Errorf("ToISODateString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToISODateStringIdempotent(t *testing.T) {
	inputs := []string{
		"2024", "2024-03", "15.06.24", "01.02.85", "10/01/2024", "1/2/2024",
		"10-01-2024 08:00:01", "2024-01-10", "2024/12/31", "Jan 10, 2024",
		"2024-01-10T08:30:00Z",
	}
	for _, in := range inputs {
		if _, ok := ParseFlexibleDate(in); !ok {
			t.Fatalf("Expected %q to parse", in)
		}
		once := ToISODateString(in)
		twice := ToISODateString(once)
		if once != twice {
			t.Errorf("ToISODateString not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestLastDayOfMonth(t *testing.T) {
	if got := LastDayOfMonth(2024, time.February); got != 29 {
		t.Errorf("Expected 29 days in Feb 2024, got %d", got)
	}
	if got := LastDayOfMonth(2023, time.February); got != 28 {
		t.Errorf("Expected 28 days in Feb 2023, got %d", got)
	}
	if got := LastDayOfMonth(2024, time.December); got != 31 {
		t.Errorf("Expected 31 days in Dec 2024, got %d", got)
	}
}
