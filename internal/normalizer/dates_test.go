package normalizer

import (
	"testing"
	"time"
)

func TestDateNormalizer_Parse(t *testing.T) {
	n := NewDateNormalizer()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"US slash date", "10/14/2025", "2025-10-14"},
		{"US slash date zero padded", "03/05/2025", "2025-03-05"},
		{"US slash with time", "10/14/2025 3:30 PM", "2025-10-14"},
		{"US slash with seconds", "10/14/2025 3:30:00 PM", "2025-10-14"},
		{"US slash with 24h time", "10/14/2025 15:30", "2025-10-14"},
		{"ISO date", "2025-10-14", "2025-10-14"},
		{"ISO with time", "2025-10-14 15:30:00", "2025-10-14"},
		{"Dash separated", "10-14-2025", "2025-10-14"},
		{"Two digit year", "10/14/25", "2025-10-14"},
		{"Long month name", "October 14, 2025", "2025-10-14"},
		{"Short month name", "Oct 14, 2025", "2025-10-14"},
		{"Trailing zone defeated by token retry", "10/14/2025 03:30 PM EDT", "2025-10-14"},
		{"Surrounding whitespace", "  10/14/2025  ", "2025-10-14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.Parse(tt.raw)
			if !ok {
				t.Fatalf("Parse(%q) failed, want %s", tt.raw, tt.want)
			}

			if formatted := n.FormatCloseDate(got); formatted != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.raw, formatted, tt.want)
			}
		})
	}
}

func TestDateNormalizer_Parse_Failures(t *testing.T) {
	n := NewDateNormalizer()

	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", ""},
		{"Whitespace only", "   "},
		{"Prose", "until further notice"},
		{"Not a date", "TBD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := n.Parse(tt.raw); ok {
				t.Errorf("Parse(%q) = %v, want failure", tt.raw, got)
			}
		})
	}
}

func TestDateNormalizer_FallbackCloseDate(t *testing.T) {
	n := NewDateNormalizer()

	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	got := n.FallbackCloseDate(now)
	want := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)

	if !got.Equal(want) {
		t.Errorf("FallbackCloseDate = %v, want %v", got, want)
	}

	if !got.After(now) {
		t.Error("FallbackCloseDate must be in the future")
	}
}

func TestDateNormalizer_FormatCloseDate(t *testing.T) {
	n := NewDateNormalizer()

	got := n.FormatCloseDate(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	if got != "2025-03-05" {
		t.Errorf("FormatCloseDate = %q, want 2025-03-05", got)
	}
}
