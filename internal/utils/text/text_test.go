package text

import (
	"testing"
	"unicode/utf8"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello", 5},
		{"Zürich", 6},
		{"東京 office", 9},
		{"Go 👋", 4},
	}
	for _, tt := range tests {
		if got := CountRunes(tt.in); got != tt.want {
			t.Errorf("CountRunes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"Senior  Go\nEngineer", "Senior Go Engineer"},
		{"\t remote \r\n only ", "remote only"},
	}
	for _, tt := range tests {
		if got := Collapse(tt.in); got != tt.want {
			t.Errorf("Collapse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abcdefghij", 10); got != "abcdefghij" {
		t.Errorf("exact length should be kept, got %q", got)
	}
	if got := Truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abcdef", 2); got != "..." {
		t.Errorf("limit below the ellipsis, got %q", got)
	}

	got := Truncate("ééééé", 6)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got)
	}
	if got != "é..." {
		t.Errorf("got %q, want %q", got, "é...")
	}
}
