package deadline

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateVariants(t *testing.T) {
	t.Parallel()
	want := date(2026, time.January, 14)
	for _, raw := range []string{"14/01/2026", "14.01.2026", "2026-01-14", "  14/01/2026  "} {
		if got := ParseDate(raw); !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseDateAbsence(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "   ", "garbage", "14-01-2026", "2026/01/14", "32.01.2026"} {
		if got := ParseDate(raw); !got.IsZero() {
			t.Fatalf("ParseDate(%q) = %v, want absent", raw, got)
		}
	}
}

func TestParseRecord(t *testing.T) {
	t.Parallel()
	rec := ParseRecord(map[string]string{
		"Date":           "07.01.2026",
		"Topic":          "  Syntax  ",
		"Block":          "B2",
		"Who":            "@vokat",
		"First deadline": "2026-01-14",
		// "Second deadline" intentionally missing
	})
	if !rec.PostDate.Equal(date(2026, time.January, 7)) {
		t.Fatalf("PostDate = %v", rec.PostDate)
	}
	if rec.Topic != "Syntax" || rec.Block != "B2" || rec.Tag != "@vokat" {
		t.Fatalf("unexpected fields: %+v", rec)
	}
	if !rec.Deadline1.Equal(date(2026, time.January, 14)) {
		t.Fatalf("Deadline1 = %v", rec.Deadline1)
	}
	if !rec.Deadline2.IsZero() {
		t.Fatalf("Deadline2 = %v, want absent", rec.Deadline2)
	}
}

func TestParseRecordEmptyMap(t *testing.T) {
	t.Parallel()
	rec := ParseRecord(map[string]string{})
	if rec != (Record{}) {
		t.Fatalf("expected zero record, got %+v", rec)
	}
}

func TestNormalizeTag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
	}{
		{"@vokat", "@vokat"},
		{"  show @vokat please ", "@vokat"},
		{"no tag here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTag(tt.raw); got != tt.want {
			t.Fatalf("NormalizeTag(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
