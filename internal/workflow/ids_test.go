package workflow

import (
	"testing"
	"time"
)

func TestFormatID(t *testing.T) {
	day := DayKey(time.Date(2026, 1, 5, 23, 59, 0, 0, time.UTC))
	if day != "20260105" {
		t.Fatalf("day key %s", day)
	}

	tests := []struct {
		seq     int
		want    string
		wantErr bool
	}{
		{1, "INS-20260105-00001", false},
		{42, "INS-20260105-00042", false},
		{99999, "INS-20260105-99999", false},
		{0, "", true},
		{100000, "", true},
	}
	for _, tt := range tests {
		got, err := FormatID(day, tt.seq)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("seq %d: expected error, got %s", tt.seq, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("seq %d: %v", tt.seq, err)
		}
		if got != tt.want {
			t.Fatalf("seq %d: got %s, want %s", tt.seq, got, tt.want)
		}
		if !ValidID(got) {
			t.Fatalf("%s does not round trip", got)
		}
	}

	if _, err := FormatID("2026-01-05", 1); err == nil {
		t.Fatalf("expected error for malformed day key")
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	local := time.Date(2026, 3, 2, 5, 0, 0, 0, loc)
	if got := DayKey(local); got != "20260301" {
		t.Fatalf("day key %s, want 20260301", got)
	}
}

func TestParseID(t *testing.T) {
	day, seq, err := ParseID("INS-20261016-00123")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if day != "20261016" || seq != 123 {
		t.Fatalf("got %s %d", day, seq)
	}

	for _, bad := range []string{"", "INS-2026101-00001", "INS-20261016-0001", "ins-20261016-00001", "INS-20261399-00001", "INS-20261016-00000", "INS-20261016-00001x"} {
		if ValidID(bad) {
			t.Fatalf("%q accepted", bad)
		}
	}
}

func TestCooldownCutoff(t *testing.T) {
	n := time.Date(2026, 10, 31, 12, 0, 0, 0, time.UTC)
	want := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	if got := CooldownCutoff(n, 0); !got.Equal(want) {
		t.Fatalf("cutoff %v, want %v", got, want)
	}
	if got := CooldownCutoff(n, 48*time.Hour); !got.Equal(n.Add(-48 * time.Hour)) {
		t.Fatalf("custom window cutoff %v", got)
	}
}
