package models

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:30am", 0, true},
		{"", 0, true},
		{"12", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.clock)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) err = %v, wantErr %v", tt.clock, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.clock, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(570); got != "09:30" {
		t.Errorf("FormatClock(570) = %s", got)
	}
	if got := FormatClock(0); got != "00:00" {
		t.Errorf("FormatClock(0) = %s", got)
	}
}

func TestParseTimeWindow(t *testing.T) {
	w, err := ParseTimeWindow("09:00", "19:00")
	if err != nil {
		t.Fatal(err)
	}
	if w.SpanMinutes() != 600 {
		t.Errorf("SpanMinutes = %d, want 600", w.SpanMinutes())
	}
	if w.StartMinutes() != 540 || w.EndMinutes() != 1140 {
		t.Errorf("bounds = %d..%d", w.StartMinutes(), w.EndMinutes())
	}

	if _, err := ParseTimeWindow("19:00", "09:00"); err == nil {
		t.Error("expected error for end before start")
	}
	if _, err := ParseTimeWindow("09:00", "09:00"); err == nil {
		t.Error("expected error for zero-length window")
	}
	if _, err := ParseTimeWindow("bad", "19:00"); err == nil {
		t.Error("expected error for malformed start")
	}
}
