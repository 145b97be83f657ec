package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{1499 * time.Millisecond, "0:01"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{12*time.Minute + 5*time.Second, "12:05"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderWaveform(t *testing.T) {
	out := renderWaveform([]float64{0.25, 0.5, 1, 1}, 0.5)
	for _, glyph := range []string{"▂", "▄", "█"} {
		if !strings.Contains(out, glyph) {
			t.Errorf("Expected %q in %q", glyph, out)
		}
	}
	if n := strings.Count(out, "█"); n != 2 {
		t.Errorf("Expected two full bars, got %d", n)
	}
}
