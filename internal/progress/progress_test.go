package progress

import (
	"testing"
	"time"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name   string
		played time.Duration
		total  time.Duration
		want   float64
		wantOK bool
	}{
		{"half", 5 * time.Second, 10 * time.Second, 0.5, true},
		{"start", 0, 10 * time.Second, 0, true},
		{"zero total", 3 * time.Second, 0, 0, false},
		{"unknown played", -1, 10 * time.Second, 0, false},
		{"unknown total", time.Second, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Ratio(tt.played, tt.total)
			if ok != tt.wantOK {
				t.Errorf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.3: 0.3, 1: 1, 1.7: 1} {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPosition(t *testing.T) {
	if got := Position(10*time.Second, 0.25); got != 2500*time.Millisecond {
		t.Errorf("Expected 2.5s, got %v", got)
	}
	if got := Position(10*time.Second, 2); got != 10*time.Second {
		t.Errorf("Expected clamped 10s, got %v", got)
	}
}
