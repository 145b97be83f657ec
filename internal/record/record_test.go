package record

import (
	"errors"
	"testing"
)

func TestParseMood(t *testing.T) {
	tests := []struct {
		in      string
		want    Mood
		wantErr bool
	}{
		{"NEUTRAL", MoodNeutral, false},
		{"peaceful", MoodPeaceful, false},
		{"  Excited ", MoodExcited, false},
		{"angry", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMood(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMood) {
				t.Errorf("ParseMood(%q): expected ErrUnknownMood, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMood(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestAmplitudes_ScanValue(t *testing.T) {
	v, err := Amplitudes{0.25, 1, 0.5}.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != "0.25,1,0.5" {
		t.Errorf("Expected comma-joined text, got %v", v)
	}

	var a Amplitudes
	if err := a.Scan([]byte("0.25, 1,0.5")); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(a) != 3 || a[0] != 0.25 || a[1] != 1 || a[2] != 0.5 {
		t.Errorf("Unexpected amplitudes: %v", a)
	}

	if err := a.Scan(""); err != nil || len(a) != 0 {
		t.Errorf("Expected empty amplitudes for empty text, got %v, %v", a, err)
	}
	if err := a.Scan(nil); err != nil || len(a) != 0 {
		t.Errorf("Expected empty amplitudes for NULL, got %v, %v", a, err)
	}
	if err := a.Scan("0.1,abc"); err == nil {
		t.Error("Expected error for malformed amplitude")
	}
	if err := a.Scan(42); err == nil {
		t.Error("Expected error for unsupported type")
	}
}
