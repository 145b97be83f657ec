package settings

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/record"
)

func TestStore_Defaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))

	mood, err := s.DefaultMood()
	if err != nil {
		t.Fatalf("DefaultMood failed: %v", err)
	}
	if mood != record.MoodNeutral {
		t.Errorf("Expected NEUTRAL by default, got %s", mood)
	}
	topics, err := s.DefaultTopics()
	if err != nil || len(topics) != 0 {
		t.Errorf("Expected no default topics, got %v, %v", topics, err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s := NewStore(path)

	if err := s.SaveDefaultMood(record.MoodExcited); err != nil {
		t.Fatalf("SaveDefaultMood failed: %v", err)
	}
	if err := s.SaveDefaultTopics([]string{"work", "family", "work", ""}); err != nil {
		t.Fatalf("SaveDefaultTopics failed: %v", err)
	}

	reopened := NewStore(path)
	st, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st.DefaultMood != record.MoodExcited {
		t.Errorf("Expected EXCITED, got %s", st.DefaultMood)
	}
	if !reflect.DeepEqual(st.DefaultTopics, []string{"family", "work"}) {
		t.Errorf("Expected sorted unique topics, got %v", st.DefaultTopics)
	}

	if err := s.SaveDefaultMood("GRUMPY"); !errors.Is(err, record.ErrUnknownMood) {
		t.Errorf("Expected ErrUnknownMood, got %v", err)
	}
}

func TestStore_ObserveDefaultMood(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	moods, err := s.ObserveDefaultMood(ctx)
	if err != nil {
		t.Fatalf("ObserveDefaultMood failed: %v", err)
	}

	expect := func(want record.Mood) {
		t.Helper()
		select {
		case got := <-moods:
			if got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("Timed out waiting for %s", want)
		}
	}

	expect(record.MoodNeutral)
	if err := s.SaveDefaultMood(record.MoodSad); err != nil {
		t.Fatalf("SaveDefaultMood failed: %v", err)
	}
	expect(record.MoodSad)

	// Changing topics only must not re-emit the same mood.
	if err := s.SaveDefaultTopics([]string{"x"}); err != nil {
		t.Fatalf("SaveDefaultTopics failed: %v", err)
	}
	if err := s.SaveDefaultMood(record.MoodPeaceful); err != nil {
		t.Fatalf("SaveDefaultMood failed: %v", err)
	}
	expect(record.MoodPeaceful)
}
