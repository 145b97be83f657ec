package journal

import (
	"context"
	"testing"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/waveform"
)

func TestFilter_Matches(t *testing.T) {
	r := record.Record{Mood: record.MoodSad, Topics: []string{"work", "family"}}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"mood match", Filter{Moods: []record.Mood{record.MoodSad, record.MoodExcited}}, true},
		{"mood miss", Filter{Moods: []record.Mood{record.MoodExcited}}, false},
		{"topic match", Filter{Topics: []string{"family"}}, true},
		{"topic miss", Filter{Topics: []string{"travel"}}, false},
		{"both must match", Filter{Moods: []record.Mood{record.MoodSad}, Topics: []string{"travel"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeline_GroupsByDay(t *testing.T) {
	now := time.Date(2024, 5, 10, 18, 0, 0, 0, time.Local)
	f := newFixture(t, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	old := f.insert(t, "old", now.AddDate(0, 0, -3), record.MoodPeaceful, "travel")
	morning := f.insert(t, "morning", now.Add(-8*time.Hour), record.MoodNeutral, "work")
	yesterday := f.insert(t, "yesterday", now.AddDate(0, 0, -1), record.MoodSad)
	evening := f.insert(t, "evening", now.Add(-time.Hour), record.MoodExcited, "work")

	if err := f.j.PlayRecord(ctx, morning); err != nil {
		t.Fatalf("PlayRecord failed: %v", err)
	}

	track := waveform.TrackSize{TrackWidth: 100, BarWidth: 10, Spacing: 10}
	days, err := f.j.Timeline(ctx, Filter{}, &track)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}

	wantLabels := []string{"Today", "Yesterday", "07 May"}
	if len(days) != len(wantLabels) {
		t.Fatalf("Expected %d days, got %d", len(wantLabels), len(days))
	}
	for i, want := range wantLabels {
		if days[i].Label != want {
			t.Errorf("Day %d: expected %q, got %q", i, want, days[i].Label)
		}
	}

	today := days[0].Entries
	if len(today) != 2 || today[0].ID != evening || today[1].ID != morning {
		t.Fatalf("Expected evening then morning today, got %+v", today)
	}
	if today[1].Playback != PlaybackPlaying || today[0].Playback != PlaybackStopped {
		t.Errorf("Expected only the selected entry playing, got %s and %s", today[0].Playback, today[1].Playback)
	}
	if len(today[0].Waveform) != 5 {
		t.Errorf("Expected 5 bars, got %d", len(today[0].Waveform))
	}
	if days[1].Entries[0].ID != yesterday || days[2].Entries[0].ID != old {
		t.Error("Unexpected entries in older days")
	}

	f.j.PauseRecord()
	days, _ = f.j.Timeline(ctx, Filter{}, nil)
	if days[0].Entries[1].Playback != PlaybackPaused {
		t.Errorf("Expected paused entry, got %s", days[0].Entries[1].Playback)
	}
	if days[0].Entries[0].Waveform != nil {
		t.Error("Expected no waveform without a track size")
	}
}

func TestTimeline_Filter(t *testing.T) {
	now := time.Date(2024, 5, 10, 18, 0, 0, 0, time.Local)
	f := newFixture(t, Options{Now: func() time.Time { return now }})

	f.insert(t, "a", now.Add(-time.Hour), record.MoodSad, "work")
	f.insert(t, "b", now.Add(-2*time.Hour), record.MoodSad, "travel")
	f.insert(t, "c", now.AddDate(0, 0, -1), record.MoodExcited, "work")

	days, err := f.j.Timeline(context.Background(), Filter{Topics: []string{"work"}}, nil)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	var titles []string
	for _, d := range days {
		for _, e := range d.Entries {
			titles = append(titles, e.Title)
		}
	}
	if len(titles) != 2 || titles[0] != "a" || titles[1] != "c" {
		t.Errorf("Expected [a c], got %v", titles)
	}
}

func TestWatchTimeline_EmitsOnInsert(t *testing.T) {
	f := newFixture(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := f.j.WatchTimeline(ctx, Filter{}, nil)
	f.insert(t, "fresh", time.Now(), record.MoodNeutral)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case days := <-updates:
			if len(days) == 1 && len(days[0].Entries) == 1 && days[0].Entries[0].Title == "fresh" {
				return
			}
		case <-timeout:
			t.Fatal("Timed out waiting for timeline update")
		}
	}
}
