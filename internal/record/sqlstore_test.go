package record

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "db", "journal.db"))
	if err != nil {
		t.Fatalf("OpenSQLStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(title string, at time.Time, topics ...string) Record {
	return Record{
		Mood:                MoodPeaceful,
		Title:               title,
		Topics:              topics,
		AudioFilePath:       "/rec/" + title + ".wav",
		AudioPlaybackLength: 3500 * time.Millisecond,
		AudioAmplitudes:     []float64{0.25, 0.5, 1},
		RecordedAt:          at,
	}
}

func TestSQLStore_InsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	note := "walk in the park"
	r := sampleRecord("morning", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), "work", "family", "work")
	r.Note = &note

	id, err := s.InsertRecord(ctx, r)
	if err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected a generated id")
	}

	got, err := s.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Title != "morning" || got.Mood != MoodPeaceful || got.Note == nil || *got.Note != note {
		t.Errorf("Unexpected record: %+v", got)
	}
	if !reflect.DeepEqual(got.Topics, []string{"family", "work"}) {
		t.Errorf("Expected sorted, de-duplicated topics, got %v", got.Topics)
	}
	if !reflect.DeepEqual(got.AudioAmplitudes, []float64{0.25, 0.5, 1}) {
		t.Errorf("Unexpected amplitudes: %v", got.AudioAmplitudes)
	}
	if got.AudioPlaybackLength != 3500*time.Millisecond {
		t.Errorf("Expected 3.5s length, got %s", got.AudioPlaybackLength)
	}
	if !got.RecordedAt.Equal(r.RecordedAt) {
		t.Errorf("Expected recordedAt %s, got %s", r.RecordedAt, got.RecordedAt)
	}

	if _, err := s.GetRecord(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLStore_ListOrderedNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, title := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 48 * time.Hour, 24 * time.Hour}
		if _, err := s.InsertRecord(ctx, sampleRecord(title, base.Add(offsets[i]))); err != nil {
			t.Fatalf("InsertRecord failed: %v", err)
		}
	}

	records, err := s.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	var titles []string
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	if !reflect.DeepEqual(titles, []string{"newest", "middle", "old"}) {
		t.Errorf("Expected newest first, got %v", titles)
	}
}

func TestSQLStore_Topics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	s.InsertRecord(ctx, sampleRecord("a", now, "work", "workout"))
	s.InsertRecord(ctx, sampleRecord("b", now, "family", "work"))

	topics, err := s.ListTopics(ctx)
	if err != nil {
		t.Fatalf("ListTopics failed: %v", err)
	}
	if !reflect.DeepEqual(topics, []string{"family", "work", "workout"}) {
		t.Errorf("Unexpected topics: %v", topics)
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	select {
	case found := <-s.SearchTopics(sctx, "ork"):
		if !reflect.DeepEqual(found, []string{"work", "workout"}) {
			t.Errorf("Unexpected search result: %v", found)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SearchTopics emitted nothing")
	}

	select {
	case found := <-s.SearchTopics(sctx, "%"):
		if len(found) != 0 {
			t.Errorf("Expected wildcard to be matched literally, got %v", found)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SearchTopics emitted nothing")
	}
}

func TestSQLStore_ObserveRecordsEmitsOnInsert(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := s.ObserveRecords(ctx)
	select {
	case initial := <-updates:
		if len(initial) != 0 {
			t.Errorf("Expected empty initial list, got %d", len(initial))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ObserveRecords emitted nothing")
	}

	if _, err := s.InsertRecord(context.Background(), sampleRecord("new", time.Now(), "x")); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	select {
	case next := <-updates:
		if len(next) != 1 || next[0].Title != "new" {
			t.Errorf("Expected the inserted record, got %+v", next)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ObserveRecords did not emit after insert")
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("ObserveRecords channel not closed after cancel")
		}
	}
}
