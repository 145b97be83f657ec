// Package record holds journal entries and the store that persists them.
package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mood is how the author felt when recording.
type Mood string

const (
	MoodStressed Mood = "STRESSED"
	MoodSad      Mood = "SAD"
	MoodNeutral  Mood = "NEUTRAL"
	MoodPeaceful Mood = "PEACEFUL"
	MoodExcited  Mood = "EXCITED"
)

// Moods lists every mood in display order.
var Moods = []Mood{MoodStressed, MoodSad, MoodNeutral, MoodPeaceful, MoodExcited}

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnknownMood = errors.New("unknown mood")
)

// ParseMood accepts a mood name in any case.
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Moods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
}

// Record is a saved journal entry.
type Record struct {
	ID                  int64 // 0 until inserted
	Mood                Mood
	Title               string
	Note                *string
	Topics              []string
	AudioFilePath       string
	AudioPlaybackLength time.Duration
	AudioAmplitudes     []float64
	RecordedAt          time.Time
}

// Store persists records and their topics.
type Store interface {
	InsertRecord(ctx context.Context, r Record) (int64, error)
	GetRecord(ctx context.Context, id int64) (Record, error)
	ListRecords(ctx context.Context) ([]Record, error)

	// ObserveRecords emits all records, newest first, now and after every change.
	ObserveRecords(ctx context.Context) <-chan []Record
	// ObserveTopics emits all known topics in ascending order.
	ObserveTopics(ctx context.Context) <-chan []string
	// SearchTopics emits topics containing query, ascending.
	SearchTopics(ctx context.Context, query string) <-chan []string

	Close() error
}
