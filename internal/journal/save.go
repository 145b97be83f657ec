package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/recorder"
)

// Draft is a finished recording waiting for its title and tags.
type Draft struct {
	Title   string
	Mood    record.Mood
	Note    string
	Topics  []string
	Details recorder.Details
}

// NewDraft prepares a draft for details with the user's default mood and
// topics.
func (j *Journal) NewDraft(details recorder.Details) Draft {
	d := Draft{Mood: record.MoodNeutral, Details: details}
	if j.prefs == nil {
		return d
	}
	if mood, err := j.prefs.DefaultMood(); err != nil {
		slog.Warn("Failed to load default mood", "error", err)
	} else if mood != "" {
		d.Mood = mood
	}
	if topics, err := j.prefs.DefaultTopics(); err != nil {
		slog.Warn("Failed to load default topics", "error", err)
	} else {
		d.Topics = append([]string(nil), topics...)
	}
	return d
}

// SaveRecording moves the draft's audio to permanent storage and inserts the
// record. If the file cannot be moved the error wraps ErrSaveFailed.
func (j *Journal) SaveRecording(ctx context.Context, d Draft) (record.Record, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return record.Record{}, fmt.Errorf("%w: title is required", ErrInvalidDraft)
	}
	mood, err := record.ParseMood(string(d.Mood))
	if err != nil {
		return record.Record{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if d.Details.TempFilePath == "" {
		return record.Record{}, ErrNoRecording
	}

	path, err := j.files.SavePersistently(ctx, d.Details.TempFilePath)
	if err != nil {
		slog.Error("Failed to save recording file", "file", d.Details.TempFilePath, "error", err)
		return record.Record{}, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	r := record.Record{
		Mood:                mood,
		Title:               title,
		Topics:              cleanTopics(d.Topics),
		AudioFilePath:       path,
		AudioPlaybackLength: d.Details.Duration,
		AudioAmplitudes:     append([]float64(nil), d.Details.Amplitudes...),
		RecordedAt:          j.opts.Now(),
	}
	if note := strings.TrimSpace(d.Note); note != "" {
		r.Note = &note
	}

	id, err := j.store.InsertRecord(ctx, r)
	if err != nil {
		return record.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	r.ID = id

	slog.Info("Journal entry saved", "id", id, "title", title, "file", path)
	return r, nil
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
