package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/voicejournal/internal/player"
	"github.com/audiolibrelab/voicejournal/internal/progress"
	"github.com/audiolibrelab/voicejournal/internal/record"
)

// SavedState is the playback selection worth keeping across restarts.
type SavedState struct {
	SelectedID int64    `yaml:"selected_id"`
	Progress   *float64 `yaml:"progress,omitempty"`
}

// SavedState returns the state to persist.
func (j *Journal) SavedState() SavedState {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.saved
	if s.Progress != nil {
		p := *s.Progress
		s.Progress = &p
	}
	return s
}

// Selected returns the id of the record bound to the player, or 0.
func (j *Journal) Selected() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.selectedID
}

// Playback returns the player's track.
func (j *Journal) Playback() player.Track {
	return j.player.Track()
}

// SubscribePlayback streams the player's track.
func (j *Journal) SubscribePlayback(ctx context.Context) <-chan player.Track {
	return j.player.Subscribe(ctx)
}

func (j *Journal) lookup(ctx context.Context, id int64) (record.Record, error) {
	r, err := j.store.GetRecord(ctx, id)
	if errors.Is(err, record.ErrNotFound) {
		return record.Record{}, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	return r, err
}

// PlayRecord plays record id. A newly selected record, or the selected one
// sitting at its start, is played from the top; otherwise playback resumes.
func (j *Journal) PlayRecord(ctx context.Context, id int64) error {
	r, err := j.lookup(ctx, id)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	isNew := j.selectedID != id
	fromStart := !isNew && j.player.Track().DurationPlayed == 0

	j.selectedID = id
	j.saved.SelectedID = id

	if isNew || fromStart {
		j.player.Stop()
		if err := j.player.Play(r.AudioFilePath, j.completionFor(id)); err != nil {
			return fmt.Errorf("failed to play record %d: %w", id, err)
		}
		return nil
	}
	j.player.Resume()
	return nil
}

// PauseRecord pauses playback and remembers how far it got.
func (j *Journal) PauseRecord() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.player.Pause()
	t := j.player.Track()
	ratio, ok := progress.Ratio(t.DurationPlayed, t.TotalDuration)
	if !ok {
		ratio = 0
	}
	ratio = progress.Clamp(ratio)
	j.saved.Progress = &ratio
}

// SeekRecord moves record id to ratio, selecting it if needed. Any pending
// seek left over from a restore is dropped first.
func (j *Journal) SeekRecord(ctx context.Context, id int64, ratio float64) error {
	r, err := j.lookup(ctx, id)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.selectedID = id
	j.player.SetPendingSeek(nil)
	j.player.SeekTo(r.AudioFilePath, j.completionFor(id), ratio)

	ratio = progress.Clamp(ratio)
	j.saved = SavedState{SelectedID: id, Progress: &ratio}
	return nil
}

// Restore reselects the record from a previous run and seeks to the saved
// progress. A record that no longer exists is ignored.
func (j *Journal) Restore(ctx context.Context, s SavedState) error {
	if s.SelectedID == 0 {
		return nil
	}
	r, err := j.lookup(ctx, s.SelectedID)
	if errors.Is(err, ErrRecordNotFound) {
		slog.Info("Saved selection no longer exists", "record", s.SelectedID)
		return nil
	}
	if err != nil {
		return err
	}

	ratio := 0.0
	if s.Progress != nil {
		ratio = progress.Clamp(*s.Progress)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.selectedID = s.SelectedID
	j.saved = SavedState{SelectedID: s.SelectedID, Progress: &ratio}
	j.player.SeekTo(r.AudioFilePath, j.completionFor(s.SelectedID), ratio)
	return nil
}

// StopPlayback stops the player and clears the selection.
func (j *Journal) StopPlayback() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.player.Stop()
	j.selectedID = 0
}

// completionFor returns the player callback for record id. It runs on the
// player's goroutine, never while j.mu is held by the caller that started
// playback.
func (j *Journal) completionFor(id int64) func() {
	return func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.selectedID != id {
			return
		}
		j.selectedID = 0
		j.saved = SavedState{}
		slog.Debug("Playback finished", "record", id)
	}
}
