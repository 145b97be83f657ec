package journal

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/player"
	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/waveform"
)

// Filter keeps records matching any of Moods and any of Topics. An empty list
// matches everything.
type Filter struct {
	Moods  []record.Mood
	Topics []string
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r record.Record) bool {
	if len(f.Moods) > 0 && !slices.Contains(f.Moods, r.Mood) {
		return false
	}
	if len(f.Topics) > 0 && !slices.ContainsFunc(f.Topics, func(t string) bool {
		return slices.Contains(r.Topics, t)
	}) {
		return false
	}
	return true
}

// PlaybackState of a record in the timeline.
type PlaybackState int

const (
	PlaybackStopped PlaybackState = iota
	PlaybackPlaying
	PlaybackPaused
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Entry is a record decorated for display.
type Entry struct {
	record.Record
	Playback        PlaybackState
	CurrentPosition time.Duration
	Waveform        []float64 // nil when no track size was given
}

// Day groups the entries recorded on one local calendar day, newest first.
type Day struct {
	Label   string
	Date    time.Time
	Entries []Entry
}

// Timeline lists the stored records that pass filter, grouped by day. When
// track is non-nil every entry carries a waveform normalized to it.
func (j *Journal) Timeline(ctx context.Context, filter Filter, track *waveform.TrackSize) ([]Day, error) {
	records, err := j.store.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	return j.buildTimeline(records, j.player.Track(), filter, track)
}

// WatchTimeline emits a fresh timeline whenever the records or the playback
// track change, until ctx is done.
func (j *Journal) WatchTimeline(ctx context.Context, filter Filter, track *waveform.TrackSize) <-chan []Day {
	out := make(chan []Day)
	go func() {
		defer close(out)
		recordsCh := j.store.ObserveRecords(ctx)
		trackCh := j.player.Subscribe(ctx)

		var (
			records  []record.Record
			current  player.Track
			haveRecs bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case rs, ok := <-recordsCh:
				if !ok {
					return
				}
				records, haveRecs = rs, true
			case t, ok := <-trackCh:
				if !ok {
					return
				}
				current = t
			}
			if !haveRecs {
				continue
			}
			days, err := j.buildTimeline(records, current, filter, track)
			if err != nil {
				slog.Error("Failed to build timeline", "error", err)
				continue
			}
			select {
			case out <- days:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (j *Journal) buildTimeline(records []record.Record, current player.Track, filter Filter, track *waveform.TrackSize) ([]Day, error) {
	selected := j.Selected()
	now := j.opts.Now()

	var days []Day
	index := make(map[int64]int)
	for _, r := range records {
		if !filter.Matches(r) {
			continue
		}

		e := Entry{Record: r}
		if r.ID == selected && selected != 0 {
			e.CurrentPosition = current.DurationPlayed
			e.Playback = PlaybackPaused
			if current.IsPlaying {
				e.Playback = PlaybackPlaying
			}
		}
		if track != nil {
			wf, err := track.Normalize(r.AudioAmplitudes)
			if err != nil {
				return nil, err
			}
			e.Waveform = wf
		}

		date := localDate(r.RecordedAt)
		if i, ok := index[date.Unix()]; ok {
			days[i].Entries = append(days[i].Entries, e)
			continue
		}
		index[date.Unix()] = len(days)
		days = append(days, Day{Label: dayLabel(date, now), Date: date, Entries: []Entry{e}})
	}

	slices.SortStableFunc(days, func(a, b Day) int { return b.Date.Compare(a.Date) })
	for i := range days {
		slices.SortStableFunc(days[i].Entries, func(a, b Entry) int { return b.RecordedAt.Compare(a.RecordedAt) })
	}
	return days, nil
}

func localDate(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func dayLabel(date, now time.Time) string {
	today := localDate(now)
	switch {
	case date.Equal(today):
		return "Today"
	case date.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return date.Format("02 Jan")
	}
}
