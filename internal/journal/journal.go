// Package journal coordinates the recorder, the player and the record store
// into the operations a journal front end needs.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/player"
	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/recorder"
	"github.com/audiolibrelab/voicejournal/internal/waveform"
)

var (
	ErrSaveFailed     = errors.New("failed to save recording")
	ErrNoRecording    = errors.New("no recording to save")
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidDraft   = errors.New("invalid draft")
)

// VoiceRecorder captures one session at a time.
type VoiceRecorder interface {
	Start() error
	Pause()
	Resume()
	Stop() recorder.Details
	Cancel()
	Details() recorder.Details
	Subscribe(ctx context.Context) <-chan recorder.Details
}

// AudioPlayer plays one file at a time.
type AudioPlayer interface {
	Play(path string, onComplete func()) error
	Pause()
	Resume()
	Stop()
	SeekTo(path string, onComplete func(), ratio float64)
	SetPendingSeek(ratio *float64)
	Track() player.Track
	Subscribe(ctx context.Context) <-chan player.Track
}

// FileMover promotes temp recordings to permanent storage.
type FileMover interface {
	SavePersistently(ctx context.Context, tempPath string) (string, error)
	CleanUpTemporaryFiles(ctx context.Context) error
}

// Preferences supplies defaults for new entries.
type Preferences interface {
	DefaultMood() (record.Mood, error)
	DefaultTopics() ([]string, error)
}

// CaptureMethod says how a recording was started.
type CaptureMethod int

const (
	// CaptureStandard is a recording the user controls from the recording panel.
	CaptureStandard CaptureMethod = iota
	// CaptureQuick is a press-and-hold recording that ends when released.
	CaptureQuick
)

func (m CaptureMethod) String() string {
	if m == CaptureQuick {
		return "quick"
	}
	return "standard"
}

// Options configures a Journal.
type Options struct {
	MinDuration  time.Duration
	HandoffTrack waveform.TrackSize
	Now          func() time.Time
}

// Journal is safe for concurrent use.
type Journal struct {
	recorder VoiceRecorder
	player   AudioPlayer
	store    record.Store
	files    FileMover
	prefs    Preferences
	opts     Options

	mu         sync.Mutex
	method     CaptureMethod
	capturing  bool
	selectedID int64
	saved      SavedState
}

// New returns a Journal. prefs may be nil.
func New(rec VoiceRecorder, pl AudioPlayer, store record.Store, files FileMover, prefs Preferences, opts Options) *Journal {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Journal{
		recorder: rec,
		player:   pl,
		store:    store,
		files:    files,
		prefs:    prefs,
		opts:     opts,
	}
}

// Recording returns the live recording session.
func (j *Journal) Recording() recorder.Details {
	return j.recorder.Details()
}

// SubscribeRecording streams the live recording session.
func (j *Journal) SubscribeRecording(ctx context.Context) <-chan recorder.Details {
	return j.recorder.Subscribe(ctx)
}

// StartRecording begins a capture session.
func (j *Journal) StartRecording(method CaptureMethod) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.recorder.Start(); err != nil {
		return err
	}
	j.method = method
	j.capturing = true
	slog.Info("Capture started", "method", method)
	return nil
}

// PauseRecording pauses the active capture session.
func (j *Journal) PauseRecording() {
	j.recorder.Pause()
}

// ResumeRecording continues a paused capture session.
func (j *Journal) ResumeRecording() {
	j.recorder.Resume()
}

// CancelRecording discards the active session and its temp files.
func (j *Journal) CancelRecording(ctx context.Context) {
	j.mu.Lock()
	j.capturing = false
	j.mu.Unlock()

	j.recorder.Cancel()
	if err := j.files.CleanUpTemporaryFiles(ctx); err != nil {
		slog.Warn("Failed to clean up temporary recordings", "error", err)
	}
}

// OutcomeKind classifies a finished capture session.
type OutcomeKind int

const (
	OutcomeTooShort OutcomeKind = iota
	OutcomeDone
)

func (k OutcomeKind) String() string {
	if k == OutcomeDone {
		return "done"
	}
	return "too short"
}

// Outcome is the result of CompleteRecording. For OutcomeDone, Details holds
// the temp file and the amplitudes normalized to the hand-off track.
type Outcome struct {
	Kind    OutcomeKind
	Details recorder.Details
}

// CompleteRecording stops the session. Sessions shorter than the minimum
// duration are discarded and reported as too short.
func (j *Journal) CompleteRecording(ctx context.Context) (Outcome, error) {
	j.mu.Lock()
	j.capturing = false
	j.mu.Unlock()

	details := j.recorder.Stop()
	if details.Duration < j.opts.MinDuration || details.TempFilePath == "" {
		slog.Info("Recording too short, discarding", "duration", details.Duration, "min", j.opts.MinDuration)
		if err := j.files.CleanUpTemporaryFiles(ctx); err != nil {
			slog.Warn("Failed to clean up temporary recordings", "error", err)
		}
		return Outcome{Kind: OutcomeTooShort, Details: details}, nil
	}

	normalized, err := j.opts.HandoffTrack.Normalize(details.Amplitudes)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to normalize amplitudes: %w", err)
	}
	details.Amplitudes = normalized
	return Outcome{Kind: OutcomeDone, Details: details}, nil
}

// SetForeground reports whether the front end is visible. Losing the
// foreground pauses a standard capture that is actively recording.
func (j *Journal) SetForeground(foreground bool) {
	if foreground {
		return
	}

	j.mu.Lock()
	shouldPause := j.capturing && j.method == CaptureStandard
	j.mu.Unlock()

	if shouldPause && j.recorder.Details().State == recorder.StateRecording {
		slog.Info("Lost foreground, pausing recording")
		j.recorder.Pause()
	}
}
