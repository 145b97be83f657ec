package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voicejournal/internal/audio"
	_ "github.com/audiolibrelab/voicejournal/internal/audio/portaudio"
	"github.com/audiolibrelab/voicejournal/internal/journal"
	"github.com/audiolibrelab/voicejournal/internal/player"
	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/recorder"
	"github.com/audiolibrelab/voicejournal/internal/settings"
	"github.com/audiolibrelab/voicejournal/internal/storage"
)

// app holds everything a command needs to drive the journal.
type app struct {
	journal  *journal.Journal
	recorder *recorder.Recorder
	player   *player.Player
	store    *record.SQLStore
	files    *storage.RecordingStorage
	settings *settings.Store
}

// newApp wires the journal from cfg. The returned app must be closed.
func newApp(ctx context.Context) (*app, error) {
	backend, err := audio.NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	a, err := newStoreApp()
	if err != nil {
		return nil, err
	}

	a.recorder = (&recorder.Factory{
		Backend:     backend,
		NewTempFile: a.files.NewTempFile,
		Options: recorder.Options{
			MaxAmplitude:      cfg.Recording.MaxAmplitude,
			DurationInterval:  cfg.Recording.DurationInterval,
			AmplitudeInterval: cfg.Recording.AmplitudeInterval,
		},
	}).Create(ctx)

	a.player = (&player.Factory{
		Backend:          backend,
		ProgressInterval: cfg.Playback.ProgressInterval,
	}).Create(ctx)

	a.journal = journal.New(a.recorder, a.player, a.store, a.files, a.settings, journal.Options{
		MinDuration:  cfg.Recording.MinDuration,
		HandoffTrack: cfg.Recording.HandoffTrack,
	})
	return a, nil
}

// newStoreApp opens only the persistent collaborators, for commands that do
// not touch audio devices.
func newStoreApp() (*app, error) {
	store, err := record.OpenSQLStore(cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &app{
		store:    store,
		files:    storage.New(afero.NewOsFs(), cfg.Storage.TempDir, cfg.Storage.RecordingsDir),
		settings: settings.NewStore(cfg.Storage.SettingsFile),
	}, nil
}

func (a *app) Close() {
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func playbackStatePath() string {
	return filepath.Join(cfg.Storage.DataDir, "playback.yaml")
}

func loadPlaybackState() (journal.SavedState, error) {
	var s journal.SavedState
	data, err := os.ReadFile(playbackStatePath())
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("error reading playback state: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("error parsing playback state: %w", err)
	}
	return s, nil
}

func savePlaybackState(s journal.SavedState) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling playback state: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("error creating data directory: %w", err)
	}
	return os.WriteFile(playbackStatePath(), data, 0o644)
}
