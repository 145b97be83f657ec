// Package settings persists user preferences for new journal entries.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voicejournal/internal/record"
)

// Settings is the on-disk preferences document.
type Settings struct {
	DefaultMood   record.Mood `yaml:"default_mood"`
	DefaultTopics []string    `yaml:"default_topics"`
}

// Store keeps Settings in a YAML file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store for the file at path. The file is created on the
// first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the settings file. A missing file yields the defaults.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Settings, error) {
	var st Settings
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("error reading settings %s: %w", s.path, err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &st); err != nil {
			return Settings{}, fmt.Errorf("error parsing settings %s: %w", s.path, err)
		}
	}
	if _, err := record.ParseMood(string(st.DefaultMood)); err != nil {
		st.DefaultMood = record.MoodNeutral
	}
	return st, nil
}

func (s *Store) update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocked()
	if err != nil {
		return err
	}
	fn(&st)

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("error creating settings directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("error writing settings: %w", err)
	}
	return nil
}

// DefaultMood returns the mood preselected for new entries.
func (s *Store) DefaultMood() (record.Mood, error) {
	st, err := s.Load()
	return st.DefaultMood, err
}

// SaveDefaultMood stores mood as the default.
func (s *Store) SaveDefaultMood(mood record.Mood) error {
	if _, err := record.ParseMood(string(mood)); err != nil {
		return err
	}
	return s.update(func(st *Settings) { st.DefaultMood = mood })
}

// DefaultTopics returns the topics preselected for new entries.
func (s *Store) DefaultTopics() ([]string, error) {
	st, err := s.Load()
	return st.DefaultTopics, err
}

// SaveDefaultTopics stores topics, sorted and without duplicates.
func (s *Store) SaveDefaultTopics(topics []string) error {
	set := slices.Clone(topics)
	slices.Sort(set)
	set = slices.Compact(set)
	set = slices.DeleteFunc(set, func(t string) bool { return t == "" })
	return s.update(func(st *Settings) { st.DefaultTopics = set })
}

// ObserveDefaultMood emits the default mood now and whenever it changes on
// disk, until ctx is done.
func (s *Store) ObserveDefaultMood(ctx context.Context) (<-chan record.Mood, error) {
	return observe(ctx, s, func(st Settings) record.Mood { return st.DefaultMood }, func(a, b record.Mood) bool { return a == b })
}

// ObserveDefaultTopics emits the default topics now and whenever they change.
func (s *Store) ObserveDefaultTopics(ctx context.Context) (<-chan []string, error) {
	return observe(ctx, s, func(st Settings) []string { return st.DefaultTopics }, slices.Equal[[]string])
}

func observe[T any](ctx context.Context, s *Store, pick func(Settings) T, equal func(a, b T) bool) (<-chan T, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating settings directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create settings watcher: %w", err)
	}
	// Watch the directory; saves replace the file by rename.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer watcher.Close()

		var last T
		first := true
		emit := func() bool {
			st, err := s.Load()
			if err != nil {
				slog.Warn("Failed to reload settings", "error", err)
				return true
			}
			v := pick(st)
			if !first && equal(last, v) {
				return true
			}
			select {
			case out <- v:
				last, first = v, false
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !emit() {
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Settings watcher error", "error", err)
			}
		}
	}()
	return out, nil
}
