package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func newTestStorage() (*RecordingStorage, afero.Fs) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/data/cache", "/data/recordings")
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	return s, fs
}

func TestNewTempFile(t *testing.T) {
	s, fs := newTestStorage()

	a, err := s.NewTempFile()
	if err != nil {
		t.Fatalf("NewTempFile failed: %v", err)
	}
	b, err := s.NewTempFile()
	if err != nil {
		t.Fatalf("NewTempFile failed: %v", err)
	}
	if a == b {
		t.Errorf("Expected unique temp files, got %s twice", a)
	}
	if !strings.HasPrefix(filepath.Base(a), TempFilePrefix) || filepath.Dir(a) != "/data/cache" {
		t.Errorf("Unexpected temp path: %s", a)
	}
	if ok, _ := afero.Exists(fs, a); !ok {
		t.Errorf("Expected temp file %s to exist", a)
	}
}

func TestSavePersistently(t *testing.T) {
	s, fs := newTestStorage()
	temp, _ := s.NewTempFile()
	other, _ := s.NewTempFile()
	afero.WriteFile(fs, temp, []byte("audio-bytes"), 0o644)
	afero.WriteFile(fs, "/data/cache/unrelated.txt", []byte("keep"), 0o644)

	path, err := s.SavePersistently(context.Background(), temp)
	if err != nil {
		t.Fatalf("SavePersistently failed: %v", err)
	}
	if path != "/data/recordings/recording_20240501T123000.000.wav" {
		t.Errorf("Unexpected persistent path: %s", path)
	}
	data, _ := afero.ReadFile(fs, path)
	if string(data) != "audio-bytes" {
		t.Errorf("Expected copied content, got %q", data)
	}

	for _, p := range []string{temp, other} {
		if ok, _ := afero.Exists(fs, p); ok {
			t.Errorf("Expected temp file %s to be cleaned up", p)
		}
	}
	if ok, _ := afero.Exists(fs, "/data/cache/unrelated.txt"); !ok {
		t.Error("Expected unrelated file to survive cleanup")
	}

	// Same timestamp gets a distinct name.
	temp2, _ := s.NewTempFile()
	path2, err := s.SavePersistently(context.Background(), temp2)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if path2 == path {
		t.Errorf("Expected distinct path for second save, got %s", path2)
	}

	listed, err := s.ListRecordings()
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected 2 recordings, got %v", listed)
	}
}

func TestSavePersistently_MissingTempFile(t *testing.T) {
	s, fs := newTestStorage()
	leftover, _ := s.NewTempFile()

	_, err := s.SavePersistently(context.Background(), "/data/cache/temp_recording_gone.wav")
	if !errors.Is(err, ErrTempFileMissing) {
		t.Errorf("Expected ErrTempFileMissing, got: %v", err)
	}
	if ok, _ := afero.Exists(fs, leftover); ok {
		t.Error("Expected temp files to be cleaned up even on failure")
	}
}

func TestCleanUpTemporaryFiles_NoDirectory(t *testing.T) {
	s, _ := newTestStorage()
	if err := s.CleanUpTemporaryFiles(context.Background()); err != nil {
		t.Errorf("Expected no error for missing temp dir, got: %v", err)
	}
}

func TestRemoveRecording(t *testing.T) {
	s, fs := newTestStorage()
	afero.WriteFile(fs, "/data/recordings/recording_a.wav", []byte("a"), 0o644)
	afero.WriteFile(fs, "/data/recordings/recording_b.wav", []byte("b"), 0o644)
	afero.WriteFile(fs, "/data/other.wav", []byte("x"), 0o644)

	if err := s.RemoveRecording("/data/recordings/recording_a.wav"); err != nil {
		t.Fatalf("RemoveRecording failed: %v", err)
	}
	paths, err := s.ListRecordings()
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/data/recordings/recording_b.wav" {
		t.Errorf("Expected only recording_b to remain, got %v", paths)
	}

	if err := s.RemoveRecording("/data/other.wav"); err == nil {
		t.Error("Expected an error for a path outside the recordings directory")
	}
	if ok, _ := afero.Exists(fs, "/data/other.wav"); !ok {
		t.Error("File outside the recordings directory was removed")
	}
	if err := s.RemoveRecording("/data/recordings/recording_a.wav"); err == nil {
		t.Error("Expected an error removing a missing recording")
	}
}
