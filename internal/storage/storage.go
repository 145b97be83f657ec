// Package storage moves finished recordings out of the temporary cache into
// the permanent recordings directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	TempFilePrefix       = "temp_recording"
	PersistentFilePrefix = "recording"
	Extension            = ".wav"
)

// ErrTempFileMissing is returned when the file to promote does not exist.
var ErrTempFileMissing = errors.New("temporary recording not found")

// RecordingStorage owns the temp and recordings directories on fs.
type RecordingStorage struct {
	fs            afero.Fs
	tempDir       string
	recordingsDir string
	now           func() time.Time
}

// New returns a RecordingStorage. Use afero.NewOsFs() for the real disk.
func New(fs afero.Fs, tempDir, recordingsDir string) *RecordingStorage {
	return &RecordingStorage{
		fs:            fs,
		tempDir:       tempDir,
		recordingsDir: recordingsDir,
		now:           time.Now,
	}
}

// NewTempFile creates an empty, uniquely named file in the temp directory and
// returns its path.
func (s *RecordingStorage) NewTempFile() (string, error) {
	if err := s.fs.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s%s", TempFilePrefix, uuid.NewString(), Extension)
	path := filepath.Join(s.tempDir, name)
	f, err := s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	return path, nil
}

// SavePersistently copies tempPath into the recordings directory and returns
// the new path. Temporary files are removed whether or not the copy succeeds.
func (s *RecordingStorage) SavePersistently(ctx context.Context, tempPath string) (path string, err error) {
	defer func() {
		if cerr := s.CleanUpTemporaryFiles(context.WithoutCancel(ctx)); cerr != nil {
			slog.Warn("Failed to clean up temporary recordings", "error", cerr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := s.fs.Open(tempPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTempFileMissing, tempPath)
		}
		return "", fmt.Errorf("failed to open temp recording: %w", err)
	}
	defer src.Close()

	if err := s.fs.MkdirAll(s.recordingsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory: %w", err)
	}

	dst, path, err := s.createPersistentFile()
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		s.fs.Remove(path)
		return "", fmt.Errorf("failed to copy recording: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.fs.Remove(path)
		return "", fmt.Errorf("failed to finalize recording: %w", err)
	}

	slog.Info("Recording saved", "path", path)
	return path, nil
}

func (s *RecordingStorage) createPersistentFile() (afero.File, string, error) {
	stamp := s.now().UTC().Format("20060102T150405.000")
	base := fmt.Sprintf("%s_%s", PersistentFilePrefix, stamp)

	for i := 0; i < 100; i++ {
		name := base + Extension
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, Extension)
		}
		path := filepath.Join(s.recordingsDir, name)
		f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create recording file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("failed to create recording file: too many files named %s", base)
}

// CleanUpTemporaryFiles deletes every temp recording in the temp directory.
func (s *RecordingStorage) CleanUpTemporaryFiles(ctx context.Context) error {
	entries, err := afero.ReadDir(s.fs, s.tempDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list temp directory: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempFilePrefix) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.tempDir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListRecordings returns the persistent recordings on disk, sorted by name.
func (s *RecordingStorage) ListRecordings() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.recordingsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), PersistentFilePrefix) {
			paths = append(paths, filepath.Join(s.recordingsDir, e.Name()))
		}
	}
	return paths, nil
}

// RemoveRecording deletes a persistent recording. Paths outside the
// recordings directory are rejected.
func (s *RecordingStorage) RemoveRecording(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.recordingsDir) {
		return fmt.Errorf("refusing to remove %s: not in %s", path, s.recordingsDir)
	}
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	return nil
}
