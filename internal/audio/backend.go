package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/config"
)

// BackendType represents the type of audio backend
type BackendType string

const (
	BackendTypePortAudio BackendType = "portaudio"
	BackendTypeAuto      BackendType = "auto"
)

// Backend creates devices bound to one audio subsystem.
type Backend interface {
	NewCaptureDevice() CaptureDevice
	NewPlaybackEngine() PlaybackEngine

	// List available host devices
	ListDevices() ([]DeviceInfo, error)

	Type() BackendType
}

// BackendFactory builds a Backend for a PCM format.
type BackendFactory func(Format) Backend

var (
	backendsMu sync.RWMutex
	backends   = make(map[BackendType]BackendFactory)
)

// RegisterBackend makes a backend available to NewBackend. Implementations
// call it from init.
func RegisterBackend(t BackendType, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[t] = factory
}

// NewBackend creates the backend selected by the audio configuration.
func NewBackend(cfg *config.Config) (Backend, error) {
	t := determineBackend(cfg)

	backendsMu.RLock()
	factory, ok := backends[t]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("audio backend '%s' is not available (registered: %v)", t, GetAvailableBackends())
	}
	return factory(FormatFromConfig(cfg.Audio)), nil
}

// GetAvailableBackends returns the registered backends
func GetAvailableBackends() []BackendType {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	result := make([]BackendType, 0, len(backends))
	for t := range backends {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// FormatFromConfig converts the audio section into a Format.
func FormatFromConfig(a config.AudioConfig) Format {
	return Format{
		SampleRate:      a.SampleRate,
		Channels:        a.Channels,
		BitDepth:        a.BitDepth,
		FramesPerBuffer: a.FramesPerBuffer,
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	switch b := strings.ToLower(cfg.Audio.Backend); b {
	case "", string(BackendTypeAuto):
		// PortAudio is the only hardware backend
		return BackendTypePortAudio
	default:
		return BackendType(b)
	}
}

// FramesDuration converts a frame count at sampleRate into a duration.
func FramesDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
