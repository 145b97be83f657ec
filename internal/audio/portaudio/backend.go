// Package portaudio provides the PortAudio capture and playback devices.
// Importing it registers the "portaudio" backend.
package portaudio

import (
	"fmt"
	"log/slog"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

func init() {
	audio.RegisterBackend(audio.BackendTypePortAudio, func(format audio.Format) audio.Backend {
		return NewBackend(format)
	})
}

// Backend implements audio.Backend on top of the PortAudio library.
type Backend struct {
	format audio.Format
}

// NewBackend returns a backend producing devices that use format.
func NewBackend(format audio.Format) *Backend {
	return &Backend{format: format}
}

func (b *Backend) NewCaptureDevice() audio.CaptureDevice {
	return &captureDevice{format: b.format}
}

func (b *Backend) NewPlaybackEngine() audio.PlaybackEngine {
	return &playbackEngine{framesPerBuffer: b.format.FramesPerBuffer}
}

func (b *Backend) Type() audio.BackendType {
	return audio.BackendTypePortAudio
}

// ListDevices returns every device PortAudio can see.
func (b *Backend) ListDevices() ([]audio.DeviceInfo, error) {
	if err := acquirePortAudio(); err != nil {
		return nil, err
	}
	defer releasePortAudio()

	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}
	defIn, _ := pa.DefaultInputDevice()
	defOut, _ := pa.DefaultOutputDevice()

	result := make([]audio.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		info := audio.DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			DefaultInput:      defIn != nil && d.Name == defIn.Name,
			DefaultOutput:     defOut != nil && d.Name == defOut.Name,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		result = append(result, info)
	}
	return result, nil
}

// PortAudio must be initialised once per process for as long as any stream is
// open; these keep a reference count across devices.
var (
	paMu   sync.Mutex
	paRefs int
)

func acquirePortAudio() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		if err := pa.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
		slog.Debug("PortAudio initialized")
	}
	paRefs++
	return nil
}

func releasePortAudio() {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		return
	}
	paRefs--
	if paRefs == 0 {
		if err := pa.Terminate(); err != nil {
			slog.Warn("Failed to terminate PortAudio", "error", err)
			return
		}
		slog.Debug("PortAudio terminated")
	}
}
