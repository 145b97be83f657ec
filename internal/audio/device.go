package audio

import (
	"errors"
	"time"
)

// ErrNotPrepared is returned when a device is used before Prepare succeeded.
var ErrNotPrepared = errors.New("audio device not prepared")

// Format describes the PCM layout used for capture and playback.
type Format struct {
	SampleRate      int
	Channels        int
	BitDepth        int
	FramesPerBuffer int
}

// DeviceInfo describes a host audio device.
type DeviceInfo struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	DefaultInput      bool
	DefaultOutput     bool
}

// CaptureDevice records from an input into a file. A device is single-use:
// after Release a new one must be created.
type CaptureDevice interface {
	Open(path string) error
	Prepare() error
	Start() error
	Pause() error
	Resume() error
	Stop() error
	Release() error

	// MaxAmplitude returns the peak absolute sample seen since the previous
	// call, in the 16-bit sample range.
	MaxAmplitude() int
}

// PlaybackEngine plays a single audio file. Start reports failures through
// the OnError callback. Callbacks are invoked from a goroutine that holds no
// engine locks.
type PlaybackEngine interface {
	Open(path string) error
	Prepare() error
	Start()
	Pause()
	SeekTo(position time.Duration)
	Stop()
	Release()

	Duration() time.Duration
	Position() time.Duration
	IsPlaying() bool

	SetOnComplete(fn func())
	SetOnError(fn func(error))
}
