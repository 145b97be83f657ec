// Package audiotest provides in-memory audio devices for tests.
package audiotest

import (
	"os"
	"sync"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

// Capture is a scripted audio.CaptureDevice. Open creates the target file so
// storage code sees a real recording.
type Capture struct {
	mu sync.Mutex

	OpenErr    error
	PrepareErr error
	StartErr   error
	StopErr    error

	Path     string
	Calls    []string
	Released bool
	peaks    []int
	peak     int
}

// SetPeaks queues values returned by successive MaxAmplitude calls. Once the
// queue is drained the last value repeats.
func (c *Capture) SetPeaks(peaks ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peaks = append(c.peaks, peaks...)
}

func (c *Capture) record(call string) {
	c.Calls = append(c.Calls, call)
}

func (c *Capture) Open(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("open")
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.Path = path
	return os.WriteFile(path, []byte("RIFF"), 0o644)
}

func (c *Capture) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("prepare")
	return c.PrepareErr
}

func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("start")
	return c.StartErr
}

func (c *Capture) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("pause")
	return nil
}

func (c *Capture) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("resume")
	return nil
}

func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("stop")
	return c.StopErr
}

func (c *Capture) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("release")
	c.Released = true
	return nil
}

func (c *Capture) MaxAmplitude() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.peaks) > 0 {
		c.peak = c.peaks[0]
		c.peaks = c.peaks[1:]
	}
	return c.peak
}

// CallLog returns a copy of the recorded method calls.
func (c *Capture) CallLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Calls...)
}

// Engine is a manually driven audio.PlaybackEngine. Position only moves when
// the test calls Advance.
type Engine struct {
	mu sync.Mutex

	OpenErr    error
	PrepareErr error
	Length     time.Duration

	Path       string
	Prepared   bool
	Released   bool
	playing    bool
	position   time.Duration
	seeks      []time.Duration
	onComplete func()
	onError    func(error)
}

func (e *Engine) Open(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.OpenErr != nil {
		return e.OpenErr
	}
	e.Path = path
	return nil
}

func (e *Engine) Prepare() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PrepareErr != nil {
		return e.PrepareErr
	}
	e.Prepared = true
	return nil
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *Engine) SeekTo(position time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = position
	e.seeks = append(e.seeks, position)
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	e.position = 0
}

func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Released = true
	e.playing = false
}

func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Length
}

func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *Engine) SetOnComplete(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

func (e *Engine) SetOnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = fn
}

// Advance moves the playback position forward by d, capped at Length.
func (e *Engine) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = min(e.position+d, e.Length)
}

// Seeks returns every position passed to SeekTo.
func (e *Engine) Seeks() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.seeks...)
}

// Complete simulates the end of the file and fires the completion callback.
func (e *Engine) Complete() {
	e.mu.Lock()
	e.playing = false
	e.position = e.Length
	fn := e.onComplete
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Fail fires the error callback with err.
func (e *Engine) Fail(err error) {
	e.mu.Lock()
	e.playing = false
	fn := e.onError
	e.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Backend hands out pre-built fakes. When a queue is empty a fresh default
// fake is created.
type Backend struct {
	mu       sync.Mutex
	Captures []*Capture
	Engines  []*Engine
	Created  []*Capture
	Opened   []*Engine

	EngineLength time.Duration
}

func (b *Backend) NewCaptureDevice() audio.CaptureDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &Capture{}
	if len(b.Captures) > 0 {
		c = b.Captures[0]
		b.Captures = b.Captures[1:]
	}
	b.Created = append(b.Created, c)
	return c
}

func (b *Backend) NewPlaybackEngine() audio.PlaybackEngine {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &Engine{Length: b.EngineLength}
	if len(b.Engines) > 0 {
		e = b.Engines[0]
		b.Engines = b.Engines[1:]
	}
	b.Opened = append(b.Opened, e)
	return e
}

func (b *Backend) ListDevices() ([]audio.DeviceInfo, error) {
	return []audio.DeviceInfo{{Name: "fake", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultInput: true, DefaultOutput: true}}, nil
}

func (b *Backend) Type() audio.BackendType {
	return "fake"
}

// LastCapture returns the most recently created capture device.
func (b *Backend) LastCapture() *Capture {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Created) == 0 {
		return nil
	}
	return b.Created[len(b.Created)-1]
}

// LastEngine returns the most recently created engine.
func (b *Backend) LastEngine() *Engine {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Opened) == 0 {
		return nil
	}
	return b.Opened[len(b.Opened)-1]
}
