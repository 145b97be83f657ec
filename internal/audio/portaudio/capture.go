package portaudio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	pa "github.com/gordonklaus/portaudio"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

// captureDevice records the default input device into a WAV file.
type captureDevice struct {
	format audio.Format

	mu       sync.Mutex
	path     string
	sink     *audio.WAVSink
	stream   *pa.Stream
	running  bool
	acquired bool

	peak     atomic.Int32
	writeErr atomic.Bool
}

func (c *captureDevice) Open(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return fmt.Errorf("capture device already prepared")
	}
	c.path = path
	return nil
}

func (c *captureDevice) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return fmt.Errorf("capture device has no output file")
	}
	if err := acquirePortAudio(); err != nil {
		return err
	}
	c.acquired = true

	dev, err := pa.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("no default input device: %w", err)
	}

	channels := c.format.Channels
	if dev.MaxInputChannels > 0 && dev.MaxInputChannels < channels {
		channels = dev.MaxInputChannels
	}
	format := c.format
	format.Channels = channels

	sink, err := audio.CreateWAV(c.path, format)
	if err != nil {
		return err
	}

	params := pa.HighLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = format.FramesPerBuffer

	stream, err := pa.OpenStream(params, c.process)
	if err != nil {
		sink.Close()
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	c.sink = sink
	c.stream = stream
	slog.Debug("Capture device prepared", "device", dev.Name, "sample_rate", format.SampleRate, "channels", channels, "file", c.path)
	return nil
}

func (c *captureDevice) process(in []int16) {
	var peak int32
	for _, s := range in {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	for {
		cur := c.peak.Load()
		if peak <= cur || c.peak.CompareAndSwap(cur, peak) {
			break
		}
	}

	if err := c.sink.Write(in); err != nil && !c.writeErr.Swap(true) {
		slog.Error("Failed to write captured audio", "error", err)
	}
}

func (c *captureDevice) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked()
}

func (c *captureDevice) startLocked() error {
	if c.stream == nil {
		return audio.ErrNotPrepared
	}
	if c.running {
		return nil
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	c.running = true
	return nil
}

func (c *captureDevice) Pause() error {
	return c.halt()
}

func (c *captureDevice) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked()
}

// halt stops the stream. Stream.Stop waits for the callback to return, and the
// callback never takes c.mu, so holding it here is safe.
func (c *captureDevice) halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return audio.ErrNotPrepared
	}
	if !c.running {
		return nil
	}
	c.running = false
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

func (c *captureDevice) Stop() error {
	err := c.halt()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		if cerr := c.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *captureDevice) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.stream != nil {
		if c.running {
			c.stream.Stop()
			c.running = false
		}
		err = c.stream.Close()
		c.stream = nil
	}
	if c.sink != nil {
		c.sink.Close()
		c.sink = nil
	}
	if c.acquired {
		releasePortAudio()
		c.acquired = false
	}
	if err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	return nil
}

func (c *captureDevice) MaxAmplitude() int {
	return int(c.peak.Swap(0))
}
