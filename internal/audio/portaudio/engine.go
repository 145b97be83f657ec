package portaudio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

// playbackEngine decodes a WAV file into memory and plays it through the
// default output device.
type playbackEngine struct {
	framesPerBuffer int

	mu         sync.Mutex
	path       string
	pcm        *audio.PCM
	pos        int // index into pcm.Samples
	stream     *pa.Stream
	running    bool
	playing    bool
	acquired   bool
	onComplete func()
	onError    func(error)
}

func (e *playbackEngine) Open(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		return fmt.Errorf("playback engine already prepared")
	}
	e.path = path
	return nil
}

func (e *playbackEngine) Prepare() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.path == "" {
		return fmt.Errorf("playback engine has no source file")
	}
	pcm, err := audio.LoadWAV(e.path)
	if err != nil {
		return err
	}
	if err := acquirePortAudio(); err != nil {
		return err
	}
	e.acquired = true

	dev, err := pa.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("no default output device: %w", err)
	}
	params := pa.HighLatencyParameters(nil, dev)
	params.Output.Channels = pcm.Channels
	params.SampleRate = float64(pcm.SampleRate)
	if e.framesPerBuffer > 0 {
		params.FramesPerBuffer = e.framesPerBuffer
	}

	stream, err := pa.OpenStream(params, e.process)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}

	e.pcm = pcm
	e.pos = 0
	e.stream = stream
	slog.Debug("Playback engine prepared", "device", dev.Name, "file", e.path, "duration", pcm.Duration())
	return nil
}

func (e *playbackEngine) process(out []int16) {
	e.mu.Lock()
	n := 0
	if e.playing {
		n = copy(out, e.pcm.Samples[e.pos:])
		e.pos += n
	}
	clear(out[n:])

	var done func()
	if e.playing && e.pos >= len(e.pcm.Samples) {
		e.playing = false
		done = e.onComplete
	}
	e.mu.Unlock()

	if done != nil {
		go done()
	}
}

func (e *playbackEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		e.fail(audio.ErrNotPrepared)
		return
	}
	if e.pos >= len(e.pcm.Samples) {
		e.pos = 0
	}
	e.playing = true
	if e.running {
		return
	}
	// The stream callback takes e.mu; Start on an idle stream does not wait
	// for it.
	if err := e.stream.Start(); err != nil {
		e.playing = false
		e.fail(fmt.Errorf("failed to start output stream: %w", err))
		return
	}
	e.running = true
}

func (e *playbackEngine) Pause() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
}

func (e *playbackEngine) SeekTo(position time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pcm == nil {
		return
	}
	frame := int(position * time.Duration(e.pcm.SampleRate) / time.Second)
	frame = min(max(frame, 0), e.pcm.Frames())
	e.pos = frame * e.pcm.Channels
}

func (e *playbackEngine) Stop() {
	e.mu.Lock()
	e.playing = false
	if e.pcm != nil {
		e.pos = 0
	}
	stream, running := e.stream, e.running
	e.running = false
	e.mu.Unlock()

	// Stream.Stop waits for the callback, which needs e.mu.
	if running {
		if err := stream.Stop(); err != nil {
			slog.Warn("Failed to stop output stream", "error", err)
		}
	}
}

func (e *playbackEngine) Release() {
	e.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			slog.Warn("Failed to close output stream", "error", err)
		}
		e.stream = nil
	}
	if e.acquired {
		releasePortAudio()
		e.acquired = false
	}
	e.pcm = nil
	e.onComplete = nil
	e.onError = nil
}

func (e *playbackEngine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pcm == nil {
		return 0
	}
	return e.pcm.Duration()
}

func (e *playbackEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pcm == nil || e.pcm.Channels == 0 {
		return 0
	}
	return audio.FramesDuration(e.pos/e.pcm.Channels, e.pcm.SampleRate)
}

func (e *playbackEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *playbackEngine) SetOnComplete(fn func()) {
	e.mu.Lock()
	e.onComplete = fn
	e.mu.Unlock()
}

func (e *playbackEngine) SetOnError(fn func(error)) {
	e.mu.Lock()
	e.onError = fn
	e.mu.Unlock()
}

// fail reports err through the error callback. Callers hold e.mu.
func (e *playbackEngine) fail(err error) {
	slog.Error("Playback engine error", "file", e.path, "error", err)
	if fn := e.onError; fn != nil {
		go fn(err)
	}
}
