package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSink streams interleaved 16-bit PCM into a WAV file. Close patches the
// header with the final sizes.
type WAVSink struct {
	mu     sync.Mutex
	file   *os.File
	enc    *wav.Encoder
	format Format
	frames int
	closed bool
}

// CreateWAV creates (or truncates) path and returns a sink writing to it.
func CreateWAV(path string, format Format) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav %s: %w", path, err)
	}
	return &WAVSink{
		file:   f,
		enc:    wav.NewEncoder(f, format.SampleRate, 16, format.Channels, 1),
		format: format,
	}, nil
}

// Write appends interleaved samples.
func (s *WAVSink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("write wav: sink closed")
	}
	if len(samples) == 0 {
		return nil
	}

	buf := &goaudio.IntBuffer{
		Data: make([]int, len(samples)),
		Format: &goaudio.Format{
			SampleRate:  s.format.SampleRate,
			NumChannels: s.format.Channels,
		},
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		buf.Data[i] = int(v)
	}
	if err := s.enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	s.frames += len(samples) / max(1, s.format.Channels)
	return nil
}

// Duration reports how much audio has been written so far.
func (s *WAVSink) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FramesDuration(s.frames, s.format.SampleRate)
}

// Close finalizes the header and closes the file. It is safe to call twice.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	encErr := s.enc.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("close wav encoder: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close wav file: %w", fileErr)
	}
	return nil
}

// PCM is a fully decoded audio file.
type PCM struct {
	Samples    []int16 // interleaved
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playback length.
func (p *PCM) Duration() time.Duration {
	return FramesDuration(p.Frames(), p.SampleRate)
}

// LoadWAV decodes the whole file at path.
func LoadWAV(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return &PCM{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}
