// Package recorder drives a capture device through a recording session and
// publishes its elapsed time and amplitude history.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/audiolibrelab/voicejournal/internal/audio"
	"github.com/audiolibrelab/voicejournal/internal/observe"
)

// State represents the current state of the recorder
type State string

const (
	StateNotRecording State = "NOT_RECORDING"
	StateRecording    State = "RECORDING"
	StatePaused       State = "PAUSED"
)

// Details is a snapshot of the current session.
type Details struct {
	State        State
	Duration     time.Duration
	Amplitudes   []float64 // each in [0, 1]; shared, do not modify
	TempFilePath string    // empty until a session has produced a file
}

// Options tunes sampling. Zero values fall back to the defaults.
type Options struct {
	MaxAmplitude      int
	DurationInterval  time.Duration
	AmplitudeInterval time.Duration
}

const (
	DefaultMaxAmplitude      = 26000
	DefaultDurationInterval  = 10 * time.Millisecond
	DefaultAmplitudeInterval = 100 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.MaxAmplitude <= 0 {
		o.MaxAmplitude = DefaultMaxAmplitude
	}
	if o.DurationInterval <= 0 {
		o.DurationInterval = DefaultDurationInterval
	}
	if o.AmplitudeInterval <= 0 {
		o.AmplitudeInterval = DefaultAmplitudeInterval
	}
	return o
}

// Recorder owns at most one capture device at a time. All methods are safe for
// concurrent use.
type Recorder struct {
	newDevice   func() audio.CaptureDevice
	newTempFile func() (string, error)
	opts        Options
	scope       context.Context

	mu         sync.Mutex
	device     audio.CaptureDevice
	amplitudes []float64
	loops      *loops
	details    *observe.Value[Details]
}

type loops struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New returns a Recorder. scope bounds every sampling loop the recorder starts;
// once it is done the loops stop as if Pause had been called.
func New(scope context.Context, newDevice func() audio.CaptureDevice, newTempFile func() (string, error), opts Options) *Recorder {
	return &Recorder{
		newDevice:   newDevice,
		newTempFile: newTempFile,
		opts:        opts.withDefaults(),
		scope:       scope,
		details:     observe.NewValue(Details{State: StateNotRecording}),
	}
}

// Details returns the current session snapshot.
func (r *Recorder) Details() Details {
	return r.details.Load()
}

// State returns the current recording state.
func (r *Recorder) State() State {
	return r.details.Load().State
}

// Subscribe streams session snapshots until ctx is done.
func (r *Recorder) Subscribe(ctx context.Context) <-chan Details {
	return r.details.Subscribe(ctx)
}

// Start begins a new session. It does nothing while already recording. A
// paused session is discarded and replaced.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.details.Load().State == StateRecording {
		r.mu.Unlock()
		return nil
	}
	prev := r.takeLoopsLocked()
	r.mu.Unlock()
	prev.stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.details.Load().State == StateRecording {
		return nil
	}

	r.releaseDeviceLocked()
	r.resetLocked()

	path, err := r.newTempFile()
	if err != nil {
		slog.Error("Failed to allocate temp recording file", "error", err)
		return fmt.Errorf("failed to allocate temp file: %w", err)
	}

	device := r.newDevice()
	if err := openDevice(device, path); err != nil {
		slog.Error("Failed to start capture device", "file", path, "error", err)
		if rerr := device.Release(); rerr != nil {
			slog.Warn("Failed to release capture device", "error", rerr)
		}
		return err
	}

	r.device = device
	r.details.Update(func(d Details) Details {
		d.State = StateRecording
		d.TempFilePath = path
		return d
	})
	r.startLoopsLocked()

	slog.Info("Recording started", "file", path)
	return nil
}

func openDevice(device audio.CaptureDevice, path string) error {
	if err := device.Open(path); err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}
	if err := device.Prepare(); err != nil {
		return fmt.Errorf("failed to prepare capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

// Pause halts capture and both sampling loops. It does nothing unless
// recording. When it returns, neither loop will publish again.
func (r *Recorder) Pause() {
	r.mu.Lock()
	if r.details.Load().State != StateRecording {
		r.mu.Unlock()
		return
	}
	if r.device != nil {
		if err := r.device.Pause(); err != nil {
			slog.Error("Failed to pause capture device", "error", err)
		}
	}
	r.details.Update(func(d Details) Details {
		d.State = StatePaused
		return d
	})
	l := r.takeLoopsLocked()
	r.mu.Unlock()

	l.stop()
	slog.Info("Recording paused", "duration", r.Details().Duration)
}

// Resume continues a paused session. It does nothing while already recording.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.details.Load().State == StateRecording {
		return
	}
	if r.device != nil {
		if err := r.device.Resume(); err != nil {
			slog.Error("Failed to resume capture device", "error", err)
		}
	}
	r.details.Update(func(d Details) Details {
		d.State = StateRecording
		return d
	})
	r.startLoopsLocked()
}

// Stop ends the session and returns its final details. The amplitudes and
// temp file path stay readable after the session is cleaned up. Device errors
// are logged, never returned.
func (r *Recorder) Stop() Details {
	r.mu.Lock()
	l := r.takeLoopsLocked()
	r.mu.Unlock()
	l.stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device != nil {
		if err := r.device.Stop(); err != nil {
			slog.Error("Failed to stop capture device", "error", err)
		}
	}
	r.releaseDeviceLocked()

	final := r.details.Update(func(d Details) Details {
		d.State = StateNotRecording
		d.Amplitudes = append([]float64(nil), r.amplitudes...)
		return d
	})
	r.amplitudes = nil

	slog.Info("Recording stopped", "duration", final.Duration, "samples", len(final.Amplitudes), "file", final.TempFilePath)
	final.Amplitudes = append([]float64(nil), final.Amplitudes...)
	return final
}

// Cancel stops the session and discards everything it produced. It is safe
// to call without a prior Start.
func (r *Recorder) Cancel() {
	r.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// Close cancels any session. The recorder must not be used afterwards.
func (r *Recorder) Close() {
	r.Cancel()
}

func (r *Recorder) resetLocked() {
	r.amplitudes = nil
	r.details.Store(Details{State: StateNotRecording})
}

func (r *Recorder) releaseDeviceLocked() {
	if r.device == nil {
		return
	}
	if err := r.device.Release(); err != nil {
		slog.Error("Failed to release capture device", "error", err)
	}
	r.device = nil
}

// takeLoopsLocked cancels and detaches the running loops. The caller waits
// for them with stop after releasing r.mu, which the loops need to publish.
func (r *Recorder) takeLoopsLocked() *loops {
	l := r.loops
	r.loops = nil
	if l != nil {
		l.cancel()
	}
	return l
}

func (l *loops) stop() {
	if l == nil {
		return
	}
	l.group.Wait()
}

// sampling reports whether a loop bound to ctx may still publish.
func (r *Recorder) samplingLocked(ctx context.Context) bool {
	return ctx.Err() == nil && r.details.Load().State == StateRecording
}

func (r *Recorder) startLoopsLocked() {
	if r.loops != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.scope)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.durationLoop(ctx) })
	g.Go(func() error { return r.amplitudeLoop(ctx) })
	r.loops = &loops{cancel: cancel, group: g}
}

func (r *Recorder) durationLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.DurationInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now

			r.mu.Lock()
			if r.samplingLocked(ctx) {
				r.details.Update(func(d Details) Details {
					d.Duration += delta
					return d
				})
			}
			r.mu.Unlock()
		}
	}
}

func (r *Recorder) amplitudeLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.AmplitudeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.mu.Lock()
			if r.samplingLocked(ctx) && r.device != nil {
				level := normalizeAmplitude(r.device.MaxAmplitude(), r.opts.MaxAmplitude)
				r.amplitudes = append(r.amplitudes, level)
				snapshot := append([]float64(nil), r.amplitudes...)
				r.details.Update(func(d Details) Details {
					d.Amplitudes = snapshot
					return d
				})
			}
			r.mu.Unlock()
		}
	}
}

func normalizeAmplitude(peak, max int) float64 {
	if peak <= 0 || max <= 0 {
		return 0
	}
	return min(float64(peak)/float64(max), 1)
}
