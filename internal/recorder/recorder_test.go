package recorder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/audio/audiotest"
)

var testOptions = Options{
	MaxAmplitude:      26000,
	DurationInterval:  time.Millisecond,
	AmplitudeInterval: 2 * time.Millisecond,
}

func newTestRecorder(t *testing.T, backend *audiotest.Backend) *Recorder {
	t.Helper()
	dir := t.TempDir()
	var n atomic.Int32
	tempFile := func() (string, error) {
		return filepath.Join(dir, fmt.Sprintf("temp_recording_%d.wav", n.Add(1))), nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &Factory{Backend: backend, NewTempFile: tempFile, Options: testOptions}
	r := f.Create(ctx)
	t.Cleanup(r.Close)
	return r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestRecorder_StartPublishesDurationAndAmplitudes(t *testing.T) {
	capture := &audiotest.Capture{}
	capture.SetPeaks(13000, 52000, -5)
	backend := &audiotest.Backend{Captures: []*audiotest.Capture{capture}}
	r := newTestRecorder(t, backend)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	d := r.Details()
	if d.State != StateRecording {
		t.Errorf("Expected RECORDING, got %s", d.State)
	}
	if d.TempFilePath == "" || capture.Path != d.TempFilePath {
		t.Errorf("Expected device to write to %q, got %q", d.TempFilePath, capture.Path)
	}

	waitFor(t, "three amplitude samples", func() bool { return len(r.Details().Amplitudes) >= 3 })
	waitFor(t, "duration to advance", func() bool { return r.Details().Duration > 0 })

	amps := r.Details().Amplitudes
	want := []float64{0.5, 1, 0}
	for i := range want {
		if amps[i] != want[i] {
			t.Errorf("Amplitude %d: expected %v, got %v", i, want[i], amps[i])
		}
	}
	for i, a := range amps {
		if a < 0 || a > 1 {
			t.Errorf("Amplitude %d out of range: %v", i, a)
		}
	}

	calls := capture.CallLog()
	if len(calls) < 3 || calls[0] != "open" || calls[1] != "prepare" || calls[2] != "start" {
		t.Errorf("Unexpected device calls: %v", calls)
	}
}

func TestRecorder_StartWhileRecordingIsNoop(t *testing.T) {
	backend := &audiotest.Backend{}
	r := newTestRecorder(t, backend)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	path := r.Details().TempFilePath
	if err := r.Start(); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if len(backend.Created) != 1 {
		t.Errorf("Expected one device, got %d", len(backend.Created))
	}
	if r.Details().TempFilePath != path {
		t.Errorf("Expected temp file to stay %q, got %q", path, r.Details().TempFilePath)
	}
}

func TestRecorder_PauseStopsLoopsAndResumeContinues(t *testing.T) {
	capture := &audiotest.Capture{}
	capture.SetPeaks(2600)
	r := newTestRecorder(t, &audiotest.Backend{Captures: []*audiotest.Capture{capture}})

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "samples", func() bool { return len(r.Details().Amplitudes) >= 2 })

	r.Pause()
	paused := r.Details()
	if paused.State != StatePaused {
		t.Fatalf("Expected PAUSED, got %s", paused.State)
	}

	time.Sleep(20 * time.Millisecond)
	after := r.Details()
	if after.Duration != paused.Duration {
		t.Errorf("Duration changed while paused: %s -> %s", paused.Duration, after.Duration)
	}
	if len(after.Amplitudes) != len(paused.Amplitudes) {
		t.Errorf("Amplitudes changed while paused: %d -> %d", len(paused.Amplitudes), len(after.Amplitudes))
	}

	r.Pause() // no-op when not recording
	if r.State() != StatePaused {
		t.Errorf("Expected second Pause to be a no-op, got %s", r.State())
	}

	r.Resume()
	if r.State() != StateRecording {
		t.Fatalf("Expected RECORDING after resume, got %s", r.State())
	}
	waitFor(t, "more samples", func() bool { return len(r.Details().Amplitudes) > len(paused.Amplitudes) })
	waitFor(t, "duration to grow", func() bool { return r.Details().Duration > paused.Duration })

	resumed := r.Details().Amplitudes
	for i, a := range paused.Amplitudes {
		if resumed[i] != a {
			t.Errorf("Amplitude %d changed across pause: %v -> %v", i, a, resumed[i])
		}
	}

	calls := capture.CallLog()
	if !contains(calls, "pause") || !contains(calls, "resume") {
		t.Errorf("Expected device pause and resume, got %v", calls)
	}
}

func TestRecorder_ResumeFromNotRecordingStartsLoops(t *testing.T) {
	backend := &audiotest.Backend{}
	r := newTestRecorder(t, backend)

	r.Resume()
	if r.State() != StateRecording {
		t.Fatalf("Expected RECORDING after resume, got %s", r.State())
	}
	if len(backend.Created) != 0 {
		t.Errorf("Expected no capture device, got %d", len(backend.Created))
	}
	waitFor(t, "duration to advance", func() bool { return r.Details().Duration > 0 })

	d := r.Stop()
	if d.State != StateNotRecording {
		t.Errorf("Expected NOT_RECORDING after stop, got %s", d.State)
	}
}

func TestRecorder_StopReturnsFinalDetails(t *testing.T) {
	capture := &audiotest.Capture{StopErr: errors.New("device gone")}
	capture.SetPeaks(26000)
	r := newTestRecorder(t, &audiotest.Backend{Captures: []*audiotest.Capture{capture}})

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	path := r.Details().TempFilePath
	waitFor(t, "samples", func() bool { return len(r.Details().Amplitudes) >= 2 })

	final := r.Stop()
	if final.State != StateNotRecording {
		t.Errorf("Expected NOT_RECORDING, got %s", final.State)
	}
	if final.TempFilePath != path {
		t.Errorf("Expected temp path %q, got %q", path, final.TempFilePath)
	}
	if len(final.Amplitudes) < 2 {
		t.Fatalf("Expected amplitudes in final details, got %v", final.Amplitudes)
	}
	if !capture.Released {
		t.Error("Expected device to be released")
	}

	n := len(final.Amplitudes)
	time.Sleep(10 * time.Millisecond)
	if got := len(r.Details().Amplitudes); got != n {
		t.Errorf("Amplitudes changed after stop: %d -> %d", n, got)
	}

	final.Amplitudes[0] = 42
	if r.Details().Amplitudes[0] == 42 {
		t.Error("Returned amplitudes alias the recorder's buffer")
	}
}

func TestRecorder_StartFailureLeavesRecorderUsable(t *testing.T) {
	broken := &audiotest.Capture{PrepareErr: errors.New("no microphone")}
	working := &audiotest.Capture{}
	r := newTestRecorder(t, &audiotest.Backend{Captures: []*audiotest.Capture{broken, working}})

	if err := r.Start(); err == nil {
		t.Fatal("Expected Start to fail")
	}
	if r.State() != StateNotRecording {
		t.Errorf("Expected NOT_RECORDING after failure, got %s", r.State())
	}
	if !broken.Released {
		t.Error("Expected failed device to be released")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start after failure failed: %v", err)
	}
	if r.State() != StateRecording {
		t.Errorf("Expected RECORDING, got %s", r.State())
	}
}

func TestRecorder_CancelResetsSession(t *testing.T) {
	capture := &audiotest.Capture{}
	capture.SetPeaks(1000)
	r := newTestRecorder(t, &audiotest.Backend{Captures: []*audiotest.Capture{capture}})

	r.Cancel() // safe before any start

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first := r.Details().TempFilePath
	waitFor(t, "samples", func() bool { return len(r.Details().Amplitudes) > 0 })

	r.Cancel()
	d := r.Details()
	if d.State != StateNotRecording || d.Duration != 0 || len(d.Amplitudes) != 0 || d.TempFilePath != "" {
		t.Errorf("Expected empty session after cancel, got %+v", d)
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start after cancel failed: %v", err)
	}
	second := r.Details()
	if second.State != StateRecording {
		t.Errorf("Expected RECORDING, got %s", second.State)
	}
	if second.TempFilePath == first {
		t.Errorf("Expected a new temp path, got %q again", first)
	}
}

func TestRecorder_StartFromPausedReplacesSession(t *testing.T) {
	first := &audiotest.Capture{}
	backend := &audiotest.Backend{Captures: []*audiotest.Capture{first}}
	r := newTestRecorder(t, backend)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Pause()
	if err := r.Start(); err != nil {
		t.Fatalf("Start from paused failed: %v", err)
	}
	if !first.Released {
		t.Error("Expected the paused device to be released")
	}
	if len(backend.Created) != 2 {
		t.Errorf("Expected two devices, got %d", len(backend.Created))
	}
}

func TestRecorder_ScopeCancellationStopsLoops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()
	r := New(ctx, (&audiotest.Backend{}).NewCaptureDevice, func() (string, error) {
		return filepath.Join(dir, "temp_recording_scope.wav"), nil
	}, testOptions)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "duration", func() bool { return r.Details().Duration > 0 })
	cancel()
	time.Sleep(10 * time.Millisecond)

	before := r.Details().Duration
	time.Sleep(20 * time.Millisecond)
	if after := r.Details().Duration; after != before {
		t.Errorf("Duration advanced after scope cancellation: %s -> %s", before, after)
	}
	r.Stop()
}

func TestNormalizeAmplitude(t *testing.T) {
	tests := []struct {
		peak, max int
		want      float64
	}{
		{0, 26000, 0},
		{-10, 26000, 0},
		{13000, 26000, 0.5},
		{26000, 26000, 1},
		{32767, 26000, 1},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := normalizeAmplitude(tt.peak, tt.max); got != tt.want {
			t.Errorf("normalizeAmplitude(%d, %d) = %v, want %v", tt.peak, tt.max, got, tt.want)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
