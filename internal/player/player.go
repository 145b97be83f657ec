// Package player drives a single playback engine for one audio file at a
// time and publishes playback progress.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/audio"
	"github.com/audiolibrelab/voicejournal/internal/observe"
	"github.com/audiolibrelab/voicejournal/internal/progress"
)

// DefaultProgressInterval is how often progress is republished while playing.
const DefaultProgressInterval = 10 * time.Millisecond

// Track is the observable playback state of the loaded file.
type Track struct {
	TotalDuration  time.Duration
	DurationPlayed time.Duration
	IsPlaying      bool
}

// Player owns at most one prepared engine. All methods are safe for
// concurrent use.
type Player struct {
	newEngine func() audio.PlaybackEngine
	interval  time.Duration
	scope     context.Context

	mu          sync.Mutex
	engine      audio.PlaybackEngine
	currentPath string
	prepared    bool
	pendingSeek *float64
	progress    *progressLoop
	track       *observe.Value[Track]
}

type progressLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Player. The progress loop never outlives scope.
func New(scope context.Context, newEngine func() audio.PlaybackEngine, interval time.Duration) *Player {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Player{
		newEngine: newEngine,
		interval:  interval,
		scope:     scope,
		track:     observe.NewValue(Track{}),
	}
}

// Track returns the current playback state.
func (p *Player) Track() Track {
	return p.track.Load()
}

// Subscribe streams playback state until ctx is done.
func (p *Player) Subscribe(ctx context.Context) <-chan Track {
	return p.track.Subscribe(ctx)
}

// CurrentFile returns the file loaded in the engine, or "".
func (p *Player) CurrentFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPath
}

// PendingSeek returns the deferred seek ratio, if any.
func (p *Player) PendingSeek() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingSeek == nil {
		return 0, false
	}
	return *p.pendingSeek, true
}

// Play starts path from its current position, loading it first unless it is
// already prepared. A pending seek is applied before playback starts and then
// cleared. onComplete runs once when the file plays to the end.
func (p *Player) Play(path string, onComplete func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureEngineLocked(path, onComplete); err != nil {
		return err
	}

	if p.pendingSeek != nil {
		p.seekLocked(*p.pendingSeek)
		p.pendingSeek = nil
	}

	p.engine.Start()
	p.track.Update(func(t Track) Track {
		t.IsPlaying = true
		return t
	})
	p.startProgressLocked()

	slog.Debug("Playback started", "file", path)
	return nil
}

// Pause halts playback, keeping the played position. It does nothing unless
// playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.track.Load().IsPlaying {
		return
	}
	p.stopProgressLocked()
	if p.engine != nil {
		p.engine.Pause()
	}
	p.track.Update(func(t Track) Track {
		t.IsPlaying = false
		if p.engine != nil {
			t.DurationPlayed = p.engine.Position()
		}
		return t
	})
}

// Resume continues a paused file. It does nothing while playing or when no
// file is prepared.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track.Load().IsPlaying || p.engine == nil || !p.prepared {
		return
	}
	p.engine.Start()
	p.track.Update(func(t Track) Track {
		t.IsPlaying = true
		return t
	})
	p.startProgressLocked()
}

// Stop tears down the engine and resets the track. A pending seek survives.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Close stops playback. The player must not be used afterwards.
func (p *Player) Close() {
	p.Stop()
}

// SeekTo moves path to progress (a ratio in [0, 1]), loading it first if
// needed. If the file cannot be prepared the ratio is kept as a pending seek
// for the next Play.
func (p *Player) SeekTo(path string, onComplete func(), ratio float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ratio = progress.Clamp(ratio)
	if err := p.ensureEngineLocked(path, onComplete); err != nil {
		slog.Warn("Seek deferred until the file is ready", "file", path, "progress", ratio, "error", err)
		p.pendingSeek = &ratio
		p.track.Update(func(t Track) Track {
			t.IsPlaying = false
			return t
		})
		return
	}
	p.seekLocked(ratio)
}

// SetPendingSeek sets or, with nil, clears the ratio applied by the next Play.
func (p *Player) SetPendingSeek(ratio *float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ratio == nil {
		p.pendingSeek = nil
		return
	}
	v := progress.Clamp(*ratio)
	p.pendingSeek = &v
}

func (p *Player) seekLocked(ratio float64) {
	total := p.engine.Duration()
	target := time.Duration(math.Floor(float64(total) * ratio))
	target = max(target, 0)

	p.engine.SeekTo(target)
	p.track.Update(func(t Track) Track {
		t.TotalDuration = total
		t.DurationPlayed = target
		return t
	})
}

// ensureEngineLocked makes sure an engine is prepared for path, tearing down
// whatever was loaded before.
func (p *Player) ensureEngineLocked(path string, onComplete func()) error {
	if p.engine != nil && p.currentPath == path && p.prepared {
		return nil
	}
	p.stopLocked()

	engine := p.newEngine()
	engine.SetOnComplete(func() { p.handleComplete(engine, onComplete) })
	engine.SetOnError(func(err error) { p.handleError(engine, err) })

	if err := engine.Open(path); err != nil {
		engine.Release()
		slog.Error("Failed to open audio file", "file", path, "error", err)
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := engine.Prepare(); err != nil {
		engine.Release()
		slog.Error("Failed to prepare playback", "file", path, "error", err)
		return fmt.Errorf("failed to prepare %s: %w", path, err)
	}

	p.engine = engine
	p.currentPath = path
	p.prepared = true
	p.track.Store(Track{TotalDuration: engine.Duration()})
	return nil
}

func (p *Player) stopLocked() {
	p.stopProgressLocked()
	if p.engine != nil {
		p.engine.Stop()
		p.engine.Release()
	}
	p.engine = nil
	p.currentPath = ""
	p.prepared = false
	p.track.Store(Track{})
}

func (p *Player) handleComplete(engine audio.PlaybackEngine, onComplete func()) {
	p.mu.Lock()
	if p.engine != engine {
		p.mu.Unlock()
		return
	}
	p.prepared = false
	p.stopProgressLocked()
	p.track.Update(func(t Track) Track {
		t.IsPlaying = false
		return t
	})
	p.mu.Unlock()

	slog.Debug("Playback completed")
	if onComplete != nil {
		onComplete()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == engine {
		p.stopLocked()
	}
}

func (p *Player) handleError(engine audio.PlaybackEngine, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != engine {
		return
	}
	slog.Error("Playback failed", "file", p.currentPath, "error", err)
	p.prepared = false
	p.stopProgressLocked()
	p.track.Update(func(t Track) Track {
		t.IsPlaying = false
		return t
	})
}

// startProgressLocked launches the loop that republishes the engine position.
// The loop never takes p.mu, so stopProgressLocked can wait for it while
// holding the lock.
func (p *Player) startProgressLocked() {
	if p.progress != nil {
		return
	}
	ctx, cancel := context.WithCancel(p.scope)
	l := &progressLoop{cancel: cancel, done: make(chan struct{})}
	p.progress = l

	engine := p.engine
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			p.publishProgress(ctx, engine)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (p *Player) publishProgress(ctx context.Context, engine audio.PlaybackEngine) {
	if !engine.IsPlaying() {
		return
	}
	total, played := engine.Duration(), engine.Position()
	p.track.Update(func(t Track) Track {
		if ctx.Err() != nil {
			return t
		}
		t.TotalDuration = total
		t.DurationPlayed = played
		return t
	})
}

func (p *Player) stopProgressLocked() {
	if p.progress == nil {
		return
	}
	p.progress.cancel()
	<-p.progress.done
	p.progress = nil
}
