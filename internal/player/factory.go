package player

import (
	"context"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

// Factory builds players bound to a backend.
type Factory struct {
	Backend          audio.Backend
	ProgressInterval time.Duration
}

// Create returns a Player whose progress loop lives no longer than scope.
func (f *Factory) Create(scope context.Context) *Player {
	return New(scope, f.Backend.NewPlaybackEngine, f.ProgressInterval)
}
