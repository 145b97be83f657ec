package recorder

import (
	"context"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

// Factory builds recorders bound to a backend and temp file allocator.
type Factory struct {
	Backend     audio.Backend
	NewTempFile func() (string, error)
	Options     Options
}

// Create returns a Recorder whose loops live no longer than scope.
func (f *Factory) Create(scope context.Context) *Recorder {
	return New(scope, f.Backend.NewCaptureDevice, f.NewTempFile, f.Options)
}
