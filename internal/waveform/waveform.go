// Package waveform turns raw amplitude samples into bar heights for a
// fixed-width track.
package waveform

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Threshold is the level at or below which a sample is drawn at MinHeight.
	Threshold = 0.1
	// MinHeight is the smallest bar height produced by Normalize.
	MinHeight = 0.25
	// MaxHeight is the largest bar height produced by Normalize.
	MaxHeight = 1.0
)

// ErrInvalidGeometry is returned when the track cannot fit a single bar.
var ErrInvalidGeometry = errors.New("invalid track geometry")

// TrackSize describes the pixel geometry of a waveform track.
type TrackSize struct {
	TrackWidth float64 `mapstructure:"track_width" yaml:"track_width"`
	BarWidth   float64 `mapstructure:"bar_width" yaml:"bar_width"`
	Spacing    float64 `mapstructure:"spacing" yaml:"spacing"`
}

// Bars returns the number of bars that fit on the track.
func (s TrackSize) Bars() (int, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	return int(math.Round(s.TrackWidth / (s.BarWidth + s.Spacing))), nil
}

// Normalize is shorthand for Normalize(source, s.TrackWidth, s.BarWidth, s.Spacing).
func (s TrackSize) Normalize(source []float64) ([]float64, error) {
	return Normalize(source, s.TrackWidth, s.BarWidth, s.Spacing)
}

func (s TrackSize) validate() error {
	step := s.BarWidth + s.Spacing
	switch {
	case s.TrackWidth < 0:
		return fmt.Errorf("%w: track width %g is negative", ErrInvalidGeometry, s.TrackWidth)
	case step <= 0:
		return fmt.Errorf("%w: bar width plus spacing must be positive, got %g", ErrInvalidGeometry, step)
	case s.TrackWidth < step:
		return fmt.Errorf("%w: track width %g is smaller than one bar (%g)", ErrInvalidGeometry, s.TrackWidth, step)
	}
	return nil
}

// Normalize resamples source to the number of bars that fit in trackWidth and
// maps every value into [MinHeight, MaxHeight]. Empty input yields empty output.
func Normalize(source []float64, trackWidth, barWidth, spacing float64) ([]float64, error) {
	size := TrackSize{TrackWidth: trackWidth, BarWidth: barWidth, Spacing: spacing}
	bars, err := size.Bars()
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return []float64{}, nil
	}

	resampled := Resample(source, bars)
	out := make([]float64, len(resampled))
	for i, v := range resampled {
		out[i] = remap(v)
	}
	return out, nil
}

// Resample returns a copy of source with exactly target elements. Shrinking
// keeps the peak of each window; growing interpolates linearly.
func Resample(source []float64, target int) []float64 {
	n := len(source)
	switch {
	case target <= 0 || n == 0:
		return []float64{}
	case n == target:
		return append([]float64(nil), source...)
	case n > target:
		return downsample(source, target)
	default:
		return upsample(source, target)
	}
}

func downsample(source []float64, target int) []float64 {
	n := len(source)
	out := make([]float64, target)
	for i := range out {
		start := i * n / target
		end := (i + 1) * n / target
		peak := source[start]
		for _, v := range source[start+1 : end] {
			if v > peak {
				peak = v
			}
		}
		out[i] = peak
	}
	return out
}

func upsample(source []float64, target int) []float64 {
	n := len(source)
	out := make([]float64, target)
	step := float64(n-1) / float64(target-1)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= n-1 {
			out[i] = source[n-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = source[idx] + (source[idx+1]-source[idx])*frac
	}
	return out
}

func remap(v float64) float64 {
	if v <= Threshold {
		return MinHeight
	}
	h := MinHeight + (v-Threshold)/(1-Threshold)*(MaxHeight-MinHeight)
	return math.Min(MaxHeight, math.Max(MinHeight, h))
}
