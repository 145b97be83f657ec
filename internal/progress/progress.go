// Package progress converts played/total durations into playback ratios.
package progress

import "time"

// Ratio returns played/total. ok is false when either duration is unknown
// (negative) or total is zero.
func Ratio(played, total time.Duration) (ratio float64, ok bool) {
	if played < 0 || total <= 0 {
		return 0, false
	}
	return float64(played) / float64(total), true
}

// Clamp bounds v to [0, 1].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Position returns the offset into total that corresponds to ratio.
func Position(total time.Duration, ratio float64) time.Duration {
	return time.Duration(float64(total) * Clamp(ratio))
}
