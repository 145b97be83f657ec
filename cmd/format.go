package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/voicejournal/internal/record"
)

var (
	dayStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	playingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	moodColors = map[record.Mood]lipgloss.Color{
		record.MoodStressed: lipgloss.Color("9"),
		record.MoodSad:      lipgloss.Color("12"),
		record.MoodNeutral:  lipgloss.Color("7"),
		record.MoodPeaceful: lipgloss.Color("14"),
		record.MoodExcited:  lipgloss.Color("13"),
	}
)

var barGlyphs = []rune("▁▂▃▄▅▆▇█")

// formatDuration renders d as m:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func moodLabel(m record.Mood) string {
	return lipgloss.NewStyle().Foreground(moodColors[m]).Render(string(m))
}

// renderWaveform draws normalized bar heights as block glyphs. Bars before
// playedRatio are highlighted.
func renderWaveform(bars []float64, playedRatio float64) string {
	var played, rest strings.Builder
	cut := int(playedRatio * float64(len(bars)))
	for i, h := range bars {
		idx := int(h*float64(len(barGlyphs))) - 1
		idx = max(0, min(idx, len(barGlyphs)-1))
		if i < cut {
			played.WriteRune(barGlyphs[idx])
		} else {
			rest.WriteRune(barGlyphs[idx])
		}
	}
	return playingStyle.Render(played.String()) + dimStyle.Render(rest.String())
}
