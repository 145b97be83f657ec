package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voicejournal/internal/journal"
	"github.com/audiolibrelab/voicejournal/internal/progress"
	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/waveform"
)

var (
	listMoods  []string
	listTopics []string
	listWidth  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the journal timeline",
	Long: `Show journal entries grouped by day, newest first. Entries can be
filtered by mood and topic; an entry matches when it has any of the given
moods and any of the given topics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := journal.Filter{Topics: listTopics}
		for _, m := range listMoods {
			mood, err := record.ParseMood(strings.ToUpper(m))
			if err != nil {
				return err
			}
			filter.Moods = append(filter.Moods, mood)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		track := waveform.TrackSize{TrackWidth: float64(listWidth), BarWidth: 1}
		days, err := a.journal.Timeline(cmd.Context(), filter, &track)
		if err != nil {
			return fmt.Errorf("failed to build timeline: %w", err)
		}
		if len(days) == 0 {
			fmt.Println("No entries")
			return nil
		}

		for _, day := range days {
			fmt.Println(dayStyle.Render(day.Label))
			for _, e := range day.Entries {
				printEntry(e)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringSliceVar(&listMoods, "mood", nil, "only entries with this mood, repeatable")
	listCmd.Flags().StringSliceVar(&listTopics, "topic", nil, "only entries with this topic, repeatable")
	listCmd.Flags().IntVarP(&listWidth, "width", "w", 48, "waveform width in characters")
}

func printEntry(e journal.Entry) {
	state := ""
	switch e.Playback {
	case journal.PlaybackPlaying:
		state = playingStyle.Render(" ▶ " + formatDuration(e.CurrentPosition))
	case journal.PlaybackPaused:
		state = pausedStyle.Render(" ⏸ " + formatDuration(e.CurrentPosition))
	}

	fmt.Printf("  %s %s %s %s%s\n",
		dimStyle.Render(fmt.Sprintf("#%-4d %s", e.ID, e.RecordedAt.Local().Format("15:04"))),
		titleStyle.Render(e.Title),
		moodLabel(e.Mood),
		dimStyle.Render(formatDuration(e.AudioPlaybackLength)),
		state)

	ratio, _ := progress.Ratio(e.CurrentPosition, e.AudioPlaybackLength)
	fmt.Printf("  %s\n", renderWaveform(e.Waveform, progress.Clamp(ratio)))

	if len(e.Topics) > 0 {
		fmt.Printf("  %s\n", dimStyle.Render("#"+strings.Join(e.Topics, " #")))
	}
	if e.Note != nil {
		fmt.Printf("  %s\n", *e.Note)
	}
}
