package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voicejournal/internal/progress"
)

var playSeek float64

var playCmd = &cobra.Command{
	Use:   "play <id>",
	Short: "Play a journal entry",
	Long: `Play a journal entry until it ends or Ctrl+C is pressed.

Ctrl+C pauses and remembers the position; playing the same entry again
without --seek continues from there.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry id %q", args[0])
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		j := a.journal
		if cmd.Flags().Changed("seek") {
			if err := j.SeekRecord(ctx, id, playSeek); err != nil {
				return err
			}
		} else {
			saved, err := loadPlaybackState()
			if err != nil {
				slog.Warn("Ignoring saved playback state", "error", err)
			} else if saved.SelectedID == id {
				if err := j.Restore(ctx, saved); err != nil {
					return err
				}
			}
		}

		if err := j.PlayRecord(ctx, id); err != nil {
			return err
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		tracks := j.SubscribePlayback(ctx)
		// Completion is published as a stopped track before the selection is
		// cleared, so a stopped track only counts as a failure once it lasts.
		var stalled <-chan time.Time
		for {
			select {
			case <-sigChan:
				j.PauseRecord()
				t := j.Playback()
				fmt.Printf("\nPaused at %s\n", formatDuration(t.DurationPlayed))
				return savePlaybackState(j.SavedState())
			case <-stalled:
				fmt.Println()
				if j.Selected() != 0 {
					return fmt.Errorf("playback of entry %d stopped unexpectedly", id)
				}
				return savePlaybackState(j.SavedState())
			case t, ok := <-tracks:
				if !ok {
					return nil
				}
				ratio, _ := progress.Ratio(t.DurationPlayed, t.TotalDuration)
				fmt.Printf("\r%s / %s %s", formatDuration(t.DurationPlayed), formatDuration(t.TotalDuration),
					renderWaveform(progressBar, progress.Clamp(ratio)))
				switch {
				case t.IsPlaying:
					stalled = nil
				case j.Selected() == 0:
					fmt.Println()
					return savePlaybackState(j.SavedState())
				case stalled == nil:
					stalled = time.After(time.Second)
				}
			}
		}
	},
}

// progressBar is a flat waveform used as a progress indicator.
var progressBar = func() []float64 {
	bars := make([]float64, 30)
	for i := range bars {
		bars[i] = 0.5
	}
	return bars
}()

func init() {
	playCmd.Flags().Float64Var(&playSeek, "seek", 0, "start position as a fraction of the length (0 to 1)")
}
