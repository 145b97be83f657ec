package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voicejournal/internal/journal"
	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/recorder"
)

var (
	recordTitle  string
	recordMood   string
	recordTopics []string
	recordNote   string
	recordQuick  bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a new journal entry",
	Long: `Record audio from the default input device until interrupted.

  Ctrl+C     finish the recording and save it
  Ctrl+Z     pause, as if the app lost focus (SIGCONT gives it back)
  SIGUSR1    toggle pause/resume
  Ctrl+\     discard the recording

Recordings shorter than recording.min_duration are discarded. Without
--title the title is asked for once the recording is finished; an empty
answer saves the entry under a dated title.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flags are validated before capture starts.
		mood, err := parseMoodFlag(recordMood)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		method := journal.CaptureStandard
		if recordQuick {
			method = journal.CaptureQuick
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGUSR1, syscall.SIGQUIT)
		defer signal.Stop(sigChan)

		if err := a.journal.StartRecording(method); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		fmt.Println("Recording... press Ctrl+C to finish")

		displayCtx, stopDisplay := context.WithCancel(ctx)
		defer stopDisplay()
		go showRecording(displayCtx, a.journal)

		for sig := range sigChan {
			switch sig {
			case syscall.SIGTSTP:
				a.journal.SetForeground(false)
			case syscall.SIGCONT:
				a.journal.SetForeground(true)
			case syscall.SIGUSR1:
				if a.journal.Recording().State == recorder.StatePaused {
					a.journal.ResumeRecording()
				} else {
					a.journal.PauseRecording()
				}
			case syscall.SIGQUIT:
				a.journal.CancelRecording(ctx)
				fmt.Println("\nRecording discarded")
				return nil
			default:
				stopDisplay()
				return completeRecording(ctx, a.journal, mood)
			}
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordTitle, "title", "t", "", "entry title")
	recordCmd.Flags().StringVarP(&recordMood, "mood", "m", "", "entry mood (default from settings)")
	recordCmd.Flags().StringSliceVar(&recordTopics, "topic", nil, "entry topic, repeatable (default from settings)")
	recordCmd.Flags().StringVarP(&recordNote, "note", "n", "", "free text note")
	recordCmd.Flags().BoolVarP(&recordQuick, "quick", "q", false, "quick capture: keep recording when the terminal is suspended")
}

// showRecording redraws the live session line until ctx is done.
func showRecording(ctx context.Context, j *journal.Journal) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d := j.Recording()
		level := 0.0
		if n := len(d.Amplitudes); n > 0 {
			level = d.Amplitudes[n-1]
		}
		fmt.Printf("\r%-9s %s %-20s", strings.ToLower(string(d.State)), formatDuration(d.Duration),
			strings.Repeat("█", int(level*20)))
	}
}

func completeRecording(ctx context.Context, j *journal.Journal, mood record.Mood) error {
	out, err := j.CompleteRecording(ctx)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to finish recording: %w", err)
	}
	if out.Kind == journal.OutcomeTooShort {
		fmt.Printf("Recording too short (%s), discarded\n", formatDuration(out.Details.Duration))
		return nil
	}

	draft := j.NewDraft(out.Details)
	draft.Title = recordTitle
	draft.Note = recordNote
	if mood != "" {
		draft.Mood = mood
	}
	if len(recordTopics) > 0 {
		draft.Topics = recordTopics
	}
	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = askTitle(os.Stdin, os.Stdout, defaultTitle(time.Now()))
	}

	saved, err := j.SaveRecording(ctx, draft)
	if err != nil {
		return err
	}
	slog.Debug("Saved entry", "file", saved.AudioFilePath)
	fmt.Printf("Saved #%d %q (%s, %s)\n", saved.ID, saved.Title, formatDuration(saved.AudioPlaybackLength), saved.Mood)
	return nil
}

// parseMoodFlag validates --mood. An empty value means the default mood.
func parseMoodFlag(s string) (record.Mood, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	mood, err := record.ParseMood(strings.ToUpper(s))
	if err != nil {
		return "", fmt.Errorf("invalid --mood %q (one of %s): %w", s, moodNames(), err)
	}
	return mood, nil
}

const titleAttempts = 3

// askTitle prompts for a title on in. After titleAttempts blank answers, or
// when in is exhausted, it returns fallback.
func askTitle(in io.Reader, out io.Writer, fallback string) string {
	scanner := bufio.NewScanner(in)
	for range titleAttempts {
		fmt.Fprint(out, "Title: ")
		if !scanner.Scan() {
			break
		}
		if title := strings.TrimSpace(scanner.Text()); title != "" {
			return title
		}
	}
	fmt.Fprintf(out, "\nUsing title %q\n", fallback)
	return fallback
}

func defaultTitle(now time.Time) string {
	return "Entry " + now.Format("02 Jan 15:04")
}
