package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voicejournal/internal/record"
	"github.com/audiolibrelab/voicejournal/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage defaults for new entries",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := settings.NewStore(cfg.Storage.SettingsFile).Load()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(st)
		if err != nil {
			return fmt.Errorf("error marshaling settings: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var settingsMoodCmd = &cobra.Command{
	Use:   "mood <mood>",
	Short: "Set the default mood",
	Long:  fmt.Sprintf("Set the default mood of new entries. One of: %s.", moodNames()),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mood, err := record.ParseMood(strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		return settings.NewStore(cfg.Storage.SettingsFile).SaveDefaultMood(mood)
	},
}

var settingsTopicsCmd = &cobra.Command{
	Use:   "topics [topic...]",
	Short: "Set the default topics",
	Long:  `Set the default topics of new entries. Without arguments the defaults are cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settings.NewStore(cfg.Storage.SettingsFile).SaveDefaultTopics(args)
	},
}

var settingsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the defaults whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store := settings.NewStore(cfg.Storage.SettingsFile)
		moods, err := store.ObserveDefaultMood(ctx)
		if err != nil {
			return err
		}
		topics, err := store.ObserveDefaultTopics(ctx)
		if err != nil {
			return err
		}

		for moods != nil || topics != nil {
			select {
			case m, ok := <-moods:
				if !ok {
					moods = nil
					continue
				}
				fmt.Printf("default mood: %s\n", m)
			case t, ok := <-topics:
				if !ok {
					topics = nil
					continue
				}
				fmt.Printf("default topics: %s\n", strings.Join(t, ", "))
			}
		}
		return nil
	},
}

func moodNames() string {
	names := make([]string, len(record.Moods))
	for i, m := range record.Moods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsMoodCmd)
	settingsCmd.AddCommand(settingsTopicsCmd)
	settingsCmd.AddCommand(settingsWatchCmd)
}
