package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var cleanupPrune bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove leftover temporary recordings",
	Long: `Remove temporary recordings left behind by interrupted sessions and
report audio files that no journal entry refers to. With --prune those
files are deleted too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newStoreApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.files.CleanUpTemporaryFiles(ctx); err != nil {
			return fmt.Errorf("failed to clean up temporary recordings: %w", err)
		}

		records, err := a.store.ListRecords(ctx)
		if err != nil {
			return err
		}
		referenced := make(map[string]bool, len(records))
		for _, r := range records {
			referenced[r.AudioFilePath] = true
		}

		files, err := a.files.ListRecordings()
		if err != nil {
			return err
		}
		var orphans int
		for _, f := range files {
			if referenced[f] {
				continue
			}
			orphans++
			if !cleanupPrune {
				fmt.Printf("unreferenced: %s\n", f)
				continue
			}
			if err := a.files.RemoveRecording(f); err != nil {
				slog.Warn("Failed to remove recording", "file", f, "error", err)
				continue
			}
			fmt.Printf("removed: %s\n", f)
		}

		fmt.Printf("%d recordings, %d entries, %d unreferenced\n", len(files), len(records), orphans)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupPrune, "prune", false, "delete recordings no entry refers to")
}
