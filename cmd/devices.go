package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voicejournal/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio devices",
	Long:  `List the audio devices the configured backend can record from and play to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := audio.NewBackend(cfg)
		if err != nil {
			return err
		}
		devices, err := backend.ListDevices()
		if err != nil {
			return fmt.Errorf("failed to get %s devices: %w", backend.Type(), err)
		}

		fmt.Printf("🎙  Audio Devices (%s, %s)\n", backend.Type(), runtime.GOOS)
		fmt.Printf("═══════════════════════════════════════\n\n")

		for i, d := range devices {
			marker := ""
			if d.DefaultInput {
				marker += " [default input]"
			}
			if d.DefaultOutput {
				marker += " [default output]"
			}
			fmt.Printf("  %d. %s%s\n", i+1, d.Name, marker)
			fmt.Printf("     host api: %s, in: %d, out: %d, rate: %.0f Hz\n",
				d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
		}

		fmt.Printf("\n💡 Recording format: %d Hz, %d channel(s), %d-bit\n",
			cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.BitDepth)
		return nil
	},
}
