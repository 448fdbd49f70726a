package main

import (
	"encoding/json"
	"fmt"

	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/cwbudde/algo-kalimba/preset"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets [name]",
	Short: "List built-in presets or print one as JSON",
	Long: `Without arguments, list the built-in instrument presets. With a name,
print the full preset as JSON, ready to edit and pass via --preset-file.

Examples:
  kalimba presets
  kalimba presets soft-piano > piano.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPresets,
}

func runPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, name := range melody.PresetNames() {
			p, err := melody.ParsePreset(name)
			if err != nil {
				return err
			}
			prof := melody.NewProfile(p)
			fmt.Fprintf(out, "%-18s %d partials, %.0f-%.0f Hz, polyphony %d, %.2fs notes\n",
				name, len(prof.Harmonics), prof.MinFrequencyHz, prof.MaxFrequencyHz, prof.Polyphony, prof.NoteDurationSeconds)
		}
		return nil
	}

	p, err := melody.ParsePreset(args[0])
	if err != nil {
		return err
	}
	f := preset.FromProfile(melody.NewProfile(p))
	f.Base = p.String()
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(b))
	return nil
}
