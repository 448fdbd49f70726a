package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kalimba",
	Short: "Re-voice the melody of a recording with a synthetic instrument",
	Long: `kalimba detects the dominant pitches of an audio file frame by frame
and renders them again with a parametric voice (kalimba, soft piano, bell).

Pipeline: audio → STFT → peak picking → additive synthesis → overlap-add → normalize`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print per-stage details")
	rootCmd.AddCommand(renderCmd, presetsCmd, analyzeCmd, irCmd, fitCmd, compareCmd)
}
