package main

import (
	"encoding/json"
	"fmt"

	"github.com/cwbudde/algo-kalimba/analysis"
	"github.com/cwbudde/algo-kalimba/internal/audiofile"
	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <reference> [candidate]",
	Short: "Score how closely a note matches a reference recording",
	Long: `Compare a candidate note against a reference note. Without a candidate
file, the note is synthesized from the selected preset at the reference's
pitch (or --freq).

Examples:
  kalimba compare tine.wav render.wav
  kalimba compare tine.wav --preset-file fitted.json --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCompare,
}

var compareOpts struct {
	voice      voiceFlags
	freq       float64
	sampleRate int
	jsonOut    bool
}

func init() {
	f := compareCmd.Flags()
	compareOpts.voice.register(compareCmd)
	f.Float64Var(&compareOpts.freq, "freq", 0, "Synthesized note frequency in Hz (0 = detect)")
	f.IntVar(&compareOpts.sampleRate, "sample-rate", 0, "Analysis sample rate in Hz (0 = reference rate)")
	f.BoolVar(&compareOpts.jsonOut, "json", false, "Print metrics as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	o := &compareOpts
	out := cmd.OutOrStdout()

	ref, refSR, err := audiofile.ReadMono(args[0])
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}
	sr := o.sampleRate
	if sr <= 0 {
		sr = refSR
	}
	if ref, err = audiofile.Resample(ref, refSR, sr); err != nil {
		return fmt.Errorf("resample reference: %w", err)
	}

	var cand []float64
	if len(args) == 2 {
		raw, candSR, err := audiofile.ReadMono(args[1])
		if err != nil {
			return fmt.Errorf("read candidate: %w", err)
		}
		if cand, err = audiofile.Resample(raw, candSR, sr); err != nil {
			return fmt.Errorf("resample candidate: %w", err)
		}
	} else {
		settings, err := o.voice.resolveSettings()
		if err != nil {
			return err
		}
		freq := o.freq
		if freq <= 0 {
			if freq, err = detectFrequency(ref, sr, settings.Profile); err != nil {
				return err
			}
		}
		w := melody.Synthesize(freq, float64(len(ref))/float64(sr), 1.0, settings.Profile, sr)
		cand = audiofile.ToFloat64(w.Samples)
	}

	m := analysis.Compare(ref, cand, sr)
	if o.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	fmt.Fprintf(out, "Reference frames: %d\n", m.ReferenceFrames)
	fmt.Fprintf(out, "Candidate frames: %d\n", m.CandidateFrames)
	fmt.Fprintf(out, "Aligned frames:   %d\n", m.AlignedFrames)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Component        Raw          Norm   Weight  Contribution\n")
	printComp := func(name string, raw string, norm, weight float64, dominant bool) {
		marker := ""
		if dominant {
			marker = " <"
		}
		fmt.Fprintf(out, "%-16s %-12s %5.1f%%  x%.2f   -> %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	printComp("Envelope RMSE", fmt.Sprintf("%.1f dB", m.EnvelopeRMSEDB), m.EnvelopeNorm, analysis.WeightEnvelope, m.Dominant == "envelope")
	printComp("Spectral RMSE", fmt.Sprintf("%.1f dB", m.SpectralRMSEDB), m.SpectralNorm, analysis.WeightSpectral, m.Dominant == "spectral")
	printComp("Decay diff", fmt.Sprintf("%.1f dB/s", m.DecayDiffDBPerS), m.DecayNorm, analysis.WeightDecay, m.Dominant == "decay")
	fmt.Fprintf(out, "Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Fprintf(out, "Similarity:       %.2f%%\n", m.Similarity*100.0)
	fmt.Fprintf(out, "Decay slopes: ref=%.1f dB/s  cand=%.1f dB/s\n", m.RefDecayDBPerS, m.CandDecayDBPerS)
	return nil
}
