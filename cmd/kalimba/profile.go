package main

import (
	"fmt"

	"github.com/cwbudde/algo-kalimba/ambience"
	"github.com/cwbudde/algo-kalimba/analysis"
	"github.com/cwbudde/algo-kalimba/internal/audiofile"
	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/cwbudde/algo-kalimba/preset"
	"github.com/spf13/cobra"
)

// voiceFlags are shared by commands that need a profile.
type voiceFlags struct {
	presetName  string
	presetFile  string
	irPath      string
	body        bool
	ambienceMix float64
}

func (v *voiceFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&v.presetName, "preset", "p", "kalimba", "Built-in instrument preset")
	f.StringVar(&v.presetFile, "preset-file", "", "Preset JSON file (overrides --preset)")
	f.StringVar(&v.irPath, "ir", "", "Body IR WAV/FLAC path (overrides the preset file)")
	f.BoolVar(&v.body, "body", false, "Apply a generated wooden-body resonance")
	f.Float64Var(&v.ambienceMix, "ambience-mix", -1, "Body resonance wet level in [0,1] (default: preset value, or 0.3 with --body)")
}

// resolveSettings picks the profile from --preset-file, falling back to
// the built-in --preset.
func (v *voiceFlags) resolveSettings() (*preset.Settings, error) {
	if v.presetFile != "" {
		s, err := preset.LoadJSON(v.presetFile)
		if err != nil {
			return nil, fmt.Errorf("load preset %q: %w", v.presetFile, err)
		}
		return s, nil
	}
	p, err := melody.ParsePreset(v.presetName)
	if err != nil {
		return nil, err
	}
	return &preset.Settings{Profile: melody.NewProfile(p)}, nil
}

// effect builds the optional body-resonance convolver. Flags override the
// preset file.
func (v *voiceFlags) effect(s *preset.Settings, sampleRate int) (*ambience.Convolver, error) {
	mix := s.AmbienceMix
	if mix == 0 && v.body {
		mix = 0.3
	}
	if v.ambienceMix >= 0 {
		mix = v.ambienceMix
	}
	irPath := s.IRWavPath
	if v.irPath != "" {
		irPath = v.irPath
	}
	if mix == 0 || (irPath == "" && !v.body) {
		return nil, nil
	}

	var ir []float32
	var err error
	if irPath != "" {
		ir, err = ambience.LoadIR(irPath, sampleRate)
	} else {
		cfg := ambience.DefaultBodyConfig()
		cfg.SampleRate = sampleRate
		ir, err = ambience.GenerateBody(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("body IR: %w", err)
	}
	return ambience.NewConvolver(ir, mix)
}

// loadAnalysis reads path, resamples it and runs the spectral front end.
func loadAnalysis(path string, sampleRate int, cfg analysis.FrameConfig) ([]float64, []melody.AnalysisFrame, error) {
	samples, srcRate, err := audiofile.ReadMono(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", path, err)
	}
	samples, err = audiofile.Resample(samples, srcRate, sampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("resample %d -> %d: %w", srcRate, sampleRate, err)
	}
	frames, err := analysis.Frames(samples, sampleRate, cfg)
	if err != nil {
		return nil, nil, err
	}
	return samples, frames, nil
}
