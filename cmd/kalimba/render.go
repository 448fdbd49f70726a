package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-kalimba/analysis"
	"github.com/cwbudde/algo-kalimba/internal/audiofile"
	"github.com/cwbudde/algo-kalimba/internal/cliutil"
	"github.com/cwbudde/algo-kalimba/internal/report"
	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <input>",
	Short: "Render the melody of an audio file with an instrument voice",
	Long: `Analyze a WAV or FLAC file, pick the dominant pitches and write a
re-synthesized, peak-normalized rendition.

Examples:
  kalimba render song.wav
  kalimba render song.flac -o out.wav --preset bell --stride 8
  kalimba render song.wav --preset-file my.json --body --ambience-mix 0.25`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var renderOpts struct {
	voice      voiceFlags
	output     string
	sampleRate int
	frameSize  int
	hopLength  int
	stride     int
	bitDepth   int
	workers    string
}

func init() {
	f := renderCmd.Flags()
	renderOpts.voice.register(renderCmd)
	f.StringVarP(&renderOpts.output, "output", "o", "output.wav", "Output WAV path")
	f.IntVar(&renderOpts.sampleRate, "sample-rate", 44100, "Analysis and render sample rate in Hz")
	f.IntVar(&renderOpts.frameSize, "frame-size", 2048, "STFT frame size (power of two)")
	f.IntVar(&renderOpts.hopLength, "hop", 512, "STFT hop length in samples")
	f.IntVar(&renderOpts.stride, "stride", 0, "Evaluate every Nth frame (0 = preset stride)")
	f.IntVar(&renderOpts.bitDepth, "bit-depth", 24, "Output bit depth (16, 24 or 32)")
	f.StringVar(&renderOpts.workers, "workers", "auto", "Synthesis workers (integer >= 1 or 'auto')")
}

func runRender(cmd *cobra.Command, args []string) error {
	o := &renderOpts
	rep := report.NewReporter(cmd.OutOrStdout(), verbose)

	workers, err := cliutil.ParseWorkers(o.workers)
	if err != nil {
		return fmt.Errorf("invalid --workers: %w", err)
	}
	settings, err := o.voice.resolveSettings()
	if err != nil {
		return err
	}
	profile := settings.Profile
	if o.stride > 0 {
		profile.FrameStride = o.stride
	}

	rep.StartStage(report.StageLoad)
	samples, srcRate, err := audiofile.ReadMono(args[0])
	if err != nil {
		return fmt.Errorf("read %q: %w", args[0], err)
	}
	rep.Update("%d samples at %d Hz", len(samples), srcRate)
	samples, err = audiofile.Resample(samples, srcRate, o.sampleRate)
	if err != nil {
		return fmt.Errorf("resample %d -> %d: %w", srcRate, o.sampleRate, err)
	}

	rep.StartStage(report.StageAnalyze)
	cfg := analysis.DefaultFrameConfig()
	cfg.FrameSize = o.frameSize
	cfg.HopLength = o.hopLength
	frames, err := analysis.Frames(samples, o.sampleRate, cfg)
	if err != nil {
		return err
	}
	rep.StageComplete("%d frames at %d Hz", len(frames), o.sampleRate)

	opts := []melody.Option{melody.WithWorkers(workers)}
	fx, err := o.voice.effect(settings, o.sampleRate)
	if err != nil {
		return err
	}
	if fx != nil {
		opts = append(opts, melody.WithEffect(fx))
		rep.Update("body resonance: %d-sample IR", fx.IRLen())
	}
	engine, err := melody.NewEngine(profile, opts...)
	if err != nil {
		return err
	}

	rep.StartStage(report.StageSelect)
	rep.Update("voice %q, stride %d, polyphony %d", profile.Name, profile.Stride(), profile.Polyphony)
	notes, err := engine.SelectNotes(frames, cfg.HopLength)
	if err != nil {
		return err
	}
	rep.StageComplete("%d notes selected", len(notes))

	rep.StartStage(report.StageSynthesize)
	res, err := engine.RenderNotes(notes, len(samples), o.sampleRate)
	if err != nil {
		return err
	}
	rep.StageComplete("%d notes rendered", len(res.Notes))
	if len(res.Notes) == 0 {
		rep.Warning("no notes passed the %.2f sensitivity threshold; output is silent", profile.Sensitivity)
	}

	rep.StartStage(report.StageWrite)
	if err := audiofile.WriteMonoWAV(o.output, res.Buffer.Samples, res.SampleRate, o.bitDepth); err != nil {
		return fmt.Errorf("write %q: %w", o.output, err)
	}
	if fi, err := os.Stat(o.output); err == nil {
		rep.Update("%d bytes", fi.Size())
	}
	rep.Done(o.output)
	return nil
}
