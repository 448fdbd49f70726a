package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-kalimba/analysis"
	"github.com/cwbudde/algo-kalimba/internal/audiofile"
	"github.com/cwbudde/algo-kalimba/internal/cliutil"
	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/cwbudde/algo-kalimba/preset"
	"github.com/cwbudde/mayfly"
	"github.com/spf13/cobra"
)

var fitCmd = &cobra.Command{
	Use:   "fit <reference-note>",
	Short: "Fit a preset's envelope and partials to a recorded single note",
	Long: `Search the profile knobs (attack, decay, partial ratios, weights and
decays, noise, tone) with a mayfly optimizer so that a synthesized note
matches a recording of one plucked or struck note. The best profile is
written as a preset JSON file.

Examples:
  kalimba fit tine_c5.wav -o my_kalimba.json
  kalimba fit bell.flac --preset bell --freq 880 --max-evals 2000 --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

var fitOpts struct {
	voice       voiceFlags
	output      string
	reportPath  string
	renderPath  string
	freq        float64
	maxSeconds  float64
	maxEvals    int
	timeBudget  float64
	variant     string
	pop         int
	roundEvals  int
	reportEvery int
	seed        int64
	workers     string
}

func init() {
	f := fitCmd.Flags()
	fitOpts.voice.register(fitCmd)
	f.StringVarP(&fitOpts.output, "output", "o", "fitted.json", "Output preset JSON path")
	f.StringVar(&fitOpts.reportPath, "report", "", "Optional JSON report with the best metrics and knobs")
	f.StringVar(&fitOpts.renderPath, "render", "", "Optional WAV of the best candidate note")
	f.Float64Var(&fitOpts.freq, "freq", 0, "Note frequency in Hz (0 = detect)")
	f.Float64Var(&fitOpts.maxSeconds, "max-seconds", 3.0, "Reference length used for scoring")
	f.IntVar(&fitOpts.maxEvals, "max-evals", 400, "Maximum candidate evaluations")
	f.Float64Var(&fitOpts.timeBudget, "time-budget", 120, "Wall-clock budget in seconds")
	f.StringVar(&fitOpts.variant, "variant", "ma", "Mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	f.IntVar(&fitOpts.pop, "pop", 10, "Mayfly population size")
	f.IntVar(&fitOpts.roundEvals, "round-evals", 200, "Evaluations per optimizer round")
	f.IntVar(&fitOpts.reportEvery, "report-every", 50, "Print progress every N evaluations (0 = off)")
	f.Int64Var(&fitOpts.seed, "seed", 1, "Optimizer seed")
	f.StringVar(&fitOpts.workers, "workers", "auto", "Parallel optimizer rounds (integer >= 1 or 'auto')")
}

type fitConfig struct {
	reference   []float64
	sampleRate  int
	freqHz      float64
	base        *melody.Profile
	defs        []knobDef
	initial     candidate
	maxEvals    int
	timeBudget  float64
	variant     string
	pop         int
	roundEvals  int
	reportEvery int
	seed        int64
	workers     int
}

type fitResult struct {
	best    candidate
	metrics analysis.Metrics
	profile *melody.Profile
	evals   int
	elapsed float64
}

type fitState struct {
	mu          sync.Mutex
	best        candidate
	bestMetrics analysis.Metrics
}

type fitReport struct {
	Reference  string             `json:"reference"`
	FreqHz     float64            `json:"freq_hz"`
	SampleRate int                `json:"sample_rate"`
	Variant    string             `json:"variant"`
	Evals      int                `json:"evals"`
	ElapsedS   float64            `json:"elapsed_s"`
	Metrics    analysis.Metrics   `json:"metrics"`
	Knobs      map[string]float64 `json:"knobs"`
}

func runFit(cmd *cobra.Command, args []string) error {
	o := &fitOpts
	out := cmd.OutOrStdout()

	workers, err := cliutil.ParseWorkers(o.workers)
	if err != nil {
		return fmt.Errorf("invalid --workers: %w", err)
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if o.maxEvals < 1 || o.pop < 2 || o.roundEvals < 1 || o.timeBudget <= 0 {
		return fmt.Errorf("--max-evals, --round-evals must be >= 1, --pop >= 2, --time-budget > 0")
	}
	if _, err := newMayflyConfig(strings.ToLower(o.variant), o.pop, 1, 1); err != nil {
		return err
	}

	settings, err := o.voice.resolveSettings()
	if err != nil {
		return err
	}
	ref, sr, err := audiofile.ReadMono(args[0])
	if err != nil {
		return fmt.Errorf("read reference %q: %w", args[0], err)
	}
	if limit := int(o.maxSeconds * float64(sr)); o.maxSeconds > 0 && len(ref) > limit {
		ref = ref[:limit]
	}

	freq := o.freq
	if freq <= 0 {
		freq, err = detectFrequency(ref, sr, settings.Profile)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Reference %s: %d samples at %d Hz, note %.2f Hz\n", args[0], len(ref), sr, freq)

	defs, initial := initKnobs(settings.Profile)
	res, err := runOptimization(&fitConfig{
		reference:   ref,
		sampleRate:  sr,
		freqHz:      freq,
		base:        settings.Profile,
		defs:        defs,
		initial:     initial,
		maxEvals:    o.maxEvals,
		timeBudget:  o.timeBudget,
		variant:     strings.ToLower(o.variant),
		pop:         o.pop,
		roundEvals:  o.roundEvals,
		reportEvery: o.reportEvery,
		seed:        o.seed,
		workers:     workers,
	}, out)
	if err != nil {
		return err
	}

	fitted := &preset.Settings{
		Profile:     res.profile,
		IRWavPath:   settings.IRWavPath,
		AmbienceMix: settings.AmbienceMix,
	}
	fitted.Profile.Name = strings.TrimSuffix(filepath.Base(o.output), filepath.Ext(o.output))
	if err := preset.WriteJSON(o.output, fitted); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	fmt.Fprintf(out, "Done evals=%d elapsed=%.1fs score=%.4f similarity=%.2f%%\n",
		res.evals, res.elapsed, res.metrics.Score, res.metrics.Similarity*100.0)
	fmt.Fprintf(out, "Preset saved to: %s\n", o.output)

	if o.renderPath != "" {
		w := melody.Synthesize(freq, float64(len(ref))/float64(sr), 1.0, res.profile, sr)
		buf := &melody.Buffer{Samples: w.Samples}
		melody.Normalize(buf)
		if err := audiofile.WriteMonoWAV(o.renderPath, buf.Samples, sr, 24); err != nil {
			return fmt.Errorf("write render: %w", err)
		}
	}
	if o.reportPath != "" {
		rep := fitReport{
			Reference:  args[0],
			FreqHz:     freq,
			SampleRate: sr,
			Variant:    strings.ToLower(o.variant),
			Evals:      res.evals,
			ElapsedS:   res.elapsed,
			Metrics:    res.metrics,
			Knobs:      knobMap(defs, res.best),
		}
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.reportPath, append(b, '\n'), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

// detectFrequency returns the loudest in-range pitch of the reference.
func detectFrequency(ref []float64, sampleRate int, p *melody.Profile) (float64, error) {
	cfg := analysis.DefaultFrameConfig()
	cfg.FrameSize = 8192
	for cfg.FrameSize > 256 && cfg.FrameSize > len(ref) {
		cfg.FrameSize /= 2
	}
	cfg.HopLength = cfg.FrameSize / 4
	frames, err := analysis.Frames(ref, sampleRate, cfg)
	if err != nil {
		return 0, err
	}
	picker := melody.NewPeakPicker(p, 1)
	picker.Polyphony = 1
	var best melody.DetectedNote
	for _, n := range picker.Select(frames, cfg.HopLength) {
		if n.Intensity > best.Intensity {
			best = n
		}
	}
	if best.FrequencyHz <= 0 {
		return 0, fmt.Errorf("no pitch between %.0f and %.0f Hz found; pass --freq", p.MinFrequencyHz, p.MaxFrequencyHz)
	}
	return best.FrequencyHz, nil
}

func evaluateCandidate(cfg *fitConfig, cand candidate) (analysis.Metrics, *melody.Profile) {
	p := applyCandidate(cfg.base, cfg.defs, cand)
	dur := float64(len(cfg.reference)) / float64(cfg.sampleRate)
	w := melody.Synthesize(cfg.freqHz, dur, 1.0, p, cfg.sampleRate)
	return analysis.Compare(cfg.reference, audiofile.ToFloat64(w.Samples), cfg.sampleRate), p
}

func runOptimization(cfg *fitConfig, out io.Writer) (*fitResult, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))

	initMetrics, _ := evaluateCandidate(cfg, cfg.initial)
	fmt.Fprintf(out, "Start score=%.4f similarity=%.2f%%\n", initMetrics.Score, initMetrics.Similarity*100.0)
	state := &fitState{best: cloneCandidate(cfg.initial), bestMetrics: initMetrics}

	var evals int64 = 1
	var rounds int64
	var wg sync.WaitGroup
	var outMu sync.Mutex
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if time.Now().After(deadline) {
					return
				}
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				round := atomic.AddInt64(&rounds, 1)
				budget := min(cfg.roundEvals, remaining)
				iters := max(1, budget/(2*cfg.pop))

				mcfg, err := newMayflyConfig(cfg.variant, cfg.pop, len(cfg.defs), iters)
				if err != nil {
					return
				}
				mcfg.Rand = rand.New(rand.NewSource(cfg.seed + round*7919))
				mcfg.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}
					cand := fromNormalized(pos, cfg.defs)
					m, _ := evaluateCandidate(cfg, cand)

					state.mu.Lock()
					improved := m.Score < state.bestMetrics.Score
					if improved {
						state.best = cloneCandidate(cand)
						state.bestMetrics = m
					}
					bestScore := state.bestMetrics.Score
					state.mu.Unlock()

					outMu.Lock()
					if improved {
						fmt.Fprintf(out, "Improved eval=%d score=%.4f sim=%.2f%%\n", evalNum, m.Score, m.Similarity*100.0)
					}
					if cfg.reportEvery > 0 && evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Fprintf(out, "Progress eval=%d/%d elapsed=%.1fs best=%.4f\n", evalNum, cfg.maxEvals, time.Since(start).Seconds(), bestScore)
					}
					outMu.Unlock()
					return m.Score
				}
				if _, err := runMayfly(mcfg); err != nil {
					outMu.Lock()
					fmt.Fprintf(out, "mayfly round %d failed: %v\n", round, err)
					outMu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	best := cloneCandidate(state.best)
	state.mu.Unlock()
	metrics, profile := evaluateCandidate(cfg, best)
	return &fitResult{
		best:    best,
		metrics: metrics,
		profile: profile,
		evals:   int(atomic.LoadInt64(&evals)),
		elapsed: time.Since(start).Seconds(),
	}, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported mayfly variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *fitState) float64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.bestMetrics.Score
}
