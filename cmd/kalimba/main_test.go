package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-kalimba/internal/audiofile"
	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/cwbudde/algo-kalimba/preset"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("kalimba %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func writeToneWAV(t *testing.T, freq float64, seconds float64, sampleRate int) string {
	t.Helper()
	n := int(seconds * float64(sampleRate))
	data := make([]float32, n)
	for i := range data {
		ts := float64(i) / float64(sampleRate)
		data[i] = float32(0.5 * math.Exp(-1.5*ts) * math.Sin(2*math.Pi*freq*ts))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := audiofile.WriteMonoWAV(path, data, sampleRate, 16); err != nil {
		t.Fatalf("WriteMonoWAV: %v", err)
	}
	return path
}

func TestRenderCommandEndToEnd(t *testing.T) {
	in := writeToneWAV(t, 660, 1.0, 44100)
	out := filepath.Join(t.TempDir(), "render", "out.wav")
	log := execute(t, "render", in, "-o", out,
		"--preset", "kalimba", "--preset-file", "", "--sample-rate", "44100",
		"--frame-size", "2048", "--hop", "512", "--stride", "0",
		"--bit-depth", "16", "--workers", "2", "--body=false", "--ambience-mix=-1")

	if !strings.Contains(log, "[5/5]") || !strings.Contains(log, "Output saved to: "+out) {
		t.Fatalf("unexpected progress output:\n%s", log)
	}
	sel := strings.Index(log, "[3/5] Selecting notes...")
	synth := strings.Index(log, "[4/5]")
	if sel < 0 || synth < sel || !strings.Contains(log[sel:synth], "notes selected") {
		t.Fatalf("expected a note count under the select stage:\n%s", log)
	}
	got, sr, err := audiofile.ReadMono(out)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if sr != 44100 || len(got) != 44100 {
		t.Fatalf("output %d samples at %d Hz, want 44100 at 44100", len(got), sr)
	}
	peak := 0.0
	for _, v := range got {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < 0.9 || peak > 1.0001 {
		t.Fatalf("expected normalized output, peak=%f", peak)
	}
}

func TestRenderCommandWithBodyResonance(t *testing.T) {
	in := writeToneWAV(t, 440, 0.5, 22050)
	out := filepath.Join(t.TempDir(), "body.wav")
	execute(t, "render", in, "-o", out,
		"--preset", "bell", "--preset-file", "", "--sample-rate", "22050",
		"--frame-size", "1024", "--hop", "256", "--stride", "2",
		"--bit-depth", "24", "--workers", "auto", "--body", "--ambience-mix", "0.4")
	got, _, err := audiofile.ReadMono(out)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if len(got) != 11025 {
		t.Fatalf("output length %d, want 11025", len(got))
	}
}

func TestRenderCommandRejectsBadWorkers(t *testing.T) {
	rootCmd.SetArgs([]string{"render", "missing.wav", "--workers", "none"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected error for invalid --workers")
	}
	renderOpts.workers = "auto"
}

func TestAnalyzeCommandPrintsNotes(t *testing.T) {
	in := writeToneWAV(t, 660, 1.0, 44100)
	raw := execute(t, "analyze", in, "--preset", "kalimba", "--preset-file", "",
		"--sample-rate", "44100", "--frame-size", "2048", "--hop", "512", "--stride", "4")

	var res analyzeOutput
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, raw)
	}
	if res.Frames != 44100/512+1 {
		t.Fatalf("frames = %d", res.Frames)
	}
	if len(res.Notes) == 0 {
		t.Fatalf("expected detected notes")
	}
	for _, n := range res.Notes {
		if math.Abs(n.FrequencyHz-660) > 44100.0/2048.0 {
			t.Fatalf("note at %.1f Hz, want about 660", n.FrequencyHz)
		}
		if n.Intensity <= 0 || n.Intensity > 1 {
			t.Fatalf("intensity %f out of range", n.Intensity)
		}
	}
}

func TestPresetsCommand(t *testing.T) {
	list := execute(t, "presets")
	for _, name := range melody.PresetNames() {
		if !strings.Contains(list, name) {
			t.Fatalf("preset %q missing from list:\n%s", name, list)
		}
	}

	dump := execute(t, "presets", "soft-piano")
	path := filepath.Join(t.TempDir(), "piano.json")
	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	s, err := preset.LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON of dumped preset: %v", err)
	}
	want := melody.NewProfile(melody.SoftPiano)
	if s.Profile.DecayRate != want.DecayRate || len(s.Profile.Harmonics) != len(want.Harmonics) {
		t.Fatalf("dumped preset differs: %+v", s.Profile)
	}
}

func TestIRCommandWritesWAV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ir.wav")
	log := execute(t, "ir", "-o", out, "--sample-rate", "22050", "--duration", "0.05", "--seed", "3")
	if !strings.Contains(log, "Wrote "+out) {
		t.Fatalf("unexpected output: %s", log)
	}
	ir, sr, err := audiofile.ReadMono(out)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if sr != 22050 || len(ir) != int(math.Round(0.05*22050)) {
		t.Fatalf("ir has %d samples at %d Hz", len(ir), sr)
	}
}

func TestFitCommandWritesLoadablePreset(t *testing.T) {
	target := melody.NewProfile(melody.Kalimba)
	target.DecayRate = 3.5
	w := melody.Synthesize(523.25, 0.6, 1.0, target, 22050)
	ref := filepath.Join(t.TempDir(), "ref.wav")
	if err := audiofile.WriteMonoWAV(ref, w.Samples, 22050, 24); err != nil {
		t.Fatalf("WriteMonoWAV: %v", err)
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "fitted.json")
	report := filepath.Join(dir, "report.json")
	log := execute(t, "fit", ref, "-o", out, "--report", report,
		"--preset", "kalimba", "--preset-file", "", "--freq", "0",
		"--max-evals", "24", "--pop", "4", "--round-evals", "24",
		"--workers", "1", "--time-budget", "60", "--report-every", "0")
	if !strings.Contains(log, "Start score=") || !strings.Contains(log, "Preset saved to:") {
		t.Fatalf("unexpected fit output:\n%s", log)
	}

	s, err := preset.LoadJSON(out)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if s.Profile.Name != "fitted" {
		t.Fatalf("profile name = %q", s.Profile.Name)
	}
	var rep fitReport
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Evals < 1 || rep.Evals > 24 {
		t.Fatalf("evals = %d", rep.Evals)
	}
	if math.Abs(rep.FreqHz-523.25) > 22050.0/8192.0 {
		t.Fatalf("detected %.2f Hz, want about 523.25", rep.FreqHz)
	}
}

func TestKnobsApplyToProfile(t *testing.T) {
	base := melody.NewProfile(melody.SoftPiano)
	defs, initial := initKnobs(base)
	if len(defs) != len(initial.Vals) {
		t.Fatalf("%d defs for %d values", len(defs), len(initial.Vals))
	}
	p := applyCandidate(base, defs, initial)
	if p.DecayRate != base.DecayRate || p.AttackSeconds != base.AttackSeconds {
		t.Fatalf("initial candidate changed envelope: %+v", p)
	}
	for i := range base.Harmonics {
		if p.Harmonics[i] != base.Harmonics[i] {
			t.Fatalf("harmonic %d changed: %+v vs %+v", i, p.Harmonics[i], base.Harmonics[i])
		}
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("applied profile invalid: %v", err)
	}

	hi := fromNormalized(onesLike(defs), defs)
	top := applyCandidate(base, defs, hi)
	if top.DecayRate != 20.0 || top.Harmonics[1].Weight != 1.5 {
		t.Fatalf("upper bounds not applied: %+v", top)
	}
	if base.DecayRate == 20.0 {
		t.Fatalf("base profile mutated")
	}
}

func TestFromNormalizedClamps(t *testing.T) {
	defs := []knobDef{{Name: "a", Min: 1, Max: 3}, {Name: "b", Min: 0, Max: 10, IsInt: true}}
	c := fromNormalized([]float64{-1, 0.46}, defs)
	if c.Vals[0] != 1 || c.Vals[1] != 5 {
		t.Fatalf("got %v", c.Vals)
	}
	c = fromNormalized([]float64{2}, defs)
	if c.Vals[0] != 3 || c.Vals[1] != 0 {
		t.Fatalf("got %v", c.Vals)
	}
}

func TestNewMayflyConfigVariants(t *testing.T) {
	for _, v := range []string{"ma", "desma", "olce", "eobbma", "gsasma", "mpma", "aoblmoa"} {
		cfg, err := newMayflyConfig(v, 10, 5, 3)
		if err != nil {
			t.Fatalf("variant %s: %v", v, err)
		}
		if cfg.ProblemSize != 5 || cfg.NPop != 10 || cfg.NM != 1 {
			t.Fatalf("variant %s: unexpected config %+v", v, cfg)
		}
	}
	if _, err := newMayflyConfig("pso", 10, 5, 3); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func onesLike(defs []knobDef) []float64 {
	out := make([]float64, len(defs))
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestCompareCommandIdenticalFilesScoreNearZero(t *testing.T) {
	in := writeToneWAV(t, 440, 1.0, 22050)
	raw := execute(t, "compare", in, in, "--json", "--sample-rate", "0")
	var m struct {
		Score    float64 `json:"score"`
		Dominant string  `json:"dominant"`
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode: %v\n%s", err, raw)
	}
	if m.Score > 0.01 {
		t.Fatalf("score %f for identical files", m.Score)
	}

	text := execute(t, "compare", in, "--json=false", "--preset", "kalimba", "--preset-file", "", "--freq", "440")
	if !strings.Contains(text, "Similarity:") {
		t.Fatalf("unexpected text output:\n%s", text)
	}
}
