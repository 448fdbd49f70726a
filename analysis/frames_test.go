package analysis

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-kalimba/melody"
)

func sine(sr int, freq float64, seconds float64) []float64 {
	n := int(float64(sr) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func TestFramesCountAndShape(t *testing.T) {
	sig := sine(44100, 440, 1.0)
	cfg := DefaultFrameConfig()
	frames, err := Frames(sig, 44100, cfg)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	want := len(sig)/cfg.HopLength + 1
	if len(frames) != want {
		t.Fatalf("got %d frames, want %d", len(frames), want)
	}
	for i, f := range frames {
		if f.Index != i {
			t.Fatalf("frame %d has index %d", i, f.Index)
		}
		if len(f.Frequencies) != cfg.FrameSize/2+1 || len(f.Magnitudes) != len(f.Frequencies) {
			t.Fatalf("frame %d has %d freqs / %d mags", i, len(f.Frequencies), len(f.Magnitudes))
		}
	}
}

func TestFramesPeakAtToneFrequency(t *testing.T) {
	sr := 44100
	sig := sine(sr, 440, 0.5)
	frames, err := Frames(sig, sr, DefaultFrameConfig())
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	mid := frames[len(frames)/2]
	best := 0
	for k, m := range mid.Magnitudes {
		if m > mid.Magnitudes[best] {
			best = k
		}
	}
	binHz := float64(sr) / 2048.0
	if math.Abs(mid.Frequencies[best]-440) > binHz {
		t.Fatalf("peak at %.1f Hz, want 440 +/- %.1f", mid.Frequencies[best], binHz)
	}
}

func TestFramesFeedSelector(t *testing.T) {
	sr := 44100
	sig := sine(sr, 660, 1.0)
	frames, err := Frames(sig, sr, DefaultFrameConfig())
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	notes, err := melody.Select(frames, melody.NewProfile(melody.Kalimba), 0, 512)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(notes) == 0 {
		t.Fatalf("expected notes for a steady tone")
	}
	binHz := float64(sr) / 2048.0
	for _, n := range notes {
		if math.Abs(n.FrequencyHz-660) > binHz {
			t.Fatalf("note at %.1f Hz, want about 660", n.FrequencyHz)
		}
		if n.Onset%(4*512) != 0 {
			t.Fatalf("onset %d not on the kalimba frame stride", n.Onset)
		}
	}
}

func TestFramesBandLimitsZeroOutsideRange(t *testing.T) {
	cfg := DefaultFrameConfig()
	cfg.MinHz = 200
	cfg.MaxHz = 1000
	frames, err := Frames(sine(44100, 100, 0.3), 44100, cfg)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	f := frames[len(frames)/2]
	for k, hz := range f.Frequencies {
		if (hz < 200-1e-9 || hz > 1000) && f.Magnitudes[k] != 0 {
			t.Fatalf("bin %d (%.1f Hz) has magnitude %g outside band", k, hz, f.Magnitudes[k])
		}
	}
}

func TestFramesValidation(t *testing.T) {
	bad := []FrameConfig{
		{FrameSize: 1000, HopLength: 256},
		{FrameSize: 8, HopLength: 4},
		{FrameSize: 1024, HopLength: 0},
		{FrameSize: 1024, HopLength: 256, MinHz: 500, MaxHz: 400},
	}
	for _, cfg := range bad {
		if _, err := Frames([]float64{0, 1}, 44100, cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
	if _, err := Frames([]float64{0, 1}, 0, DefaultFrameConfig()); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	frames, err := Frames(nil, 44100, DefaultFrameConfig())
	if err != nil || len(frames) != 0 {
		t.Fatalf("expected no frames for empty input, got %d, %v", len(frames), err)
	}
}
