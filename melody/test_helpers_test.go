package melody

import (
	"math"
	"testing"
)

// testProfile is a small deterministic voice with a wide frequency range.
func testProfile() *Profile {
	return &Profile{
		Name:                "test",
		Harmonics:           []Harmonic{{Ratio: 1.0, Weight: 1.0}},
		AttackSeconds:       0.001,
		DecayRate:           4.0,
		MinFrequencyHz:      100.0,
		MaxFrequencyHz:      1000.0,
		Polyphony:           1,
		Sensitivity:         0.1,
		FrameStride:         1,
		NoteDurationSeconds: 0.1,
		MixGain:             1.0,
	}
}

// binFrame builds a frame whose bins are given as freq/magnitude pairs.
func binFrame(index int, pairs ...float64) AnalysisFrame {
	f := AnalysisFrame{Index: index}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Frequencies = append(f.Frequencies, pairs[i])
		f.Magnitudes = append(f.Magnitudes, pairs[i+1])
	}
	return f
}

// linearFrames returns n frames over a shared linear bin grid with a single
// loud bin per frame cycling through the given frequencies.
func linearFrames(n int, bins int, binHz float64, loudBins []int) []AnalysisFrame {
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * binHz
	}
	frames := make([]AnalysisFrame, n)
	for i := range frames {
		mags := make([]float64, bins)
		for k := range mags {
			mags[k] = 0.01
		}
		if len(loudBins) > 0 {
			mags[loudBins[i%len(loudBins)]] = 1.0 - 0.001*float64(i%7)
		}
		frames[i] = AnalysisFrame{Index: i, Frequencies: freqs, Magnitudes: mags}
	}
	return frames
}

func maxAbs32(x []float32) float64 {
	var m float64
	for _, v := range x {
		if a := math.Abs(float64(v)); a > m {
			m = a
		}
	}
	return m
}

func assertAllZero(t *testing.T, x []float32) {
	t.Helper()
	for i, v := range x {
		if v != 0 {
			t.Fatalf("expected silence, sample %d = %f", i, v)
		}
	}
}

// zeroCrossingFreq estimates a waveform's fundamental from zero crossings.
func zeroCrossingFreq(samples []float32, sampleRate int) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float64(len(samples)) / float64(sampleRate)
	return float64(crossings) / (2.0 * duration)
}
