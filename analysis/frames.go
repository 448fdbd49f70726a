package analysis

import (
	"fmt"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-kalimba/melody"
	"github.com/mjibson/go-dsp/window"
)

// FrameConfig controls the short-time spectral analysis.
type FrameConfig struct {
	FrameSize int // FFT size, power of two
	HopLength int
	MinHz     float64 // bins below are reported with zero magnitude
	MaxHz     float64 // 0 = Nyquist
}

// DefaultFrameConfig matches a 2048/512 analysis.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		FrameSize: 2048,
		HopLength: 512,
		MinHz:     30.0,
	}
}

func (c *FrameConfig) Validate() error {
	if c.FrameSize < 16 || c.FrameSize&(c.FrameSize-1) != 0 {
		return fmt.Errorf("frame size must be a power of two >= 16, got %d", c.FrameSize)
	}
	if c.HopLength < 1 {
		return fmt.Errorf("hop length must be >= 1")
	}
	if c.MinHz < 0 || c.MaxHz < 0 {
		return fmt.Errorf("frequency limits must be >= 0")
	}
	if c.MaxHz > 0 && c.MaxHz <= c.MinHz {
		return fmt.Errorf("max Hz must be above min Hz")
	}
	return nil
}

// BinFrequencies returns the fixed bin-to-frequency mapping of an analysis run.
func BinFrequencies(frameSize int, sampleRate int) []float64 {
	bins := frameSize/2 + 1
	out := make([]float64, bins)
	binHz := float64(sampleRate) / float64(frameSize)
	for k := range out {
		out[k] = float64(k) * binHz
	}
	return out
}

// Frames runs a centered, Hann-windowed STFT over mono samples.
// Frame i is centered on sample i*HopLength, so there are
// len(samples)/HopLength+1 frames for non-empty input.
func Frames(samples []float64, sampleRate int, cfg FrameConfig) ([]melody.AnalysisFrame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	if len(samples) == 0 {
		return nil, nil
	}

	n := cfg.FrameSize
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	win := window.Hann(n)
	freqs := BinFrequencies(n, sampleRate)

	loBin, hiBin := 0, len(freqs)-1
	binHz := float64(sampleRate) / float64(n)
	if cfg.MinHz > 0 {
		loBin = int(cfg.MinHz/binHz + 0.999999)
	}
	if cfg.MaxHz > 0 && int(cfg.MaxHz/binHz) < hiBin {
		hiBin = int(cfg.MaxHz / binHz)
	}

	numFrames := len(samples)/cfg.HopLength + 1
	frames := make([]melody.AnalysisFrame, numFrames)
	buf := make([]float64, n)
	spectrum := make([]complex128, n/2+1)
	half := n / 2

	for i := 0; i < numFrames; i++ {
		start := i*cfg.HopLength - half
		for j := 0; j < n; j++ {
			idx := start + j
			if idx < 0 || idx >= len(samples) {
				buf[j] = 0
				continue
			}
			buf[j] = samples[idx] * win[j]
		}
		plan.Forward(spectrum, buf)

		mags := make([]float64, len(freqs))
		for k := loBin; k <= hiBin && k < len(mags); k++ {
			mags[k] = cmplx.Abs(spectrum[k])
		}
		frames[i] = melody.AnalysisFrame{
			Index:       i,
			Frequencies: freqs,
			Magnitudes:  mags,
		}
	}
	return frames, nil
}
