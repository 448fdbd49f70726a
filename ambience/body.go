// Package ambience adds an optional wooden-body resonance to a rendered mix.
package ambience

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cwbudde/algo-kalimba/dsp"
	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

// Corner of the DC-blocking highpass applied to the generated IR.
const dcCutoffHz = 35.0

// BodyConfig controls mono body IR generation.
//
// The resonator top is treated as a clamped rectangular membrane. Its mode
// frequencies come from the discrete Dirichlet Laplacian spectrum along each
// side, f_mn ∝ sqrt(λx_m + R²·λy_n), scaled so the lowest mode sits at
// FundamentalHz. An optional air-cavity mode adds the box's Helmholtz
// resonance.
type BodyConfig struct {
	SampleRate    int
	DurationS     float64
	Modes         int
	Seed          int64
	FundamentalHz float64 // lowest plate mode
	AspectRatio   float64 // Lx/Ly
	Brightness    float64
	DirectLevel   float64
	CavityHz      float64 // 0 = no cavity mode
	CavityLevel   float64
	LowDecayS     float64
	HighDecayS    float64
	CrossoverHz   float64
	FadeOutS      float64

	NormalizePeak float64
}

// DefaultBodyConfig approximates a small box-resonator kalimba.
func DefaultBodyConfig() BodyConfig {
	return BodyConfig{
		SampleRate:    44100,
		DurationS:     0.12,
		Modes:         40,
		Seed:          1,
		FundamentalHz: 310.0,
		AspectRatio:   1.4,
		Brightness:    1.0,
		DirectLevel:   0.7,
		CavityHz:      180.0,
		CavityLevel:   0.5,
		LowDecayS:     0.08,
		HighDecayS:    0.015,
		CrossoverHz:   1200.0,
		FadeOutS:      0.004,
		NormalizePeak: 0.9,
	}
}

func (c *BodyConfig) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.Modes < 1 {
		return fmt.Errorf("modes must be >= 1")
	}
	if c.FundamentalHz <= 0 || c.FundamentalHz >= 0.47*float64(c.SampleRate) {
		return fmt.Errorf("fundamental must be in (0, %.0f) Hz", 0.47*float64(c.SampleRate))
	}
	if c.AspectRatio <= 0 {
		return fmt.Errorf("aspect ratio must be > 0")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.DirectLevel < 0 || c.CavityLevel < 0 || c.CavityHz < 0 {
		return fmt.Errorf("direct and cavity settings must be >= 0")
	}
	if c.LowDecayS <= 0 || c.HighDecayS <= 0 {
		return fmt.Errorf("decay seconds must be > 0")
	}
	if c.CrossoverHz <= 0 {
		return fmt.Errorf("crossover Hz must be > 0")
	}
	if c.FadeOutS < 0 {
		return fmt.Errorf("fade-out must be >= 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// GenerateBody synthesizes a short mono body IR.
func GenerateBody(cfg BodyConfig) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := int(math.Round(cfg.DurationS * float64(cfg.SampleRate)))
	if n < 1 {
		n = 1
	}
	buf := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	buf[0] += cfg.DirectLevel

	maxF := 0.47 * float64(cfg.SampleRate)
	logCrossover := math.Log(cfg.CrossoverHz)
	brightnessExp := 0.7 + 0.9*cfg.Brightness
	addMode := func(f, amp float64) {
		blend := 1.0 / (1.0 + math.Exp(-3.0*(math.Log(f)-logCrossover)))
		tau := cfg.LowDecayS*(1.0-blend) + cfg.HighDecayS*blend
		decay := math.Exp(-1.0 / (tau * float64(cfg.SampleRate)))
		addModeRec(buf, amp, f, rng.Float64()*2.0*math.Pi, decay, cfg.SampleRate)
	}

	for _, f := range MembraneModes(cfg.FundamentalHz, maxF, cfg.Modes, cfg.AspectRatio) {
		amp := 0.9 / math.Pow(1.0+f/(2*cfg.FundamentalHz), brightnessExp)
		amp *= 0.7 + 0.6*rng.Float64()
		addMode(f, amp)
	}
	if cfg.CavityHz > 0 && cfg.CavityHz < maxF && cfg.CavityLevel > 0 {
		addMode(cfg.CavityHz, cfg.CavityLevel)
	}

	out := make([]float32, n)
	for i, v := range buf {
		out[i] = float32(v)
	}
	dsp.NewHighpass(dcCutoffHz, float32(cfg.SampleRate), 0.707).ProcessInPlace(out)
	applyFadeOut(out, cfg.FadeOutS, cfg.SampleRate)

	peak := maxAbs(out)
	if peak < 1e-12 {
		peak = 1e-12
	}
	g := float32(cfg.NormalizePeak / peak)
	for i := range out {
		out[i] *= g
	}
	return out, nil
}

// MembraneModes returns up to maxModes ascending mode frequencies in
// [fundamentalHz, maxHz] of a clamped rectangular membrane with side ratio
// aspect.
func MembraneModes(fundamentalHz, maxHz float64, maxModes int, aspect float64) []float64 {
	if maxModes < 1 || fundamentalHz <= 0 || maxHz < fundamentalHz || aspect <= 0 {
		return nil
	}
	// Grid resolution per side; index k only reaches about k*f11 so a
	// side of 2*sqrt(maxModes) points covers the lowest maxModes modes.
	side := 2*int(math.Ceil(math.Sqrt(float64(maxModes)))) + 2
	h := 1.0 / float64(side+1)
	lx := pdefd.Eigenvalues(side, h, pdepoisson.Dirichlet)
	ly := pdefd.Eigenvalues(side, h, pdepoisson.Dirichlet)
	r2 := aspect * aspect
	base := math.Sqrt(lx[0] + r2*ly[0])

	freqs := make([]float64, 0, side*side)
	for _, ex := range lx {
		for _, ey := range ly {
			f := fundamentalHz * math.Sqrt(ex+r2*ey) / base
			if f > maxHz {
				break
			}
			freqs = append(freqs, f)
		}
	}
	sort.Float64s(freqs)
	if len(freqs) > maxModes {
		freqs = freqs[:maxModes]
	}
	return freqs
}

// addModeRec adds a decaying sinusoid using the Chebyshev recurrence.
func addModeRec(out []float64, amp float64, freq float64, phase float64, decay float64, sampleRate int) {
	if len(out) == 0 {
		return
	}
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	cw := math.Cos(w)
	x0 := math.Cos(phase)
	x1 := math.Cos(phase + w)
	env := amp

	out[0] += env * x0
	if len(out) == 1 {
		return
	}
	env *= decay
	out[1] += env * x1
	for i := 2; i < len(out); i++ {
		x0, x1 = x1, 2.0*cw*x1-x0
		env *= decay
		out[i] += env * x1
	}
}

// applyFadeOut applies a raised-cosine fade to the last fadeS seconds of buf.
func applyFadeOut(buf []float32, fadeS float64, sampleRate int) {
	if fadeS <= 0 || len(buf) == 0 {
		return
	}
	fade := int(math.Round(fadeS * float64(sampleRate)))
	if fade > len(buf) {
		fade = len(buf)
	}
	start := len(buf) - fade
	for i := 0; i < fade; i++ {
		t := float64(i) / float64(fade)
		buf[start+i] *= float32(0.5 * (1.0 + math.Cos(t*math.Pi)))
	}
}

func maxAbs(x []float32) float64 {
	m := 0.0
	for _, v := range x {
		if a := math.Abs(float64(v)); a > m {
			m = a
		}
	}
	return m
}
