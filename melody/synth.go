package melody

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-kalimba/dsp"
)

// Waveform is one synthesized note, owned by the caller until mixed.
type Waveform struct {
	Samples []float32
}

// Len returns the number of samples.
func (w Waveform) Len() int {
	return len(w.Samples)
}

// NoteSamples returns the sample count of a note lasting durationS seconds.
func NoteSamples(durationS float64, sampleRate int) int {
	if sampleRate <= 0 || !(durationS > 0) || !isFinite(durationS) {
		return 0
	}
	return int(math.Round(durationS * float64(sampleRate)))
}

// Synthesize renders one note of the voice described by p.
// A non-positive or non-finite frequency yields silence of the same length.
func Synthesize(freqHz, durationS, intensity float64, p *Profile, sampleRate int) Waveform {
	n := NoteSamples(durationS, sampleRate)
	out := Waveform{Samples: make([]float32, n)}
	if n == 0 || p == nil || !isFinite(freqHz) || freqHz <= 0 || !isFinite(intensity) {
		return out
	}

	sr := float64(sampleRate)
	nyquist := 0.5 * sr
	partials := p.partials()
	omegas := make([]float64, 0, len(partials))
	active := make([]Harmonic, 0, len(partials))
	for _, h := range partials {
		f := freqHz * h.Ratio
		if f >= nyquist || h.Weight == 0 {
			continue
		}
		omegas = append(omegas, 2.0*math.Pi*f)
		active = append(active, h)
	}

	var rng *rand.Rand
	if p.NoiseWeight > 0 {
		rng = rand.New(rand.NewSource(noiseSeed(p.NoiseSeed, freqHz)))
	}

	var tone *dsp.Biquad
	if p.ToneCutoffHz > 0 && p.ToneCutoffHz < nyquist {
		tone = dsp.NewLowpass(float32(p.ToneCutoffHz), float32(sr), 0.707)
	}

	for i := 0; i < n; i++ {
		t := float64(i) / sr

		var body float64
		for j, h := range active {
			body += h.Weight * math.Sin(omegas[j]*t) * decay(h.DecayRate, t)
		}
		if rng != nil {
			body += p.NoiseWeight * (rng.Float64()*2.0 - 1.0) * decay(p.NoiseDecayRate, t)
		}

		s := finite32(body * envelope(p, t) * intensity)
		if tone != nil {
			s = finite32(float64(tone.Process(s)))
		}
		out.Samples[i] = s
	}
	return out
}

// envelope is a linear attack followed by an exponential decay,
// held at the sustain floor once it reaches it.
func envelope(p *Profile, t float64) float64 {
	if p.AttackSeconds > 0 && t < p.AttackSeconds {
		return t / p.AttackSeconds
	}
	e := decay(p.DecayRate, t-p.AttackSeconds)
	if p.SustainFloor > 0 && e < p.SustainFloor {
		return p.SustainFloor
	}
	return e
}

func noiseSeed(base int64, freqHz float64) int64 {
	return base ^ int64(math.Float64bits(freqHz)>>1)
}
