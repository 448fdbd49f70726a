package melody

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProfile is returned for profiles that cannot drive a render.
var ErrInvalidProfile = errors.New("invalid instrument profile")

// ErrInvalidInput is returned for run inputs with impossible timing parameters.
var ErrInvalidInput = errors.New("invalid render input")

// MaxPartialWeight bounds harmonic and noise weights.
const MaxPartialWeight = 100.0

// ProfileError names the profile field that failed validation.
type ProfileError struct {
	Field  string
	Reason string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidProfile, e.Field, e.Reason)
}

func (e *ProfileError) Unwrap() error {
	return ErrInvalidProfile
}

// Harmonic is one additive partial of a voice, relative to the played frequency.
type Harmonic struct {
	Ratio     float64
	Weight    float64
	DecayRate float64 // 1/s, applied on top of the primary envelope
}

// Profile parameterizes a voice's timbre, envelope and note selection.
type Profile struct {
	Name string

	Harmonics []Harmonic

	AttackSeconds float64
	DecayRate     float64 // primary envelope decay, 1/s
	SustainFloor  float64

	NoiseWeight    float64
	NoiseDecayRate float64
	NoiseSeed      int64

	MinFrequencyHz float64
	MaxFrequencyHz float64
	Polyphony      int
	Sensitivity    float64
	FrameStride    int

	NoteDurationSeconds float64
	MixGain             float64

	// ToneCutoffHz enables a per-note lowpass when > 0.
	ToneCutoffHz float64
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Harmonics = append([]Harmonic(nil), p.Harmonics...)
	return &c
}

// Validate reports the first field that makes p unusable.
func (p *Profile) Validate() error {
	if p == nil {
		return &ProfileError{Field: "profile", Reason: "is nil"}
	}
	if p.Polyphony < 1 {
		return &ProfileError{Field: "polyphony", Reason: fmt.Sprintf("must be >= 1, got %d", p.Polyphony)}
	}
	if !isFinite(p.MinFrequencyHz) || !isFinite(p.MaxFrequencyHz) || p.MinFrequencyHz <= 0 {
		return &ProfileError{Field: "frequency range", Reason: "bounds must be finite and > 0"}
	}
	if p.MinFrequencyHz >= p.MaxFrequencyHz {
		return &ProfileError{
			Field:  "frequency range",
			Reason: fmt.Sprintf("min %.2f Hz must be below max %.2f Hz", p.MinFrequencyHz, p.MaxFrequencyHz),
		}
	}
	if !(p.Sensitivity > 0 && p.Sensitivity <= 1) {
		return &ProfileError{Field: "sensitivity", Reason: "must be in (0,1]"}
	}
	if !(p.NoteDurationSeconds > 0) || !isFinite(p.NoteDurationSeconds) {
		return &ProfileError{Field: "note duration", Reason: "must be > 0"}
	}
	if !(p.MixGain > 0) || !isFinite(p.MixGain) {
		return &ProfileError{Field: "mix gain", Reason: "must be > 0"}
	}
	if p.FrameStride < 0 {
		return &ProfileError{Field: "frame stride", Reason: "must be >= 0"}
	}
	if p.AttackSeconds < 0 || p.DecayRate < 0 || p.NoiseWeight < 0 || p.NoiseDecayRate < 0 || p.ToneCutoffHz < 0 {
		return &ProfileError{Field: "envelope", Reason: "attack, decay, noise and tone values must be >= 0"}
	}
	if !isFinite(p.NoiseWeight) || p.NoiseWeight > MaxPartialWeight {
		return &ProfileError{Field: "noise weight", Reason: fmt.Sprintf("must be finite and <= %g", MaxPartialWeight)}
	}
	if !(p.SustainFloor >= 0 && p.SustainFloor < 1) {
		return &ProfileError{Field: "sustain floor", Reason: "must be in [0,1)"}
	}
	for i, h := range p.Harmonics {
		if !isFinite(h.Ratio) || h.Ratio <= 0 {
			return &ProfileError{Field: fmt.Sprintf("harmonics[%d].ratio", i), Reason: "must be finite and > 0"}
		}
		if !isFinite(h.Weight) || !isFinite(h.DecayRate) || h.DecayRate < 0 {
			return &ProfileError{Field: fmt.Sprintf("harmonics[%d]", i), Reason: "weight must be finite and decay >= 0"}
		}
		if math.Abs(h.Weight) > MaxPartialWeight {
			return &ProfileError{Field: fmt.Sprintf("harmonics[%d].weight", i), Reason: fmt.Sprintf("must be within ±%g", MaxPartialWeight)}
		}
	}
	return nil
}

// Stride returns the frame stride, treating unset values as 1.
func (p *Profile) Stride() int {
	if p == nil || p.FrameStride < 1 {
		return 1
	}
	return p.FrameStride
}

// partials returns the harmonic set with the fundamental guaranteed present.
func (p *Profile) partials() []Harmonic {
	for _, h := range p.Harmonics {
		if h.Ratio == 1.0 {
			return p.Harmonics
		}
	}
	out := make([]Harmonic, 0, len(p.Harmonics)+1)
	out = append(out, Harmonic{Ratio: 1.0, Weight: 1.0})
	return append(out, p.Harmonics...)
}
