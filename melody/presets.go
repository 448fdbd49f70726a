package melody

import (
	"fmt"
	"strings"
)

// Preset enumerates the built-in instrument voices.
type Preset int

const (
	Kalimba Preset = iota
	KalimbaTextured
	SoftPiano
	Bell
)

var presetNames = map[Preset]string{
	Kalimba:         "kalimba",
	KalimbaTextured: "kalimba-textured",
	SoftPiano:       "soft-piano",
	Bell:            "bell",
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("preset(%d)", int(p))
}

// PresetNames lists the built-in presets in declaration order.
func PresetNames() []string {
	return []string{
		Kalimba.String(),
		KalimbaTextured.String(),
		SoftPiano.String(),
		Bell.String(),
	}
}

// ParsePreset resolves a preset by name (case-insensitive).
func ParsePreset(name string) (Preset, error) {
	v := strings.ToLower(strings.TrimSpace(name))
	for p, n := range presetNames {
		if n == v {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q (valid: %s)", name, strings.Join(PresetNames(), ", "))
}

// NewProfile returns a fresh profile for the given preset.
// Unknown values fall back to the kalimba voice.
func NewProfile(p Preset) *Profile {
	switch p {
	case KalimbaTextured:
		prof := kalimbaProfile()
		prof.Name = KalimbaTextured.String()
		prof.NoiseWeight = 0.08
		prof.NoiseDecayRate = 90.0
		prof.NoiseSeed = 1
		prof.ToneCutoffHz = 7000.0
		return prof
	case SoftPiano:
		return &Profile{
			Name: SoftPiano.String(),
			Harmonics: []Harmonic{
				{Ratio: 1.0, Weight: 1.0, DecayRate: 0.8},
				{Ratio: 2.0, Weight: 0.4, DecayRate: 2.2},
				{Ratio: 3.01, Weight: 0.15, DecayRate: 3.8},
			},
			AttackSeconds:       0.03,
			DecayRate:           2.0,
			SustainFloor:        0.04,
			MinFrequencyHz:      55.0,
			MaxFrequencyHz:      4200.0,
			Polyphony:           3,
			Sensitivity:         0.2,
			FrameStride:         6,
			NoteDurationSeconds: 0.8,
			MixGain:             0.25,
			ToneCutoffHz:        6000.0,
		}
	case Bell:
		return &Profile{
			Name: Bell.String(),
			Harmonics: []Harmonic{
				{Ratio: 1.0, Weight: 1.0, DecayRate: 0.3},
				{Ratio: 2.0, Weight: 0.5, DecayRate: 0.9},
			},
			AttackSeconds:       0.001,
			DecayRate:           1.2,
			MinFrequencyHz:      200.0,
			MaxFrequencyHz:      3000.0,
			Polyphony:           1,
			Sensitivity:         0.4,
			FrameStride:         8,
			NoteDurationSeconds: 1.5,
			MixGain:             0.3,
		}
	default:
		return kalimbaProfile()
	}
}

func kalimbaProfile() *Profile {
	return &Profile{
		Name: Kalimba.String(),
		Harmonics: []Harmonic{
			{Ratio: 1.0, Weight: 1.0},
			{Ratio: 2.8, Weight: 0.3},
		},
		AttackSeconds:       0.002,
		DecayRate:           7.0,
		MinFrequencyHz:      100.0,
		MaxFrequencyHz:      2000.0,
		Polyphony:           1,
		Sensitivity:         0.05,
		FrameStride:         4,
		NoteDurationSeconds: 0.4,
		MixGain:             0.35,
	}
}
