package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-kalimba/melody"
)

// File is the JSON schema for instrument presets. Unset fields keep the
// value of the base preset.
type File struct {
	Base string `json:"base"`
	Name string `json:"name"`

	Harmonics []HarmonicSetting `json:"harmonics"`

	AttackSeconds *float64 `json:"attack_s"`
	DecayRate     *float64 `json:"decay_rate"`
	SustainFloor  *float64 `json:"sustain_floor"`

	NoiseWeight    *float64 `json:"noise_weight"`
	NoiseDecayRate *float64 `json:"noise_decay_rate"`
	NoiseSeed      *int64   `json:"noise_seed"`

	MinFrequencyHz *float64 `json:"min_hz"`
	MaxFrequencyHz *float64 `json:"max_hz"`
	Polyphony      *int     `json:"polyphony"`
	Sensitivity    *float64 `json:"sensitivity"`
	FrameStride    *int     `json:"frame_stride"`

	NoteDurationSeconds *float64 `json:"note_duration_s"`
	MixGain             *float64 `json:"mix_gain"`
	ToneCutoffHz        *float64 `json:"tone_cutoff_hz"`

	IRWavPath   string   `json:"ir_wav_path"`
	AmbienceMix *float64 `json:"ambience_mix"`
}

// HarmonicSetting is one partial entry. A non-empty list replaces the
// base preset's partials entirely.
type HarmonicSetting struct {
	Ratio     float64 `json:"ratio"`
	Weight    float64 `json:"weight"`
	DecayRate float64 `json:"decay_rate,omitempty"`
}

// Settings is a resolved preset file.
type Settings struct {
	Profile     *melody.Profile
	IRWavPath   string
	AmbienceMix float64
}

// LoadJSON loads a preset JSON file and applies it on top of its base preset
// (kalimba when unset).
func LoadJSON(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := melody.Kalimba
	if strings.TrimSpace(f.Base) != "" {
		base, err = melody.ParsePreset(f.Base)
		if err != nil {
			return nil, err
		}
	}
	s := &Settings{Profile: melody.NewProfile(base)}
	if err := ApplyFile(s, &f); err != nil {
		return nil, err
	}

	if s.IRWavPath != "" && !filepath.IsAbs(s.IRWavPath) {
		s.IRWavPath = filepath.Clean(filepath.Join(filepath.Dir(path), s.IRWavPath))
	}
	return s, nil
}

// ApplyFile applies a parsed preset file onto existing settings and
// validates the resulting profile.
func ApplyFile(dst *Settings, f *File) error {
	if dst == nil || dst.Profile == nil {
		return fmt.Errorf("nil destination profile")
	}
	if f == nil {
		return nil
	}
	p := dst.Profile

	if name := strings.TrimSpace(f.Name); name != "" {
		p.Name = name
	}
	if len(f.Harmonics) > 0 {
		p.Harmonics = make([]melody.Harmonic, len(f.Harmonics))
		for i, h := range f.Harmonics {
			p.Harmonics[i] = melody.Harmonic{Ratio: h.Ratio, Weight: h.Weight, DecayRate: h.DecayRate}
		}
	}

	setFloat(&p.AttackSeconds, f.AttackSeconds)
	setFloat(&p.DecayRate, f.DecayRate)
	setFloat(&p.SustainFloor, f.SustainFloor)
	setFloat(&p.NoiseWeight, f.NoiseWeight)
	setFloat(&p.NoiseDecayRate, f.NoiseDecayRate)
	if f.NoiseSeed != nil {
		p.NoiseSeed = *f.NoiseSeed
	}
	setFloat(&p.MinFrequencyHz, f.MinFrequencyHz)
	setFloat(&p.MaxFrequencyHz, f.MaxFrequencyHz)
	if f.Polyphony != nil {
		p.Polyphony = *f.Polyphony
	}
	setFloat(&p.Sensitivity, f.Sensitivity)
	if f.FrameStride != nil {
		p.FrameStride = *f.FrameStride
	}
	setFloat(&p.NoteDurationSeconds, f.NoteDurationSeconds)
	setFloat(&p.MixGain, f.MixGain)
	setFloat(&p.ToneCutoffHz, f.ToneCutoffHz)

	if f.IRWavPath != "" {
		dst.IRWavPath = strings.TrimSpace(f.IRWavPath)
	}
	if f.AmbienceMix != nil {
		if *f.AmbienceMix < 0 || *f.AmbienceMix > 1 {
			return fmt.Errorf("ambience_mix must be in [0,1]")
		}
		dst.AmbienceMix = *f.AmbienceMix
	}
	return p.Validate()
}

// WriteJSON writes s as a complete preset file, listing every profile field.
func WriteJSON(path string, s *Settings) error {
	if s == nil || s.Profile == nil {
		return fmt.Errorf("nil profile")
	}
	f := FromProfile(s.Profile)
	f.IRWavPath = s.IRWavPath
	if s.AmbienceMix > 0 {
		mix := s.AmbienceMix
		f.AmbienceMix = &mix
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// FromProfile converts p into a fully populated preset file.
func FromProfile(p *melody.Profile) *File {
	f := &File{
		Name:                p.Name,
		AttackSeconds:       ptr(p.AttackSeconds),
		DecayRate:           ptr(p.DecayRate),
		SustainFloor:        ptr(p.SustainFloor),
		NoiseWeight:         ptr(p.NoiseWeight),
		NoiseDecayRate:      ptr(p.NoiseDecayRate),
		NoiseSeed:           ptr(p.NoiseSeed),
		MinFrequencyHz:      ptr(p.MinFrequencyHz),
		MaxFrequencyHz:      ptr(p.MaxFrequencyHz),
		Polyphony:           ptr(p.Polyphony),
		Sensitivity:         ptr(p.Sensitivity),
		FrameStride:         ptr(p.FrameStride),
		NoteDurationSeconds: ptr(p.NoteDurationSeconds),
		MixGain:             ptr(p.MixGain),
		ToneCutoffHz:        ptr(p.ToneCutoffHz),
	}
	for _, h := range p.Harmonics {
		f.Harmonics = append(f.Harmonics, HarmonicSetting{Ratio: h.Ratio, Weight: h.Weight, DecayRate: h.DecayRate})
	}
	return f
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func ptr[T any](v T) *T {
	return &v
}
