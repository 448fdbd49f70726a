package main

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-kalimba/internal/cliutil"
	"github.com/cwbudde/algo-kalimba/melody"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

// initKnobs derives the search space from base. Partial 0 (the
// fundamental) keeps its weight as the level reference.
func initKnobs(base *melody.Profile) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 16)
	vals := make([]float64, 0, 16)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, val)
	}

	addKnob(knobDef{Name: "attack_s", Min: 0.0005, Max: 0.05}, base.AttackSeconds)
	addKnob(knobDef{Name: "decay_rate", Min: 0.3, Max: 20.0}, base.DecayRate)
	addKnob(knobDef{Name: "sustain_floor", Min: 0.0, Max: 0.3}, base.SustainFloor)
	for i, h := range base.Harmonics {
		if i == 0 {
			addKnob(knobDef{Name: "harmonics.0.decay_rate", Min: 0.0, Max: 10.0}, h.DecayRate)
			continue
		}
		addKnob(knobDef{Name: fmt.Sprintf("harmonics.%d.ratio", i), Min: h.Ratio * 0.9, Max: h.Ratio * 1.1}, h.Ratio)
		addKnob(knobDef{Name: fmt.Sprintf("harmonics.%d.weight", i), Min: 0.0, Max: 1.5}, h.Weight)
		addKnob(knobDef{Name: fmt.Sprintf("harmonics.%d.decay_rate", i), Min: 0.0, Max: 10.0}, h.DecayRate)
	}
	addKnob(knobDef{Name: "noise_weight", Min: 0.0, Max: 0.3}, base.NoiseWeight)
	addKnob(knobDef{Name: "noise_decay_rate", Min: 10.0, Max: 200.0}, base.NoiseDecayRate)
	if base.ToneCutoffHz > 0 {
		addKnob(knobDef{Name: "tone_cutoff_hz", Min: 1500.0, Max: 16000.0}, base.ToneCutoffHz)
	}

	for i := range vals {
		vals[i] = cliutil.Clamp(vals[i], defs[i].Min, defs[i].Max)
		if defs[i].IsInt {
			vals[i] = math.Round(vals[i])
		}
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns a copy of base with the knob values written in.
func applyCandidate(base *melody.Profile, defs []knobDef, cand candidate) *melody.Profile {
	p := base.Clone()
	for i, d := range defs {
		v := cand.Vals[i]
		switch d.Name {
		case "attack_s":
			p.AttackSeconds = v
		case "decay_rate":
			p.DecayRate = v
		case "sustain_floor":
			p.SustainFloor = v
		case "noise_weight":
			p.NoiseWeight = v
		case "noise_decay_rate":
			p.NoiseDecayRate = v
		case "tone_cutoff_hz":
			p.ToneCutoffHz = v
		default:
			var idx int
			var field string
			if _, err := fmt.Sscanf(d.Name, "harmonics.%d.%s", &idx, &field); err != nil || idx >= len(p.Harmonics) {
				continue
			}
			switch field {
			case "ratio":
				p.Harmonics[idx].Ratio = v
			case "weight":
				p.Harmonics[idx].Weight = v
			case "decay_rate":
				p.Harmonics[idx].DecayRate = v
			}
		}
	}
	return p
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = cliutil.Clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func cloneCandidate(c candidate) candidate {
	return candidate{Vals: append([]float64(nil), c.Vals...)}
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	m := make(map[string]float64, len(defs))
	for i, d := range defs {
		m[d.Name] = c.Vals[i]
	}
	return m
}
