package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	envelopeFrame = 256
	envelopeHop   = 128
	spectrumSize  = 4096
)

// Score weights of the metric components.
const (
	WeightEnvelope = 0.40
	WeightSpectral = 0.40
	WeightDecay    = 0.20
)

// Metrics compares a rendered note against a reference recording of the same note.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	EnvelopeNorm float64 `json:"envelope_norm"`
	SpectralNorm float64 `json:"spectral_norm"`
	DecayNorm    float64 `json:"decay_norm"`
	Dominant     string  `json:"dominant"`

	Score      float64 `json:"score"`      // 0 = identical, 1 = unrelated
	Similarity float64 `json:"similarity"` // exp(-4*score)
}

// Compare scores how closely candidate reproduces reference.
// Both signals are onset-aligned and RMS-normalized first.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1.0,
	}
	if sampleRate <= 0 {
		return m
	}

	ref := normalizeRMS(fromOnset(reference, 1e-4), 0.1)
	cand := normalizeRMS(fromOnset(candidate, 1e-4), 0.1)
	n := len(ref)
	if len(cand) < n {
		n = len(cand)
	}
	if n < 2*envelopeFrame {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n

	refEnv := rmsEnvelope(ref, envelopeFrame, envelopeHop)
	candEnv := rmsEnvelope(cand, envelopeFrame, envelopeHop)
	var sum float64
	for i := range refEnv {
		d := linToDB(refEnv[i]) - linToDB(candEnv[i])
		sum += d * d
	}
	m.EnvelopeRMSEDB = math.Sqrt(sum / float64(len(refEnv)))

	m.SpectralRMSEDB = spectralRMSEDB(ref, cand)

	hopS := float64(envelopeHop) / float64(sampleRate)
	m.RefDecayDBPerS = decaySlope(refEnv, hopS)
	m.CandDecayDBPerS = decaySlope(candEnv, hopS)
	if !math.IsNaN(m.RefDecayDBPerS) && !math.IsNaN(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / 30.0)
	m.SpectralNorm = clamp01(m.SpectralRMSEDB / 30.0)
	m.DecayNorm = clamp01(m.DecayDiffDBPerS / 40.0)
	m.Score = clamp01(WeightEnvelope*m.EnvelopeNorm + WeightSpectral*m.SpectralNorm + WeightDecay*m.DecayNorm)

	m.Dominant = "envelope"
	top := WeightEnvelope * m.EnvelopeNorm
	if c := WeightSpectral * m.SpectralNorm; c > top {
		m.Dominant, top = "spectral", c
	}
	if c := WeightDecay * m.DecayNorm; c > top {
		m.Dominant = "decay"
	}
	m.Similarity = math.Exp(-4.0 * m.Score)
	return m
}

// fromOnset drops everything before the first sample above threshold*peak.
func fromOnset(x []float64, threshold float64) []float64 {
	peak := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return nil
	}
	limit := threshold * peak
	for i, v := range x {
		if math.Abs(v) > limit {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	r := rms(x)
	out := make([]float64, len(x))
	if r <= 1e-12 {
		copy(out, x)
		return out
	}
	g := target / r
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if len(x) < frame {
		return nil
	}
	out := make([]float64, 0, 1+(len(x)-frame)/hop)
	for start := 0; start+frame <= len(x); start += hop {
		out = append(out, rms(x[start:start+frame]))
	}
	return out
}

// spectralRMSEDB compares Hann-windowed magnitude spectra of the note attacks.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := spectrumSize
	for n > len(a) {
		n /= 2
	}
	if n < 512 {
		return 0
	}
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return 0
	}
	win := window.Hann(n)
	aw := make([]float64, n)
	bw := make([]float64, n)
	for i, w := range win {
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}
	specA := make([]complex128, n/2+1)
	specB := make([]complex128, n/2+1)
	plan.Forward(specA, aw)
	plan.Forward(specB, bw)

	var sum float64
	bins := n / 2
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

// decaySlope fits a line (dB per second) to the envelope from its peak
// until it has fallen 60 dB, or NaN when too few points remain.
func decaySlope(env []float64, hopS float64) float64 {
	if len(env) < 8 {
		return math.NaN()
	}
	peakIdx := 0
	for i, v := range env {
		if v > env[peakIdx] {
			peakIdx = i
		}
	}
	floor := linToDB(env[peakIdx]) - 60.0
	end := len(env)
	for i := peakIdx + 1; i < len(env); i++ {
		if linToDB(env[i]) < floor {
			end = i
			break
		}
	}
	count := end - (peakIdx + 1)
	if count < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	for i := peakIdx + 1; i < end; i++ {
		x := float64(i-peakIdx-1) * hopS
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	cnt := float64(count)
	den := cnt*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (cnt*sxy - sx*sy) / den
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
