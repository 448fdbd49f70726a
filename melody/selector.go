package melody

import "math"

// AnalysisFrame is one hop of spectral analysis output.
type AnalysisFrame struct {
	Index       int
	Frequencies []float64 // Hz, one per bin
	Magnitudes  []float64
}

// DetectedNote is a note onset picked from the analysis frames.
type DetectedNote struct {
	Onset       int // samples
	FrequencyHz float64
	Intensity   float64 // [0,1], relative to the loudest bin of the run
}

// NoteSelector turns a run of analysis frames into note onsets.
type NoteSelector interface {
	Select(frames []AnalysisFrame, hopLength int) []DetectedNote
}

// PeakPicker ranks each evaluated frame's bins by magnitude and keeps the
// loudest ones that clear the sensitivity threshold and the frequency range.
type PeakPicker struct {
	Polyphony   int
	Sensitivity float64
	MinHz       float64
	MaxHz       float64
	Stride      int
}

var _ NoteSelector = (*PeakPicker)(nil)

// NewPeakPicker builds the selection policy described by profile p.
// A stride < 1 uses the profile's own frame stride.
func NewPeakPicker(p *Profile, stride int) *PeakPicker {
	if stride < 1 {
		stride = p.Stride()
	}
	return &PeakPicker{
		Polyphony:   p.Polyphony,
		Sensitivity: p.Sensitivity,
		MinHz:       p.MinFrequencyHz,
		MaxHz:       p.MaxFrequencyHz,
		Stride:      stride,
	}
}

// Select validates p and runs the default peak picking policy.
func Select(frames []AnalysisFrame, p *Profile, stride int, hopLength int) ([]DetectedNote, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if hopLength < 1 {
		return nil, ErrInvalidInput
	}
	return NewPeakPicker(p, stride).Select(frames, hopLength), nil
}

// SeriesPeak returns the largest finite magnitude across the well-formed
// frames of a run. Frames that Select would skip do not contribute.
func SeriesPeak(frames []AnalysisFrame) float64 {
	peak := 0.0
	lastIndex := math.MinInt
	for i := range frames {
		f := &frames[i]
		if !wellFormed(f, lastIndex) {
			continue
		}
		lastIndex = f.Index
		for _, m := range f.Magnitudes {
			if isFinite(m) && m > peak {
				peak = m
			}
		}
	}
	return peak
}

// Select implements NoteSelector.
func (s *PeakPicker) Select(frames []AnalysisFrame, hopLength int) []DetectedNote {
	if len(frames) == 0 || s.Polyphony < 1 {
		return nil
	}
	seriesPeak := SeriesPeak(frames)
	if seriesPeak <= 0 {
		return nil
	}
	stride := s.Stride
	if stride < 1 {
		stride = 1
	}
	threshold := seriesPeak * s.Sensitivity

	notes := make([]DetectedNote, 0, len(frames)/stride+1)
	top := make([]int, 0, s.Polyphony)
	lastIndex := math.MinInt
	for pos := 0; pos < len(frames); pos++ {
		f := &frames[pos]
		if !wellFormed(f, lastIndex) {
			continue
		}
		lastIndex = f.Index
		if pos%stride != 0 {
			continue
		}

		top = topBins(top[:0], f.Magnitudes, s.Polyphony)
		for _, bin := range top {
			mag := f.Magnitudes[bin]
			freq := f.Frequencies[bin]
			if !(mag > threshold) {
				continue
			}
			if !isFinite(freq) || freq <= 0 || freq < s.MinHz || freq > s.MaxHz {
				continue
			}
			notes = append(notes, DetectedNote{
				Onset:       f.Index * hopLength,
				FrequencyHz: freq,
				Intensity:   clamp01(mag / seriesPeak),
			})
		}
	}
	return notes
}

// wellFormed reports whether f has matching bin slices and follows a
// frame with index lastIndex.
func wellFormed(f *AnalysisFrame, lastIndex int) bool {
	return len(f.Frequencies) == len(f.Magnitudes) && f.Index > lastIndex
}

// topBins appends the indices of the k largest finite magnitudes to dst,
// loudest first. Equal magnitudes keep ascending bin order.
func topBins(dst []int, mags []float64, k int) []int {
	for i, m := range mags {
		if !isFinite(m) {
			continue
		}
		if len(dst) == k && m <= mags[dst[k-1]] {
			continue
		}
		j := len(dst)
		if j < k {
			dst = append(dst, i)
		} else {
			j = k - 1
		}
		for j > 0 && mags[dst[j-1]] < m {
			dst[j] = dst[j-1]
			j--
		}
		dst[j] = i
	}
	return dst
}
