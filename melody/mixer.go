package melody

import "math"

// Buffer is the output signal every note is mixed into.
// Its length is fixed at allocation.
type Buffer struct {
	Samples []float32
}

// NewBuffer allocates a silent buffer of n samples.
func NewBuffer(n int) *Buffer {
	if n < 0 {
		n = 0
	}
	return &Buffer{Samples: make([]float32, n)}
}

// Len returns the buffer length in samples.
func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Placement positions a waveform at an onset in the output buffer.
type Placement struct {
	Onset    int
	Waveform Waveform
}

// Add accumulates w*gain into the buffer starting at onset.
// Samples falling outside the buffer are dropped.
func (b *Buffer) Add(onset int, w Waveform, gain float32) {
	src := w.Samples
	if onset < 0 {
		if -onset >= len(src) {
			return
		}
		src = src[-onset:]
		onset = 0
	}
	if onset >= len(b.Samples) {
		return
	}
	dst := b.Samples[onset:]
	if len(src) > len(dst) {
		src = src[:len(dst)]
	}
	for k, s := range src {
		dst[k] += s * gain
	}
}

// Mix overlap-adds every placement into buf with a fixed per-note gain.
func Mix(buf *Buffer, notes []Placement, gain float64) {
	if buf == nil {
		return
	}
	g := float32(gain)
	for _, n := range notes {
		buf.Add(n.Onset, n.Waveform, g)
	}
}

// Peak returns the largest absolute finite sample value.
func Peak(buf *Buffer) float64 {
	if buf == nil {
		return 0
	}
	var peak float64
	for _, s := range buf.Samples {
		a := math.Abs(float64(s))
		if a > peak && !math.IsInf(a, 0) {
			peak = a
		}
	}
	return peak
}

// Normalize scales buf in place so its peak magnitude is 1.
// Non-finite samples are zeroed first. Silent buffers are returned unchanged.
func Normalize(buf *Buffer) *Buffer {
	if buf == nil {
		return nil
	}
	for i, s := range buf.Samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			buf.Samples[i] = 0
		}
	}
	peak := Peak(buf)
	if peak <= 0 {
		return buf
	}
	p := float32(peak)
	for i, s := range buf.Samples {
		buf.Samples[i] = s / p
	}
	return buf
}
