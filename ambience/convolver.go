package ambience

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-kalimba/internal/audiofile"
	"github.com/cwbudde/algo-kalimba/melody"
)

const partSize = 256

// linearConvolver computes the full linear convolution of input with a
// fixed kernel.
type linearConvolver interface {
	ProcessTo(output, input []float64) error
}

// Convolver blends a mono mix with its convolution by a body IR. The
// output keeps the input length; the reverberant tail past the end is
// dropped.
type Convolver struct {
	ir  []float32
	mix float64
	ola linearConvolver
	in  []float64
	out []float64
}

var _ melody.Effect = (*Convolver)(nil)

// NewConvolver builds a convolver for ir with wet level mix in [0,1].
func NewConvolver(ir []float32, mix float64) (*Convolver, error) {
	if len(ir) == 0 {
		return nil, fmt.Errorf("empty impulse response")
	}
	if mix < 0 || mix > 1 {
		return nil, fmt.Errorf("mix must be in [0,1], got %g", mix)
	}
	ola, err := dspconv.NewOverlapAdd(audiofile.ToFloat64(ir), partSize)
	if err != nil {
		return nil, fmt.Errorf("overlap-add: %w", err)
	}
	return &Convolver{
		ir:  append([]float32(nil), ir...),
		mix: mix,
		ola: ola,
	}, nil
}

// LoadIR reads a mono IR from a WAV or FLAC file at sampleRate.
func LoadIR(path string, sampleRate int) ([]float32, error) {
	data, srcRate, err := audiofile.ReadMono(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty impulse response: %s", path)
	}
	data, err = audiofile.Resample(data, srcRate, sampleRate)
	if err != nil {
		return nil, err
	}
	return audiofile.ToFloat32(data), nil
}

// IRLen returns the impulse response length in samples.
func (c *Convolver) IRLen() int {
	return len(c.ir)
}

// Process implements melody.Effect. Each call is an independent render.
// If the convolution fails the samples are left dry.
func (c *Convolver) Process(samples []float32) {
	if c.mix == 0 || len(samples) == 0 {
		return
	}
	n := len(samples)
	full := n + len(c.ir) - 1
	if cap(c.in) < n {
		c.in = make([]float64, n)
	}
	if cap(c.out) < full {
		c.out = make([]float64, full)
	}
	in, out := c.in[:n], c.out[:full]
	for i, v := range samples {
		in[i] = float64(v)
	}
	if err := c.ola.ProcessTo(out, in); err != nil {
		return
	}
	dry := 1 - c.mix
	for i := range samples {
		samples[i] = float32(dry*in[i] + c.mix*out[i])
	}
}
