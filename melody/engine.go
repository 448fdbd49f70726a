package melody

import (
	"fmt"
	"runtime"
	"sync"
)

// notesPerWorker sets the synthesis batch size; a batch is fully
// synthesized before it is mixed, which bounds waveform memory.
const notesPerWorker = 32

// Effect processes the mixed signal in place before normalization.
type Effect interface {
	Process(samples []float32)
}

// Input is everything the analysis front end hands over for one run.
type Input struct {
	Frames       []AnalysisFrame
	HopLength    int
	SampleRate   int
	TotalSamples int
}

// Result is the normalized rendition and the notes that produced it.
type Result struct {
	Buffer     *Buffer
	Notes      []DetectedNote
	SampleRate int
}

// Engine renders analysis frames with a single instrument profile.
type Engine struct {
	profile  *Profile
	selector NoteSelector
	workers  int
	effects  []Effect
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the synthesis worker count (0 = GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithSelector replaces the default peak picking policy.
func WithSelector(s NoteSelector) Option {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

// WithEffect appends a post-mix effect.
func WithEffect(fx Effect) Option {
	return func(e *Engine) {
		if fx != nil {
			e.effects = append(e.effects, fx)
		}
	}
}

// NewEngine validates p and builds an engine around a private copy of it.
func NewEngine(p *Profile, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	prof := p.Clone()
	e := &Engine{
		profile:  prof,
		selector: NewPeakPicker(prof, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e, nil
}

// Profile returns a copy of the engine's profile.
func (e *Engine) Profile() *Profile {
	return e.profile.Clone()
}

// Render runs select, synthesize+mix, effects and normalize for one input.
func (e *Engine) Render(in Input) (*Result, error) {
	if in.HopLength < 1 || in.SampleRate < 1 || in.TotalSamples < 0 {
		return nil, fmt.Errorf("%w: hop=%d sample_rate=%d total=%d", ErrInvalidInput, in.HopLength, in.SampleRate, in.TotalSamples)
	}
	if len(in.Frames) == 0 {
		return &Result{SampleRate: in.SampleRate, Buffer: NewBuffer(0)}, nil
	}
	notes, err := e.SelectNotes(in.Frames, in.HopLength)
	if err != nil {
		return nil, err
	}
	return e.RenderNotes(notes, in.TotalSamples, in.SampleRate)
}

// SelectNotes runs only the selection stage over frames.
func (e *Engine) SelectNotes(frames []AnalysisFrame, hopLength int) ([]DetectedNote, error) {
	if hopLength < 1 {
		return nil, fmt.Errorf("%w: hop=%d", ErrInvalidInput, hopLength)
	}
	return e.selector.Select(frames, hopLength), nil
}

// RenderNotes synthesizes and mixes already selected notes into a buffer
// of totalSamples, then applies effects and normalizes.
func (e *Engine) RenderNotes(notes []DetectedNote, totalSamples, sampleRate int) (*Result, error) {
	if sampleRate < 1 || totalSamples < 0 {
		return nil, fmt.Errorf("%w: sample_rate=%d total=%d", ErrInvalidInput, sampleRate, totalSamples)
	}
	buf := NewBuffer(totalSamples)
	e.synthesizeAndMix(buf, notes, sampleRate)
	for _, fx := range e.effects {
		fx.Process(buf.Samples)
	}
	return &Result{
		Buffer:     Normalize(buf),
		Notes:      notes,
		SampleRate: sampleRate,
	}, nil
}

func (e *Engine) synthesizeAndMix(buf *Buffer, notes []DetectedNote, sampleRate int) {
	if len(notes) == 0 {
		return
	}
	p := e.profile
	workers := e.workers
	if workers > len(notes) {
		workers = len(notes)
	}
	batch := make([]Placement, maxInt(1, workers*notesPerWorker))

	for start := 0; start < len(notes); start += len(batch) {
		end := start + len(batch)
		if end > len(notes) {
			end = len(notes)
		}
		pending := batch[:end-start]

		if workers == 1 {
			for i := range pending {
				n := notes[start+i]
				pending[i] = Placement{Onset: n.Onset, Waveform: Synthesize(n.FrequencyHz, p.NoteDurationSeconds, n.Intensity, p, sampleRate)}
			}
		} else {
			jobs := make(chan int)
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range jobs {
						n := notes[start+i]
						pending[i] = Placement{Onset: n.Onset, Waveform: Synthesize(n.FrequencyHz, p.NoteDurationSeconds, n.Intensity, p, sampleRate)}
					}
				}()
			}
			for i := range pending {
				jobs <- i
			}
			close(jobs)
			wg.Wait()
		}

		// Mixing order is fixed by note order, independent of worker scheduling.
		Mix(buf, pending, p.MixGain)
		for i := range pending {
			pending[i] = Placement{}
		}
	}
}
