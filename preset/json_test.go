package preset

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cwbudde/algo-kalimba/melody"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONOverlaysBasePreset(t *testing.T) {
	path := writePreset(t, `{
  "base": "bell",
  "name": "glass bell",
  "decay_rate": 0.9,
  "polyphony": 2,
  "harmonics": [
    {"ratio": 1.0, "weight": 1.0},
    {"ratio": 2.76, "weight": 0.4, "decay_rate": 1.5}
  ],
  "ir_wav_path": "body.wav",
  "ambience_mix": 0.25
}`)

	s, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	p := s.Profile
	bell := melody.NewProfile(melody.Bell)
	if p.Name != "glass bell" || p.DecayRate != 0.9 || p.Polyphony != 2 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.NoteDurationSeconds != bell.NoteDurationSeconds || p.Sensitivity != bell.Sensitivity {
		t.Fatalf("unset fields should keep bell values: %+v", p)
	}
	wantH := []melody.Harmonic{{Ratio: 1, Weight: 1}, {Ratio: 2.76, Weight: 0.4, DecayRate: 1.5}}
	if !reflect.DeepEqual(p.Harmonics, wantH) {
		t.Fatalf("harmonics = %+v, want %+v", p.Harmonics, wantH)
	}
	if want := filepath.Join(filepath.Dir(path), "body.wav"); s.IRWavPath != want {
		t.Fatalf("ir path mismatch: got=%q want=%q", s.IRWavPath, want)
	}
	if s.AmbienceMix != 0.25 {
		t.Fatalf("ambience mix = %f", s.AmbienceMix)
	}
}

func TestLoadJSONDefaultsToKalimba(t *testing.T) {
	s, err := LoadJSON(writePreset(t, `{"mix_gain": 0.5}`))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	want := melody.NewProfile(melody.Kalimba)
	want.MixGain = 0.5
	if !reflect.DeepEqual(s.Profile, want) {
		t.Fatalf("got %+v, want %+v", s.Profile, want)
	}
}

func TestLoadJSONRejectsUnknownBase(t *testing.T) {
	if _, err := LoadJSON(writePreset(t, `{"base": "theremin"}`)); err == nil {
		t.Fatalf("expected error for unknown base preset")
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	cases := []string{
		`{"polyphony": 0}`,
		`{"sensitivity": 1.5}`,
		`{"min_hz": 3000}`,
		`{"harmonics": [{"ratio": -1, "weight": 1}]}`,
	}
	for _, c := range cases {
		_, err := LoadJSON(writePreset(t, c))
		if !errors.Is(err, melody.ErrInvalidProfile) {
			t.Fatalf("%s: expected ErrInvalidProfile, got %v", c, err)
		}
	}
	if _, err := LoadJSON(writePreset(t, `{"ambience_mix": 2}`)); err == nil {
		t.Fatalf("expected error for out-of-range ambience mix")
	}
	if _, err := LoadJSON(writePreset(t, `{"polyphony": "three"}`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	p := melody.NewProfile(melody.SoftPiano)
	p.Name = "fitted"
	p.DecayRate = 2.75
	in := &Settings{Profile: p, AmbienceMix: 0.1}

	path := filepath.Join(t.TempDir(), "out", "fitted.json")
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if !reflect.DeepEqual(out.Profile, p) {
		t.Fatalf("profile changed in round trip:\n got %+v\nwant %+v", out.Profile, p)
	}
	if out.AmbienceMix != 0.1 {
		t.Fatalf("ambience mix = %f", out.AmbienceMix)
	}
}
