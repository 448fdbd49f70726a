package audiofile

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestWriteMonoWAVRoundTrip(t *testing.T) {
	for _, bits := range []int{16, 24} {
		data := make([]float32, 4410)
		for i := range data {
			data[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/44100))
		}
		path := filepath.Join(t.TempDir(), "nested", "out.wav")
		if err := WriteMonoWAV(path, data, 44100, bits); err != nil {
			t.Fatalf("WriteMonoWAV(%d bit): %v", bits, err)
		}
		got, sr, err := ReadMono(path)
		if err != nil {
			t.Fatalf("ReadMono: %v", err)
		}
		if sr != 44100 {
			t.Fatalf("sample rate = %d", sr)
		}
		if len(got) != len(data) {
			t.Fatalf("%d bit: read %d samples, wrote %d", bits, len(got), len(data))
		}
		for i := range data {
			if math.Abs(got[i]-float64(data[i])) > 1e-3 {
				t.Fatalf("%d bit: sample %d = %f, want %f", bits, i, got[i], data[i])
			}
		}
	}
}

func TestWriteMonoWAVRejectsBadParams(t *testing.T) {
	dir := t.TempDir()
	if err := WriteMonoWAV(filepath.Join(dir, "a.wav"), []float32{0}, 44100, 12); err == nil {
		t.Fatalf("expected error for 12-bit output")
	}
	if err := WriteMonoWAV(filepath.Join(dir, "b.wav"), []float32{0}, 0, 16); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestReadMonoRejectsUnknownExtension(t *testing.T) {
	if _, _, err := ReadMono("song.mp3"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestResample(t *testing.T) {
	in := make([]float64, 48000)
	same, err := Resample(in, 48000, 48000)
	if err != nil || len(same) != len(in) {
		t.Fatalf("identity resample: len=%d err=%v", len(same), err)
	}
	out, err := Resample(in, 48000, 24000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if math.Abs(float64(len(out))-24000) > 64 {
		t.Fatalf("expected about 24000 samples, got %d", len(out))
	}
	if _, err := Resample(in, 0, 44100); err == nil {
		t.Fatalf("expected error for zero source rate")
	}
}

func TestConversions(t *testing.T) {
	x := []float64{0.25, -0.5}
	back := ToFloat64(ToFloat32(x))
	if back[0] != 0.25 || back[1] != -0.5 {
		t.Fatalf("conversion mismatch: %v", back)
	}
}
