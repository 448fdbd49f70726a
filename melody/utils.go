package melody

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// Exponent magnitude past which a decay is treated as fully settled.
const maxDecayExponent = 40.0

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// finite32 narrows x to float32, mapping values that do not survive
// the conversion as finite numbers to silence.
func finite32(x float64) float32 {
	if !isFinite(x) || math.Abs(x) > math.MaxFloat32 {
		return 0
	}
	return float32(x)
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

// decay evaluates exp(-rate*t) for rate, t >= 0.
func decay(rate float64, t float64) float64 {
	x := rate * t
	if x <= 0 {
		return 1
	}
	if x > maxDecayExponent {
		return 0
	}
	return float64(approx.FastExp(float32(-x)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
