package utils

import (
	"math"
	"math/rand"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Clamp returns n limited to the range [min, max].
func Clamp(n, min, max float64) float64 {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// ClampFinite maps NaN and infinities to the largest representable
// finite value with the appropriate sign. Optimizers downstream require
// every objective evaluation to be finite and comparable.
func ClampFinite(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(n, -1) {
		return -math.MaxFloat64
	}
	return n
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// SampleRandomFloatRange returns a number in [min, max) drawn from r.
func SampleRandomFloatRange(min, max float64, r *rand.Rand) float64 {
	return min + r.Float64()*(max-min)
}

// AllNaN reports whether every value is NaN.
func AllNaN(values ...float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// AnyNaN reports whether at least one value is NaN.
func AnyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
