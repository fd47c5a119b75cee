package safeconv

import (
	"math"
)

// UnitToByte maps a [0,1] channel value to a display byte, rounding half away
// from zero. Out-of-range inputs are clamped rather than wrapped so overshoot
// from a model never aliases onto the wrong intensity; NaN maps to 0.
func UnitToByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// Int64ToInt converts int64 to int with clamping into the int range.
func Int64ToInt(v int64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	if v < math.MinInt {
		return math.MinInt
	}
	return int(v)
}

// Int64SliceToIntSlice converts tensor dimensions reported by an inference
// session into ints, clamping each element.
func Int64SliceToIntSlice(input []int64) []int {
	out := make([]int, len(input))
	for i, v := range input {
		out[i] = Int64ToInt(v)
	}
	return out
}

// IntSliceToInt64Slice widens tensor dimensions for an inference session.
func IntSliceToInt64Slice(input []int) []int64 {
	out := make([]int64, len(input))
	for i, v := range input {
		out[i] = int64(v)
	}
	return out
}
