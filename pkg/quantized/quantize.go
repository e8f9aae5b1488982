package quantized

import "math"

// Dequantize maps a quantized code in [0, MaxQuantized] linearly onto
// [min, max].
func Dequantize(code uint16, min, max float64) float64 {
	return min + float64(code)/MaxQuantized*(max-min)
}

// Quantize maps value from [min, max] onto the nearest code in
// [0, MaxQuantized]. Values outside the range are clamped.
func Quantize(value, min, max float64) uint16 {
	if max <= min {
		return 0
	}
	t := (value - min) / (max - min)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return MaxQuantized
	}
	return uint16(math.Round(t * MaxQuantized))
}

// IndexWidth returns the minimal integer width in bytes (2 or 4) able to
// index vertexCount vertices.
func IndexWidth(vertexCount int) int {
	if vertexCount > 65536 {
		return 4
	}
	return 2
}
