package database

import "math"

// EuclideanDistance computes the L2 distance between two vectors.
// Returns +Inf for mismatched or empty inputs so invalid pairs never win
// a minimum-distance comparison.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DistanceToConfidence converts a distance to a confidence score in [0, 1].
// Confidence is monotonically decreasing in distance: 0 distance maps to 1.0,
// anything at or beyond maxDistance maps to 0.
func DistanceToConfidence(distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return 0
	}
	c := 1 - distance/maxDistance
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
