package recognize

import "math"

// L2Distance computes the Euclidean distance between two embeddings.
// Returns +Inf for mismatched or empty vectors so that an invalid pair can
// never win a nearest-neighbor comparison.
func L2Distance(a, b []float32) float64 {
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
