package vector

import "math"

// CosineSimilarity returns the similarity of two unit-normalized vectors,
// clamped to [0,1] where 1.0 means identical vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return math.Max(0, math.Min(1, dot))
}
