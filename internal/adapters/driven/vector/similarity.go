// Package vector provides shared helpers for the vector store adapters.
package vector

import "math"

// Cosine returns the cosine similarity of two vectors normalised to
// [0,1], where 1 is most similar. Mismatched lengths or zero vectors
// score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return Clamp01(sim)
}

// Clamp01 clamps a similarity score into [0,1]. Backends can report
// slightly negative cosine scores or values a hair above 1 due to
// floating-point error.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
