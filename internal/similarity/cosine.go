// Package similarity computes cosine similarity between embedding vectors.
package similarity

import (
	"fmt"
	"math"

	"pdfrag/internal/domain"
)

// Cosine returns dot(a,b) / (|a|*|b|). Empty, zero-magnitude or
// mismatched vectors yield domain.ErrInvalidVector.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch: %d vs %d", domain.ErrInvalidVector, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vector", domain.ErrInvalidVector)
	}

	var dot, normA, normB float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: zero-magnitude vector", domain.ErrInvalidVector)
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

// CosineBatch scores one query vector against each candidate. Scores are
// returned in candidate order. The query norm is computed once.
func CosineBatch(query []float32, candidates [][]float32) ([]float64, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidVector)
	}
	var normQ float64
	for _, v := range query {
		normQ += float64(v) * float64(v)
	}
	if normQ == 0 {
		return nil, fmt.Errorf("%w: zero-magnitude query vector", domain.ErrInvalidVector)
	}
	normQ = math.Sqrt(normQ)

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, fmt.Errorf("%w: candidate %d dimension mismatch: %d vs %d", domain.ErrInvalidVector, i, len(c), len(query))
		}
		var dot, normC float64
		for j := range c {
			vc := float64(c[j])
			dot += float64(query[j]) * vc
			normC += vc * vc
		}
		if normC == 0 {
			return nil, fmt.Errorf("%w: candidate %d has zero magnitude", domain.ErrInvalidVector, i)
		}
		scores[i] = math.Max(-1, math.Min(1, dot/(normQ*math.Sqrt(normC))))
	}
	return scores, nil
}
