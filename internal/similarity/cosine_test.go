package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.2, 0.9},
		{5, 5, 5, 5},
		{-1, -2, -3},
	}
	for _, v := range vectors {
		sim, err := Cosine(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	}
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.1, 0.7, -0.4, 2}
	b := []float32{1.5, -0.3, 0.2, 0.9}

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosine_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 2}, []float32{-1, -2}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"forty five degrees", []float32{1, 0}, []float32{1, 1}, 0.70710678},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sim, err := Cosine(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, sim, 1e-6)
		})
	}
}

func TestCosine_InvalidVectors(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"zero a", []float32{0, 0}, []float32{1, 2}},
		{"zero b", []float32{1, 2}, []float32{0, 0}},
		{"empty", nil, nil},
		{"mismatch", []float32{1, 2, 3}, []float32{1, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Cosine(tc.a, tc.b)
			assert.ErrorIs(t, err, domain.ErrInvalidVector)
		})
	}
}

func TestCosineBatch_MatchesPairwise(t *testing.T) {
	query := []float32{0.2, 0.4, 0.1}
	candidates := [][]float32{
		{0.2, 0.4, 0.1},
		{1, 0, 0},
		{-0.5, 0.3, 0.8},
	}

	scores, err := CosineBatch(query, candidates)
	require.NoError(t, err)
	require.Len(t, scores, len(candidates))

	for i, c := range candidates {
		want, err := Cosine(query, c)
		require.NoError(t, err)
		assert.InDelta(t, want, scores[i], 1e-9, "candidate %d", i)
	}
}

func TestCosineBatch_Invalid(t *testing.T) {
	_, err := CosineBatch([]float32{0, 0}, [][]float32{{1, 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidVector)

	_, err = CosineBatch([]float32{1, 1}, [][]float32{{1, 1}, {0, 0}})
	assert.ErrorIs(t, err, domain.ErrInvalidVector)

	scores, err := CosineBatch([]float32{1, 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
