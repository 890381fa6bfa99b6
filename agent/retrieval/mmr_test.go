package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	require.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	require.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	require.Zero(t, CosineSimilarity([]float64{1}, []float64{1, 2}))
	require.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}

func TestMaximalMarginalRelevancePrefersDiversity(t *testing.T) {
	t.Parallel()

	query := []float64{1, 0, 0}
	candidates := [][]float64{
		{1, 0.1, 0},     // best match
		{1, 0.12, 0.01}, // near duplicate of the first
		{0.8, 0, 0.6},   // less relevant but different
	}

	got := MaximalMarginalRelevance(query, candidates, 0.5, 2)
	require.Equal(t, []int{0, 2}, got)

	got = MaximalMarginalRelevance(query, candidates, 1, 2)
	require.Equal(t, []int{0, 1}, got)
}

func TestMaximalMarginalRelevanceLambdaOneIsPureRelevance(t *testing.T) {
	t.Parallel()

	query := []float64{1, 0}
	candidates := [][]float64{
		{0.7, 0.7},
		{1, 0},
		{0.99, 0.1},
	}

	got := MaximalMarginalRelevance(query, candidates, 1, 3)
	require.Equal(t, []int{1, 2, 0}, got)
}

func TestMaximalMarginalRelevanceBounds(t *testing.T) {
	t.Parallel()

	require.Nil(t, MaximalMarginalRelevance([]float64{1}, nil, 0.7, 5))
	require.Nil(t, MaximalMarginalRelevance([]float64{1}, [][]float64{{1}}, 0.7, 0))
	require.Len(t, MaximalMarginalRelevance([]float64{1, 0}, [][]float64{{1, 0}, {0, 1}}, 0.7, 5), 2)
}

func TestMMROptionsNormalized(t *testing.T) {
	t.Parallel()

	got := MMROptions{K: 5, FetchK: 2, Lambda: 1.5}.normalized()
	require.Equal(t, 5, got.K)
	require.Equal(t, 5, got.FetchK)
	require.Equal(t, 1.0, got.Lambda)
}
