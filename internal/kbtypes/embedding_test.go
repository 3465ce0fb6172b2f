package kbtypes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantizeDequantizeRoundTrip(t *testing.T) {
	v := make([]float64, EmbeddingDim)
	for i := range v {
		v[i] = math.Sin(float64(i)) // values spanning [-1, 1]
	}

	quantized := QuantizeEmbedding(v)
	require.Len(t, quantized, EmbeddingDim)

	dequantized := DequantizeEmbedding(quantized)
	require.Len(t, dequantized, EmbeddingDim)
	for i := range v {
		assert.LessOrEqual(t, math.Abs(v[i]-dequantized[i]), 1.0/127+1e-9, "component %d", i)
	}
}

func TestDequantizeRejectsWrongLength(t *testing.T) {
	assert.Nil(t, DequantizeEmbedding([]byte{1, 2, 3}))
}

func TestZeroEmbeddingDequantizesToZero(t *testing.T) {
	zero := DequantizeEmbedding(ZeroEmbedding())
	for _, x := range zero {
		assert.Equal(t, 0.0, x)
	}
}

func TestQuantizeEmbeddingPanicsOnWrongLength(t *testing.T) {
	assert.Panics(t, func() { QuantizeEmbedding([]float64{1, 2, 3}) })
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}

func TestCosineSimilarityMismatchedLength(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 2}))
}
