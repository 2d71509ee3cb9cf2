package hashEmbedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbedder_Normalised(t *testing.T) {
	e := New(64)
	v, err := e.GetEmbedding(context.Background(), "Reith lectures on quantum mechanics")
	require.NoError(t, err)
	require.Len(t, v, 64)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedder_SimilarTextScoresHigher(t *testing.T) {
	e := New(0)
	ctx := context.Background()

	docs, err := e.BatchEmbedding(ctx, []string{
		"The lecture covered the history of broadcasting and public service radio.",
		"Quantum mechanics describes particles, waves and the uncertainty principle.",
	}, false)
	require.NoError(t, err)

	q, err := e.GetEmbedding(ctx, "quantum mechanics")
	require.NoError(t, err)

	assert.Greater(t, cosine(q, docs[1]), cosine(q, docs[0]))
}

func TestEmbedder_Deterministic(t *testing.T) {
	a := New(128).embed("same words")
	b := New(128).embed("same words")
	assert.Equal(t, a, b)
}

func TestEmbedder_EmptyText(t *testing.T) {
	v := New(16).embed("the and of")
	for _, x := range v {
		assert.Zero(t, x)
	}
}
