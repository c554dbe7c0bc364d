package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestLocalServiceDeterminism(t *testing.T) {
	svc, err := NewLocalService(384, arbor.NewLogger())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := svc.Embed(ctx, "Intro to Testing")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "Intro to Testing")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 384)
}

func TestLocalServiceSimilarity(t *testing.T) {
	svc, err := NewLocalService(384, arbor.NewLogger())
	require.NoError(t, err)

	ctx := context.Background()
	exact, err := svc.Embed(ctx, "Intro to Testing")
	require.NoError(t, err)
	typo, err := svc.Embed(ctx, "Intro to Testng")
	require.NoError(t, err)
	unrelated, err := svc.Embed(ctx, "Quantum Biology")
	require.NoError(t, err)

	// Unit vectors, so dot product is cosine similarity.
	typoSim := cosine(exact, typo)
	unrelatedSim := cosine(exact, unrelated)
	assert.Greater(t, typoSim, 0.7)
	assert.Less(t, unrelatedSim, 0.3)
	assert.Greater(t, typoSim, unrelatedSim)
}

func TestLocalServiceEmptyText(t *testing.T) {
	svc, err := NewLocalService(64, arbor.NewLogger())
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "")
	assert.Error(t, err)
}

func TestLocalServiceBatch(t *testing.T) {
	svc, err := NewLocalService(64, arbor.NewLogger())
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.NotEqual(t, vectors[0], vectors[1])
}
