package interfaces

import (
	"context"
)

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// Generate an embedding for raw text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Generate embeddings for a batch of texts, one vector per input
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Get model information
	ModelName() string
	Dimension() int
}
