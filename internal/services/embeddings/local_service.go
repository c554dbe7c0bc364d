package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/interfaces"
)

// LocalService is a deterministic, offline embedding provider: character
// trigrams hashed into a fixed-size vector, L2 normalized. Texts sharing
// most of their trigrams (typos included) land close in cosine space,
// which is enough for development and tests without an API key.
type LocalService struct {
	dimension int
	logger    arbor.ILogger
}

// NewLocalService creates a local trigram-hash embedding service
func NewLocalService(dimension int, logger arbor.ILogger) (interfaces.EmbeddingService, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	return &LocalService{
		dimension: dimension,
		logger:    logger,
	}, nil
}

// Embed generates an embedding for a single text
func (s *LocalService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vector := make([]float32, s.dimension)
	for _, trigram := range trigrams(text) {
		h := fnv.New32a()
		h.Write([]byte(trigram))
		vector[int(h.Sum32())%s.dimension]++
	}

	return l2Normalize(vector), nil
}

// EmbedBatch generates embeddings for a batch of texts
func (s *LocalService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("cannot embed an empty batch")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// ModelName returns the embedding model identifier
func (s *LocalService) ModelName() string {
	return fmt.Sprintf("local-trigram-%d", s.dimension)
}

// Dimension returns the embedding vector size
func (s *LocalService) Dimension() int {
	return s.dimension
}

// trigrams lowercases the text and emits every padded word trigram
func trigrams(text string) []string {
	var out []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		padded := " " + word + " "
		runes := []rune(padded)
		if len(runes) < 3 {
			out = append(out, padded)
			continue
		}
		for i := 0; i+3 <= len(runes); i++ {
			out = append(out, string(runes[i:i+3]))
		}
	}
	return out
}
