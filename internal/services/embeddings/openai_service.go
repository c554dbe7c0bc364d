package embeddings

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/common"
	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/models"
)

// OpenAIService implements EmbeddingService against the OpenAI embeddings
// API. Vectors are L2 normalized so cosine similarity reduces to a dot
// product.
type OpenAIService struct {
	client    *openai.Client
	model     string
	dimension int
	logger    arbor.ILogger
}

// NewOpenAIService creates an OpenAI-backed embedding service
func NewOpenAIService(config *common.Config, logger arbor.ILogger) (interfaces.EmbeddingService, error) {
	if config.Embeddings.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured (set OPENAI_API_KEY or embeddings.api_key)")
	}

	model := config.Embeddings.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dimension := 1536 // text-embedding-3-small
	if model == "text-embedding-3-large" {
		dimension = 3072
	}

	return &OpenAIService{
		client:    openai.NewClient(config.Embeddings.APIKey),
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// Embed generates an embedding for a single text
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for a batch of texts in one API call
func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("cannot embed an empty batch")
	}
	for _, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("cannot embed empty text")
		}
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", models.ErrIndexUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", models.ErrIndexUnavailable, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, data := range resp.Data {
		vectors[i] = l2Normalize(data.Embedding)
	}

	s.logger.Debug().
		Str("model", s.model).
		Int("batch", len(texts)).
		Msg("Generated embeddings")

	return vectors, nil
}

// ModelName returns the embedding model identifier
func (s *OpenAIService) ModelName() string {
	return s.model
}

// Dimension returns the embedding vector size
func (s *OpenAIService) Dimension() int {
	return s.dimension
}

// l2Normalize scales a vector to unit length
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
