package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder produces fixed-dimension vectors for chunk and query text.
// Ingestion and query paths must share one Embedder instance so their vector
// geometry stays consistent.
type Embedder struct {
	api       *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewEmbedder builds an embedder at the given dimension (768 in this
// deployment) using text-embedding-3-small with a requested output size.
func NewEmbedder(apiKey string, dimension int) *Embedder {
	return &Embedder{
		api:       openai.NewClient(apiKey),
		model:     openai.SmallEmbedding3,
		dimension: dimension,
	}
}

// Dimension reports the vector length this embedder produces.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: e.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count does not match input count")
	}
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
