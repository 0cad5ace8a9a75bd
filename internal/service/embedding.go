package service

import (
	"context"
	"fmt"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingError reports an embedding-service failure together with the
// position of the first affected input, so the ingestion pipeline can decide
// what to abort.
type EmbeddingError struct {
	Position int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed at input %d: %v", e.Position, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// defaultEmbedBatchSize bounds how many texts go into one provider call.
const defaultEmbedBatchSize = 64

// EmbeddingService embeds chunk batches for ingestion and queries for search.
type EmbeddingService struct {
	client    EmbeddingClient
	batchSize int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient) *EmbeddingService {
	return &EmbeddingService{
		client:    client,
		batchSize: defaultEmbedBatchSize,
	}
}

// EmbedQuery embeds a single search query.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.client.GenerateEmbedding(ctx, query)
}

// EmbedChunks embeds texts in provider-sized batches. The result is
// order-preserving and exactly len(texts) long; any provider failure is
// returned as an *EmbeddingError positioned at the first input of the
// failing batch, with nothing partially returned.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batchSize := s.batchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.client.GenerateEmbeddingBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &EmbeddingError{Position: start, Err: err}
		}
		if len(batch) != end-start {
			return nil, &EmbeddingError{
				Position: start,
				Err:      fmt.Errorf("provider returned %d vectors for %d inputs", len(batch), end-start),
			}
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
