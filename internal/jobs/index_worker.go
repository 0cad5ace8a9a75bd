package jobs

import (
	"context"
	"fmt"
	"log"
)

// ChunkMaintenanceRepository defines the vector-store maintenance operations
// the index worker needs.
type ChunkMaintenanceRepository interface {
	// EnsureSimilarityIndex creates the similarity index if missing.
	EnsureSimilarityIndex(ctx context.Context) error

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int64, error)
}

// IndexWorker re-asserts the vector similarity index and reports store size.
// The index survives normal operation; this covers index loss after restores
// and stores created before pgvector was installed.
type IndexWorker struct {
	repo       ChunkMaintenanceRepository
	lastChunks int64
}

// NewIndexWorker creates a new IndexWorker instance
func NewIndexWorker(repo ChunkMaintenanceRepository) *IndexWorker {
	return &IndexWorker{repo: repo, lastChunks: -1}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	if err := w.repo.EnsureSimilarityIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure similarity index: %w", err)
	}

	count, err := w.repo.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	if count != w.lastChunks {
		log.Printf("vector store: %d chunks indexed", count)
		w.lastChunks = count
	}

	return nil
}
