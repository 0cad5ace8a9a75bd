package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of chunked document embeddings and
// implements both the similarity search and the sequential-scan fallback.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// UpsertChunks writes chunks keyed on (document_id, chunk_index), so
// re-ingesting a document overwrites its previous chunks in place.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks []*domain.Chunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(id, document_id, knowledge_base_id, chatbot_id, chunk_index, content, embedding, metadata, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (document_id, chunk_index) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			c.ID,
			c.DocumentID,
			c.KnowledgeBaseID,
			c.ChatbotID,
			c.ChunkIndex,
			c.Content,
			pgvector.NewVector(c.Embedding),
			c.Metadata,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// SearchByEmbedding runs a cosine similarity search inside the given scope.
// Score is 1 - cosine distance, higher is closer, ordered descending.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, scope service.SearchScope, limit int) ([]*domain.SearchResult, error) {
	if limit <= 0 {
		limit = service.DefaultSearchLimit
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT document_id, knowledge_base_id, chatbot_id, chunk_index, content, metadata,
		       1 - (embedding <=> $1) AS score
		FROM knowledge_chunks
		WHERE chatbot_id = $2`
	args := []interface{}{vec, scope.ChatbotID}

	if scope.KnowledgeBaseID != "" {
		query += " AND knowledge_base_id = $3"
		args = append(args, scope.KnowledgeBaseID)
	}

	query += fmt.Sprintf(" ORDER BY score DESC LIMIT %d", limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		var result domain.SearchResult
		if err := rows.Scan(&result.DocumentID, &result.KnowledgeBaseID, &result.ChatbotID, &result.ChunkIndex, &result.Content, &result.Metadata, &result.Score); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}

// ScanByScope returns the newest chunks in a scope without touching the
// vector index. It backs the degraded search path when embeddings are
// unavailable; scores are left zero for the caller to assign.
func (r *ChunkRepository) ScanByScope(ctx context.Context, scope service.SearchScope, limit int) ([]*domain.SearchResult, error) {
	if limit <= 0 {
		limit = service.DefaultSearchLimit
	}

	query := `
		SELECT document_id, knowledge_base_id, chatbot_id, chunk_index, content, metadata
		FROM knowledge_chunks
		WHERE chatbot_id = $1`
	args := []interface{}{scope.ChatbotID}

	if scope.KnowledgeBaseID != "" {
		query += " AND knowledge_base_id = $2"
		args = append(args, scope.KnowledgeBaseID)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, chunk_index ASC LIMIT %d", limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		var result domain.SearchResult
		if err := rows.Scan(&result.DocumentID, &result.KnowledgeBaseID, &result.ChatbotID, &result.ChunkIndex, &result.Content, &result.Metadata); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ChunkRepository) DeleteByKnowledgeBase(ctx context.Context, knowledgeBaseID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE knowledge_base_id = $1`, knowledgeBaseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ChunkRepository) DeleteByChatbot(ctx context.Context, chatbotID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE chatbot_id = $1`, chatbotID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Stats aggregates chunk and document counts per knowledge base for one chatbot.
func (r *ChunkRepository) Stats(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBaseStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT knowledge_base_id, COUNT(*), COUNT(DISTINCT document_id)
		 FROM knowledge_chunks
		 WHERE chatbot_id = $1
		 GROUP BY knowledge_base_id
		 ORDER BY knowledge_base_id`,
		chatbotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*domain.KnowledgeBaseStats, 0)
	for rows.Next() {
		var s domain.KnowledgeBaseStats
		if err := rows.Scan(&s.KnowledgeBaseID, &s.TotalChunks, &s.DocumentCount); err != nil {
			return nil, err
		}
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}

// CountChunks returns the total number of chunks in the store.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&count)
	return count, err
}

// EnsureSimilarityIndex creates the HNSW cosine index on the embedding column
// if it does not exist yet. Safe to call repeatedly from the maintenance worker.
func (r *ChunkRepository) EnsureSimilarityIndex(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_embedding_idx
		 ON knowledge_chunks USING hnsw (embedding vector_cosine_ops)`)
	return err
}
