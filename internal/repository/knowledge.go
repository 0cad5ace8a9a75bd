package repository

import (
	"context"
	"errors"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KnowledgeBaseRepository persists knowledge bases and their documents.
// Chunk rows are owned by ChunkRepository.
type KnowledgeBaseRepository struct {
	db dbtx
}

func NewKnowledgeBaseRepository(pool *pgxpool.Pool) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: pool}
}

func NewKnowledgeBaseRepositoryWithTx(tx dbtx) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: tx}
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, chatbot_id, name, type, index_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		kb.ID, kb.ChatbotID, kb.Name, kb.Type, kb.IndexName, kb.CreatedAt,
	)
	return err
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var kbType string
	err := r.db.QueryRow(ctx,
		`SELECT id, chatbot_id, name, type, index_name, created_at
		 FROM knowledge_bases WHERE id = $1`,
		id,
	).Scan(&kb.ID, &kb.ChatbotID, &kb.Name, &kbType, &kb.IndexName, &kb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	kb.Type = domain.KnowledgeBaseType(kbType)
	return &kb, nil
}

func (r *KnowledgeBaseRepository) ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.KnowledgeBase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, chatbot_id, name, type, index_name, created_at
		 FROM knowledge_bases WHERE chatbot_id = $1 ORDER BY created_at ASC`,
		chatbotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bases []*domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		var kbType string
		if err := rows.Scan(&kb.ID, &kb.ChatbotID, &kb.Name, &kbType, &kb.IndexName, &kb.CreatedAt); err != nil {
			return nil, err
		}
		kb.Type = domain.KnowledgeBaseType(kbType)
		bases = append(bases, &kb)
	}
	return bases, rows.Err()
}

func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_bases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}

// DocumentRepository persists ingested documents.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx dbtx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, knowledge_base_id, source, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.KnowledgeBaseID, d.Source, d.Content, d.Metadata, d.CreatedAt,
	)
	return err
}

func (r *KnowledgeBaseRepository) ListDocuments(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, knowledge_base_id, source, content, metadata, created_at
		 FROM documents WHERE knowledge_base_id = $1 ORDER BY created_at ASC`,
		knowledgeBaseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.KnowledgeBaseID, &d.Source, &d.Content, &d.Metadata, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (r *KnowledgeBaseRepository) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	var d domain.Document
	err := r.db.QueryRow(ctx,
		`SELECT id, knowledge_base_id, source, content, metadata, created_at
		 FROM documents WHERE id = $1`,
		documentID,
	).Scan(&d.ID, &d.KnowledgeBaseID, &d.Source, &d.Content, &d.Metadata, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *KnowledgeBaseRepository) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
