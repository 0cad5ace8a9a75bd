package repository

import (
	"context"
	"errors"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatbotRepository persists chatbot configurations.
type ChatbotRepository struct {
	db dbtx
}

func NewChatbotRepository(pool *pgxpool.Pool) *ChatbotRepository {
	return &ChatbotRepository{db: pool}
}

func (r *ChatbotRepository) Create(ctx context.Context, c *domain.Chatbot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chatbots (id, workspace_id, name, directive, model, temperature, max_tokens, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.WorkspaceID, c.Name, c.Directive, c.Model, c.Temperature, c.MaxTokens, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ChatbotRepository) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	var c domain.Chatbot
	err := r.db.QueryRow(ctx,
		`SELECT id, workspace_id, name, directive, model, temperature, max_tokens, created_at, updated_at
		 FROM chatbots WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Directive, &c.Model, &c.Temperature, &c.MaxTokens, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatbotNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChatbotRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Chatbot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, workspace_id, name, directive, model, temperature, max_tokens, created_at, updated_at
		 FROM chatbots WHERE workspace_id = $1 ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatbots []*domain.Chatbot
	for rows.Next() {
		var c domain.Chatbot
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Directive, &c.Model, &c.Temperature, &c.MaxTokens, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chatbots = append(chatbots, &c)
	}
	return chatbots, rows.Err()
}

func (r *ChatbotRepository) Update(ctx context.Context, c *domain.Chatbot) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chatbots
		 SET name = $1, directive = $2, model = $3, temperature = $4, max_tokens = $5, updated_at = $6
		 WHERE id = $7`,
		c.Name, c.Directive, c.Model, c.Temperature, c.MaxTokens, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatbotNotFound
	}
	return nil
}

func (r *ChatbotRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM chatbots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatbotNotFound
	}
	return nil
}
