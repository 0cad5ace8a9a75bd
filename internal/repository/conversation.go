package repository

import (
	"context"
	"errors"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationPageResult struct {
	Items      []*domain.Conversation
	NextCursor string
	HasMore    bool
}

// ConversationRepository persists conversations and their messages.
type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx dbtx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, chatbot_id, title, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ChatbotID, nullableString(c.Title), c.Metadata, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	var title *string
	err := r.db.QueryRow(ctx,
		`SELECT id, chatbot_id, title, metadata, created_at, updated_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ChatbotID, &title, &c.Metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if title != nil {
		c.Title = *title
	}
	return &c, nil
}

// ListByChatbotWithCursor pages conversations newest-first using a
// (updated_at, id) keyset cursor.
func (r *ConversationRepository) ListByChatbotWithCursor(ctx context.Context, chatbotID string, cursor *pagination.Cursor, limit int) (*ConversationPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, chatbot_id, title, metadata, created_at, updated_at
			 FROM conversations
			 WHERE chatbot_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			chatbotID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, chatbot_id, title, metadata, created_at, updated_at
			 FROM conversations
			 WHERE chatbot_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			chatbotID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var title *string
		if err := rows.Scan(&c.ID, &c.ChatbotID, &title, &c.Metadata, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if title != nil {
			c.Title = *title
		}
		items = append(items, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	result := &ConversationPageResult{Items: items, HasMore: hasMore}
	if hasMore {
		last := items[len(items)-1]
		result.NextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}
	return result, nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_type, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.SenderType, m.Content, m.CreatedAt,
	)
	return err
}

// ListMessages returns all messages of a conversation oldest-first.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, sender_type, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessageRows(rows)
}

// ListRecent returns the newest messages of a conversation in chronological
// order, capped at limit.
func (r *ConversationRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, sender_type, content, created_at
		 FROM (
			SELECT id, conversation_id, sender_type, content, created_at
			FROM messages WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessageRows(rows)
}

// Touch bumps a conversation's updated_at after a new turn is persisted.
func (r *ConversationRepository) Touch(ctx context.Context, conversationID string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
		at, conversationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func scanMessageRows(rows pgx.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		var senderType string
		if err := rows.Scan(&m.ID, &m.ConversationID, &senderType, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.SenderType = domain.SenderType(senderType)
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
